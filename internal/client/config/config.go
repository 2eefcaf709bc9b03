package config

import (
	"os"
	"path/filepath"
	"time"
)

// ConfigEnvVar may point at the JSON config file when -c/--config is absent.
const ConfigEnvVar = "SHOPCTL_CONFIG"

// Config holds runtime settings for shopctl.
//
// ServerURL is the API base without the /api suffix. CookieJarPath is where
// the session and CSRF cookies survive between invocations.
type Config struct {
	ServerURL      string
	RequestTimeout time.Duration
	CookieJarPath  string
}

// LoadDefaults populates c with defaults for a local server.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:5000"
	c.RequestTimeout = 10 * time.Second
	c.CookieJarPath = defaultJarPath()
}

// LoadConfig applies defaults and then the JSON file, if any. Flags are
// applied later, when the command line is parsed (see BindFlags).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}

func defaultJarPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".shopctl", "cookies.json")
	}
	return filepath.Join(home, ".shopctl", "cookies.json")
}
