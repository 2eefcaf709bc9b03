package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/thriftmarket/internal/flagx"
	"github.com/dmitrijs2005/thriftmarket/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	CookieJarPath  string         `json:"cookie_jar_path"`
}

// parseJson overlays cfg with the JSON file named by -c/-config or
// SHOPCTL_CONFIG. Keys missing from the file leave cfg alone. It panics on
// read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(ConfigEnvVar)
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.CookieJarPath != "" {
		cfg.CookieJarPath = jc.CookieJarPath
	}
}
