package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:5000", c.ServerURL)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.True(t, strings.HasSuffix(c.CookieJarPath, filepath.Join(".shopctl", "cookies.json")))
}

func TestLoadConfig_UsesDefaultsWithoutFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"shopctl"}
	t.Setenv(ConfigEnvVar, "")

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:5000", cfg.ServerURL)
}

func TestBindFlags_OverridesEarlierSources(t *testing.T) {
	cfg := &Config{ServerURL: "http://from-json:1", RequestTimeout: 3 * time.Second, CookieJarPath: "/tmp/jar.json"}

	fs := pflag.NewFlagSet("shopctl", pflag.ContinueOnError)
	BindFlags(fs, cfg)
	require.NoError(t, fs.Parse([]string{"-a", "http://flag:2", "--timeout", "45s", "-c", "ignored.json"}))

	assert.Equal(t, "http://flag:2", cfg.ServerURL)
	assert.Equal(t, 45*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/tmp/jar.json", cfg.CookieJarPath)
}

func TestBindFlags_RejectsBadDuration(t *testing.T) {
	cfg := &Config{}
	fs := pflag.NewFlagSet("shopctl", pflag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))
	BindFlags(fs, cfg)

	assert.Error(t, fs.Parse([]string{"-t", "soon"}))
}
