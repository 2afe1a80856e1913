package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cdmbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "org.w3.clearkey", cfg.KeySystem)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 30*time.Second, cfg.Session.RequestTimeout)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().LicenseServer, cfg.LicenseServer)
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
home: /tmp/cdm-test
license_server:
  url: http://license.example/clearkey
  timeout: 3s
session:
  status_policy: worst
  cipher_mode: cbcs
logging:
  level: info
`)
	t.Setenv("CDM_LOGGING_LEVEL", "debug")
	t.Setenv("CDM_SESSION_REQUEST_TIMEOUT", "2m")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/cdm-test", cfg.Home)
	assert.Equal(t, "http://license.example/clearkey", cfg.LicenseServer.URL)
	assert.Equal(t, 3*time.Second, cfg.LicenseServer.Timeout)
	assert.Equal(t, "worst", cfg.Session.StatusPolicy)
	assert.Equal(t, "cbcs", cfg.Session.CipherMode)
	// env wins over the file
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2*time.Minute, cfg.Session.RequestTimeout)
	// untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "relay_url: http://old\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad cipher mode", func(c *Config) { c.Session.CipherMode = "xts" }},
		{"bad policy", func(c *Config) { c.Session.StatusPolicy = "best" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = "redis" }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }},
		{"bad url", func(c *Config) { c.LicenseServer.URL = "not a url" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"negative timeout", func(c *Config) { c.Session.RequestTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
