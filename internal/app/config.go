package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable read by LoadConfig.
const EnvPrefix = "CDM"

// Config holds runtime wiring options for building the app.
//
// Environment variables are named after the field path, for example
// CDM_LICENSE_SERVER_URL or CDM_STORAGE_REDIS_ADDR.
type Config struct {
	Home          string              `yaml:"home" split_words:"true" validate:"required"`
	KeySystem     string              `yaml:"key_system" split_words:"true" validate:"required"`
	LicenseServer LicenseServerConfig `yaml:"license_server" split_words:"true"`
	Session       SessionConfig       `yaml:"session" split_words:"true"`
	Storage       StorageConfig       `yaml:"storage" split_words:"true"`
	Logging       LoggingConfig       `yaml:"logging" split_words:"true"`
	Server        ServerConfig        `yaml:"server" split_words:"true"`
}

// LicenseServerConfig says where license messages go.
type LicenseServerConfig struct {
	URL     string        `yaml:"url" split_words:"true" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" split_words:"true" validate:"gte=0"`
}

// SessionConfig tunes every session the app creates.
type SessionConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout" split_words:"true" validate:"gte=0"`
	StatusPolicy   string        `yaml:"status_policy" split_words:"true" validate:"oneof=first worst"`
	CipherMode     string        `yaml:"cipher_mode" split_words:"true" validate:"oneof=ctr cenc cbc cbc1 cbcs"`
}

// StorageConfig selects where persistent licenses are kept.
type StorageConfig struct {
	Backend    string `yaml:"backend" split_words:"true" validate:"oneof=file badger redis memory"`
	RedisAddr  string `yaml:"redis_addr" split_words:"true" validate:"required_if=Backend redis"`
	RedisDB    int    `yaml:"redis_db" split_words:"true" validate:"gte=0"`
	Passphrase string `yaml:"passphrase" split_words:"true"`
}

// LoggingConfig sets the default log level for every scope.
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" validate:"oneof=trace debug info warn error disabled"`
}

// ServerConfig is read by the development license server.
type ServerConfig struct {
	Addr          string        `yaml:"addr" split_words:"true" validate:"required"`
	MasterSecret  string        `yaml:"master_secret" split_words:"true"`
	RatePerSecond float64       `yaml:"rate_per_second" split_words:"true" validate:"gte=0"`
	Burst         int           `yaml:"burst" split_words:"true" validate:"gte=0"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace" split_words:"true" validate:"gte=0"`
}

// DefaultConfig returns the settings used when neither a file nor the
// environment says otherwise.
func DefaultConfig() Config {
	home := ".cdmbridge"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".cdmbridge")
	}
	return Config{
		Home:      home,
		KeySystem: "org.w3.clearkey",
		LicenseServer: LicenseServerConfig{
			URL:     "http://127.0.0.1:8080/license",
			Timeout: 10 * time.Second,
		},
		Session: SessionConfig{
			RequestTimeout: 30 * time.Second,
			StatusPolicy:   "first",
			CipherMode:     "cenc",
		},
		Storage: StorageConfig{Backend: "file"},
		Logging: LoggingConfig{Level: "warn"},
		Server: ServerConfig{
			Addr:          ":8080",
			RatePerSecond: 50,
			Burst:         20,
			ShutdownGrace: 5 * time.Second,
		},
	}
}

// LoadConfig layers the YAML file at path (skipped when path is empty or
// missing) and then CDM_* environment variables over DefaultConfig, and
// validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.UnmarshalStrict(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config from env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validator.New().Struct(c)
}
