package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pion/logging"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/keystatus"
	"cdmbridge/internal/services/session"
)

// NewLoggerFactory returns a factory that writes every scope to w at level.
// A nil w means stderr.
func NewLoggerFactory(level string, w io.Writer) (logging.LoggerFactory, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	return &logging.DefaultLoggerFactory{
		Writer:          w,
		DefaultLogLevel: lvl,
		ScopeLevels:     map[string]logging.LogLevel{},
	}, nil
}

func parseLevel(s string) (logging.LogLevel, error) {
	switch strings.ToLower(s) {
	case "trace":
		return logging.LogLevelTrace, nil
	case "debug":
		return logging.LogLevelDebug, nil
	case "info":
		return logging.LogLevelInfo, nil
	case "", "warn":
		return logging.LogLevelWarn, nil
	case "error":
		return logging.LogLevelError, nil
	case "disabled":
		return logging.LogLevelDisabled, nil
	default:
		return logging.LogLevelDisabled, fmt.Errorf("unknown log level %q", s)
	}
}

// SessionConfig translates the session section of cfg.
func (c Config) SessionConfig() (session.Config, error) {
	policy, ok := keystatus.ParsePolicy(c.Session.StatusPolicy)
	if !ok {
		return session.Config{}, fmt.Errorf("unknown status policy %q", c.Session.StatusPolicy)
	}
	mode, ok := domain.ParseCipherMode(c.Session.CipherMode)
	if !ok {
		return session.Config{}, fmt.Errorf("unknown cipher mode %q", c.Session.CipherMode)
	}
	return session.Config{
		KeySystem:        c.KeySystem,
		LicenseServerURL: c.LicenseServer.URL,
		RequestTimeout:   c.Session.RequestTimeout,
		StatusPolicy:     policy,
		CipherMode:       mode,
	}, nil
}

// StorePath returns the directory a file or badger backend keeps its data in.
func (c Config) StorePath() string {
	if c.Storage.Backend == "badger" {
		return filepath.Join(c.Home, "badger")
	}
	return c.Home
}
