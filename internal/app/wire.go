package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/engine"
	"cdmbridge/internal/license"
	"cdmbridge/internal/metrics"
	"cdmbridge/internal/services/acquire"
	"cdmbridge/internal/services/session"
	"cdmbridge/internal/store"
	"cdmbridge/internal/store/badgerstore"
	"cdmbridge/internal/store/redisstore"
)

// Wire bundles the store, engine, clients and services for the CLI.
type Wire struct {
	Config   Config
	Loggers  logging.LoggerFactory
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store   domain.LicenseStore
	Engine  *engine.Engine
	License *license.HTTPClient
	Acquire *acquire.Service
	Session session.Config
}

// NewWire constructs the dependency graph from cfg. Call Close when done.
func NewWire(cfg Config) (*Wire, error) {
	loggers, err := NewLoggerFactory(cfg.Logging.Level, nil)
	if err != nil {
		return nil, err
	}
	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	st, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	eng := engine.New(engine.Config{
		Store:         st,
		Passphrase:    cfg.Storage.Passphrase,
		LoggerFactory: loggers,
		Metrics:       m,
	})

	lc := license.NewHTTP(cfg.LicenseServer.URL,
		license.WithHTTPClient(&http.Client{Timeout: cfg.LicenseServer.Timeout}),
		license.WithLoggerFactory(loggers),
		license.WithMetrics(m),
	)

	sessCfg.LoggerFactory = loggers
	sessCfg.Metrics = m

	return &Wire{
		Config:   cfg,
		Loggers:  loggers,
		Registry: reg,
		Metrics:  m,
		Store:    st,
		Engine:   eng,
		License:  lc,
		Acquire:  acquire.New(eng, lc, sessCfg),
		Session:  sessCfg,
	}, nil
}

// OpenStore opens the license store selected by cfg.Storage.Backend.
func OpenStore(cfg Config) (domain.LicenseStore, error) {
	var (
		st  domain.LicenseStore
		err error
	)
	switch cfg.Storage.Backend {
	case "", "file":
		st, err = openFile(cfg.StorePath())
	case "badger":
		st, err = openBadger(cfg.StorePath())
	case "redis":
		st, err = openRedis(cfg.Storage)
	case "memory":
		st = store.NewMemoryStore()
	default:
		err = fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func openFile(dir string) (domain.LicenseStore, error) {
	s, err := store.NewLicenseFileStore(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openBadger(dir string) (domain.LicenseStore, error) {
	s, err := badgerstore.Open(dir)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRedis(cfg StorageConfig) (domain.LicenseStore, error) {
	s, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases the store. Sessions must be closed first.
func (w *Wire) Close() error {
	var errs []error
	if w.Store != nil {
		errs = append(errs, w.Store.Close())
	}
	return errors.Join(errs...)
}
