package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cdmbridge/internal/app"
	"cdmbridge/internal/licenseserver"
	"cdmbridge/internal/metrics"
)

var (
	configPath string
	addr       string
	secret     string
)

func main() {
	root := &cobra.Command{
		Use:          "licenseserver",
		Short:        "Development Clear Key license server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("secret") {
				cfg.Server.MasterSecret = secret
			}
			return run(cmd.Context(), cfg)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.Flags().StringVar(&addr, "addr", "", "listen address (default :8080)")
	root.Flags().StringVar(&secret, "secret", "", "master secret keys are derived from")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg app.Config) error {
	loggers, err := app.NewLoggerFactory(cfg.Logging.Level, nil)
	if err != nil {
		return err
	}
	log := loggers.NewLogger("main")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, err := licenseserver.New(licenseserver.Config{
		MasterSecret:      []byte(cfg.Server.MasterSecret),
		RequestsPerSecond: cfg.Server.RatePerSecond,
		Burst:             cfg.Server.Burst,
		LoggerFactory:     loggers,
		Metrics:           metrics.New(reg),
		Gatherer:          reg,
	})
	if err != nil {
		return err
	}

	hs := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("license server listening on %s", cfg.Server.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
