package commands

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"cdmbridge/internal/app"
	"cdmbridge/internal/metrics"
)

var (
	configPath  string
	home        string
	passphrase  string
	serverURL   string
	logLevel    string
	backend     string
	dumpMetrics bool

	wire *app.Wire
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &cobra.Command{
		Use:           "cdmctl",
		Short:         "Clear Key license and decrypt bridge",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("home") {
				cfg.Home = home
			}
			if flags.Changed("passphrase") {
				cfg.Storage.Passphrase = passphrase
			}
			if flags.Changed("server") {
				cfg.LicenseServer.URL = serverURL
			}
			if flags.Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if flags.Changed("store") {
				cfg.Storage.Backend = backend
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			wire, err = app.NewWire(cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			if dumpMetrics {
				if err := metrics.Dump(cmd.ErrOrStderr(), wire.Registry); err != nil {
					return err
				}
			}
			return wire.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&home, "home", "", "data dir (default ~/.cdmbridge)")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase sealing persisted licenses")
	pf.StringVar(&serverURL, "server", "", "license server URL (e.g. http://127.0.0.1:8080/license)")
	pf.StringVar(&logLevel, "log-level", "", "trace, debug, info, warn, error or disabled")
	pf.StringVar(&backend, "store", "", "license store: file, badger, redis or memory")
	pf.BoolVar(&dumpMetrics, "metrics", false, "write collected metrics to stderr on exit")

	root.AddCommand(
		initDataCmd(),
		packageCmd(),
		acquireCmd(),
		decryptCmd(),
		listCmd(),
		removeCmd(),
	)
	return root.ExecuteContext(ctx)
}
