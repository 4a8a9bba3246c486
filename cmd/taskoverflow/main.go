package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskoverflow/internal/app"
	"taskoverflow/internal/config"
	"taskoverflow/internal/logging"
	"taskoverflow/internal/storage"
	"taskoverflow/internal/tracker"
)

const openTimeout = 15 * time.Second

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags override values loaded by config.Load when set.
type globalFlags struct {
	configPath string
	store      string
	addr       string
	db         string
	mongoURI   string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "taskoverflow",
		Short:         "TaskOverflow project and task tracker backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to a TOML config file")
	pf.StringVar(&flags.store, "store", "", "store driver: memory, sqlite or mongo")
	pf.StringVar(&flags.addr, "addr", "", "HTTP listen address")
	pf.StringVar(&flags.db, "db", "", "path to sqlite database file")
	pf.StringVar(&flags.mongoURI, "mongo-uri", "", "MongoDB connection string")

	root.AddCommand(newServeCommand(flags), newRecountCommand(flags))
	return root
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func newRecountCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recount",
		Short: "Recompute the task counters of every project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateStore(); err != nil {
				return err
			}

			logger, closer, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			store, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			n, err := tracker.New(store, tracker.WithLogger(logger)).RecountAll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recounted %d projects\n", n)
			return nil
		},
	}
}

// load reads the layered configuration and applies command line overrides.
func (f *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.store != "" {
		cfg.Store.Driver = f.store
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.db != "" {
		cfg.Store.SQLitePath = f.db
	}
	if f.mongoURI != "" {
		cfg.Store.MongoURI = f.mongoURI
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Source: "taskoverflow",
	})
}

func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, openTimeout)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	return store, nil
}
