// Package cmd implements the tgharvest command-line interface.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibeckermayer/tgharvest/internal/app"
	"github.com/ibeckermayer/tgharvest/internal/browser"
	"github.com/ibeckermayer/tgharvest/internal/config"
	"github.com/ibeckermayer/tgharvest/internal/database"
	"github.com/ibeckermayer/tgharvest/internal/logger"
	"github.com/ibeckermayer/tgharvest/internal/notifier"
	"github.com/ibeckermayer/tgharvest/internal/scraper"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// Debug forces debug-level logging for all commands
	Debug bool

	rootCmd = &cobra.Command{
		Use:           "tgharvest",
		Short:         "Scrape public Telegram channels into a cleaned SQL table",
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is config.toml in the user config dir)")
	rootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newScrapeCmd(),
		newProcessCmd(),
		newPersistCmd(),
		newRunCmd(),
		newServeCmd(),
		newChannelsCmd(),
		newOpenCmd(),
		newBotTestCmd(),
	)
}

// env is what every command starts from.
type env struct {
	cfg     *config.Config
	cfgPath string
	logger  logger.Logger
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

// setup loads and validates config and builds the logger.
func setup() (*env, error) {
	path, err := configPath()
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	cfg, created, err := config.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if Debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return nil, err
	}

	if created {
		log.Info("Created default config", logger.String("path", path))
	}

	return &env{cfg: cfg, cfgPath: path, logger: log}, nil
}

// openSession is the production FetcherFactory: one browser per scrape.
func openSession(ctx context.Context, cfg config.ScrapingConfig) (scraper.PageFetcher, func(), error) {
	s, err := browser.NewSession(ctx, cfg.Headless, time.Duration(cfg.PageTimeoutSeconds)*time.Second)
	if err != nil {
		return nil, nil, err
	}
	return s, s.Close, nil
}

// appOptions picks which optional collaborators newApp wires.
type appOptions struct {
	database bool
	email    bool
}

// newApp builds the App. The returned cleanup closes the database.
func (e *env) newApp(opts appOptions) (*app.App, func(), error) {
	deps := app.Deps{Fetchers: openSession}
	cleanup := func() {}

	if opts.database {
		db, err := database.Open(database.ConfigFrom(e.cfg.Database))
		if err != nil {
			return nil, nil, err
		}
		e.logger.Info("Connected to database",
			logger.String("driver", e.cfg.Database.Driver),
			logger.String("table", e.cfg.Database.Table),
		)
		deps.Saver = database.NewRecordRepository(db)
		cleanup = func() { _ = db.Close() }
	}

	if opts.email && e.cfg.Email.Enabled {
		n, err := notifier.NewFromConfig(e.cfg.Email)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Notifier = n
	}

	a, err := app.New(e.cfg, e.cfgPath, e.logger, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return a, cleanup, nil
}
