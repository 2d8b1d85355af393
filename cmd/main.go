// cmd/main.go is the application entry point.
// The serve, migrate and seed subcommands share config loading, logging
// and store selection defined here.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/club-events/internal/config"
	"github.com/Shivanand-hulikatti/club-events/internal/database"
	"github.com/Shivanand-hulikatti/club-events/internal/logger"
	"github.com/Shivanand-hulikatti/club-events/internal/repository"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "club-events",
	Short:         "Campus club event lifecycle and registration service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "env file to load (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}
	log, err := logger.New(cfg.App.Environment, cfg.App.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log.With(zap.String("app", cfg.App.Name)), nil
}

// storeHandle is an opened store plus what the caller needs to manage it.
type storeHandle struct {
	store repository.Store
	// ready reports backend health; nil for the memory driver.
	ready func(ctx context.Context) error
	// migrate applies the schema; nil for the memory driver.
	migrate func(ctx context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storeHandle, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on exit")
		return &storeHandle{store: repository.NewMemoryStore(), close: func() {}}, nil

	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, err
		}
		log.Info("connected to postgres",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Name),
		)
		return &storeHandle{
			store:   repository.NewPostgresStore(pool),
			ready:   func(ctx context.Context) error { return database.HealthCheck(ctx, pool) },
			migrate: func(ctx context.Context) error { return database.Migrate(ctx, pool) },
			close:   pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// seedFrom loads fixtures from path into store.
func seedFrom(ctx context.Context, store repository.Store, path string, log *zap.Logger) error {
	fixtures, err := repository.LoadFixtures(path)
	if err != nil {
		return err
	}
	if err := repository.Seed(ctx, store, fixtures); err != nil {
		return err
	}
	log.Info("fixtures loaded",
		zap.String("file", path),
		zap.Int("users", len(fixtures.Users)),
		zap.Int("clubs", len(fixtures.Clubs)),
		zap.Int("memberships", len(fixtures.Memberships)),
		zap.Int("resources", len(fixtures.Resources)),
	)
	return nil
}
