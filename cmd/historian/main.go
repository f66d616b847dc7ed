// cmd/historian/main.go is an asynchronous historian service that pops event records from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/tripeaks/internal/cache"
	"github.com/jason-s-yu/tripeaks/internal/config"
	"github.com/jason-s-yu/tripeaks/internal/database"
	"github.com/jason-s-yu/tripeaks/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errNoDatabaseURL = errors.New("DATABASE_URL is not set")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "historian",
		Short: "Persist queued TriPeaks events to PostgreSQL",
		Long: `historian pops event records from the Redis history queue, writes them
to PostgreSQL in batches and marks games without recent activity abandoned.
Connection settings come from the config file and the DATABASE_URL and
TRIPEAKS_* environment variables.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runHistorian,
	}
	cmd.PersistentFlags().String("config", "", "path to a config file (default $XDG_CONFIG_HOME/tripeaks/config.toml)")
	return cmd
}

func runHistorian(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	logger := config.NewLogger(cfg.LogLevel)
	logger.SetOutput(cmd.ErrOrStderr())

	if cfg.Historian.DatabaseURL == "" {
		return errNoDatabaseURL
	}

	ctx := cmd.Context()
	rdb, err := cache.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.Historian.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	store := database.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare schema: %w", err)
	}

	return historian.NewService(rdb, store, cfg, logger).Run(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("historian stopped with error")
		stop()
		os.Exit(1)
	}
}
