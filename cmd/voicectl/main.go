// Command voicectl runs the platform's operator tasks: catalog sync, preview
// maintenance, reconciliation sweeps, token issuance and schema migration.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"voice-agent-platform/internal/app"
	"voice-agent-platform/internal/config"
	"voice-agent-platform/pkg/logger"
	"voice-agent-platform/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "voicectl",
	Short:         "Operator tasks for the voice agent platform",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "voicectl: %v\n", err)
		os.Exit(1)
	}
}

// env is the loaded configuration plus open connections for one command run.
type env struct {
	cfg config.Config
	db  *sql.DB
	rdb *redis.Client
}

func (e *env) Close() {
	if e.rdb != nil {
		_ = e.rdb.Close()
	}
	if e.db != nil {
		_ = e.db.Close()
	}
}

// loadConfig loads config and installs the JSON logger on the command context.
func loadConfig(cmd *cobra.Command) (context.Context, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)
	return logger.With(cmd.Context(), log.With("command", cmd.Name())), cfg, nil
}

// setup loads config and opens Postgres. Redis is opened only when withRedis is set.
func setup(cmd *cobra.Command, withRedis bool) (context.Context, *env, error) {
	ctx, cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	e := &env{cfg: cfg}
	e.db, err = utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	if withRedis {
		e.rdb, err = utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			e.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
	}
	return ctx, e, nil
}

// services wires the full application graph for commands that need it.
func services(cmd *cobra.Command) (context.Context, *app.App, func(), error) {
	ctx, e, err := setup(cmd, true)
	if err != nil {
		return nil, nil, nil, err
	}
	a, err := app.New(e.cfg, e.db, e.rdb, nil)
	if err != nil {
		e.Close()
		return nil, nil, nil, err
	}
	return ctx, a, e.Close, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
