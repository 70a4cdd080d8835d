package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voice-agent-platform/internal/app"
	"voice-agent-platform/internal/auth"
	"voice-agent-platform/internal/config"
	"voice-agent-platform/internal/httpapi"
	"voice-agent-platform/internal/metrics"
	"voice-agent-platform/pkg/logger"
	"voice-agent-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	services, err := app.New(cfg, db, rdb, nil)
	if err != nil {
		log.Error("service wiring failed", "err", err)
		os.Exit(1)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	r.Use(metrics.Middleware())
	r.Use(httpapi.ClientIP())

	registerRoutes(r, routeDeps{
		Auth:     authManager,
		App:      services,
		Health:   func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
		Handlers: handlersFor(services),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Voice sync and preview organization run inside the request.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("shutdown complete")
}

func handlersFor(a *app.App) httpapi.Handlers {
	return httpapi.Handlers{
		Sessions:      a.Sessions,
		Agents:        a.Agents,
		Numbers:       a.Numbers,
		Voices:        a.Voices,
		VoiceSync:     a.VoiceSync,
		Previews:      a.Previews,
		Calls:         a.Calls,
		Reporting:     a.Reporting,
		Subscriptions: a.Subscriptions,
		NumberSweep:   a.NumberSweep,
		AgentSweep:    a.AgentSweep,
	}
}
