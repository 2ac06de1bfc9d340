// Package main is the entry point for the Almanac server. It loads
// configuration, connects to MariaDB and Redis, applies migrations, wires
// the calendar plugin, and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/keyxmakerx/almanac/internal/app"
	"github.com/keyxmakerx/almanac/internal/config"
	"github.com/keyxmakerx/almanac/internal/database"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	slog.Info("starting Almanac",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Connect to MariaDB ---
	db, err := database.NewMariaDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to MariaDB")

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		return err
	}

	// --- Connect to Redis (optional: only the layout cache uses it) ---
	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, layout cache disabled", slog.Any("error", err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
		slog.Info("connected to Redis")
	}

	if cfg.Admin.KeyHash == "" {
		slog.Warn("ADMIN_KEY_HASH not set: all write endpoints will answer 403")
	}

	application := app.New(ctx, cfg, db, rdb)
	application.RegisterRoutes()

	// --- Graceful Shutdown ---
	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")

		// Give in-flight requests 10 seconds to complete.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := application.Echo.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	if err := application.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// setupLogging configures the global slog logger. Development uses the text
// handler for readability; everything else logs JSON for aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
