package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/almanac/internal/middleware"
	"github.com/keyxmakerx/almanac/internal/plugins/calendar"
)

// RegisterRoutes sets up all application routes. This is the single place
// where the plugin's repository, cache, service, and handler are wired.
func (a *App) RegisterRoutes() {
	e := a.Echo

	e.GET("/healthz", a.healthz)

	cfg := a.Config
	repo := calendar.NewEventRepository(a.DB)
	cache := calendar.NewLayoutCache(a.Redis, cfg.Calendar.LayoutCacheTTL)
	svc := calendar.NewCalendarService(repo, cache, calendar.Settings{
		StartHour:              cfg.Calendar.StartHour,
		EndHour:                cfg.Calendar.EndHour,
		HourHeight:             cfg.Calendar.HourHeight,
		MinimumDurationMinutes: cfg.Calendar.MinDurationMinutes,
		CellCap:                cfg.Calendar.CellCap,
	})

	// Writes: rate limit first so brute-forcing the admin key is throttled.
	admin := []echo.MiddlewareFunc{
		middleware.RateLimit(a.ctx, cfg.Admin.WriteRateLimit, cfg.Admin.WriteRateWindow),
		middleware.RequireAdminKey(cfg.Admin.KeyHash),
	}
	calendar.RegisterRoutes(e, calendar.NewHandler(svc), admin...)
}

// healthz reports whether MariaDB and, when configured, Redis respond.
// GET /healthz
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK

	if err := a.DB.PingContext(ctx); err != nil {
		status["status"], status["database"] = "unavailable", "unreachable"
		code = http.StatusServiceUnavailable
	}
	if a.Redis != nil {
		status["cache"] = "ok"
		// The cache is optional; a Redis outage degrades but does not fail.
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			status["cache"] = "unreachable"
		}
	}
	return c.JSON(code, status)
}
