// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance)
// and wires the calendar plugin onto it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/almanac/internal/apperror"
	"github.com/keyxmakerx/almanac/internal/config"
	"github.com/keyxmakerx/almanac/internal/middleware"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool.
	DB *sql.DB

	// Redis backs the layout cache. Nil when no REDIS_URL is configured.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// ctx is cancelled on shutdown to stop background middleware work.
	ctx context.Context
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(ctx context.Context, cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// We log our own startup line.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must see the client, not the proxy, for rate limiting.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
		ctx:    ctx,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: the request logger is outermost so it records the final
// status, including panics turned into 500s by Recovery.
func (a *App) setupMiddleware() {
	a.Echo.Use(echomw.RequestID())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: append([]string{a.Config.BaseURL}, a.Config.AllowedOrigins...),
	}))
}

// errorHandler is the custom Echo error handler. Status and message come
// from the AppError in the chain or from Echo's own HTTP errors, and any
// other error is logged and answered with a generic 500. The body has the
// form
// {"error": "Not Found", "type": "not_found", "message": "event not found"}.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	body := apperror.Response{Message: apperror.SafeMessage(err)}
	code := apperror.SafeCode(err)

	var echoErr *echo.HTTPError
	if _, isApp := apperror.As(err); !isApp && errors.As(err, &echoErr) {
		code = echoErr.Code
		body.Message = defaultErrorMessage(code)
		if msg, ok := echoErr.Message.(string); ok {
			body.Message = msg
		}
	} else {
		appErr := apperror.From(err)
		body.Type = appErr.Type
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	}
	body.Error = http.StatusText(code)

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, body)
	}
	if writeErr != nil {
		slog.Warn("writing error response", slog.Any("error", writeErr))
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "A valid admin key is required."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The requested resource does not exist."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusRequestEntityTooLarge:
		return "The request body is too large."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusTooManyRequests:
		return "You're making too many requests. Please slow down."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Almanac server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
