package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests, e.g. ["https://calendar.example.com"]. "*" allows any origin.
	AllowedOrigins []string
}

var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}, ", ")

	corsAllowHeaders = strings.Join([]string{
		echo.HeaderContentType,
		echo.HeaderAuthorization,
		echo.HeaderXRequestedWith,
	}, ", ")
)

// CORS returns middleware that handles Cross-Origin Resource Sharing for the
// calendar API, so a front end served from another origin can fetch layouts
// and apply drag-drop moves. The admin key travels in a header, never in a
// cookie, so credentials are not allowed.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}
	if allowAll {
		slog.Warn("CORS allows every origin")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get(echo.HeaderOrigin)

			// Same-origin request.
			if origin == "" {
				return next(c)
			}

			res.Header().Add(echo.HeaderVary, echo.HeaderOrigin)
			if !allowAll && !originSet[origin] {
				// The browser blocks the response without CORS headers.
				return next(c)
			}

			res.Header().Set(echo.HeaderAccessControlAllowOrigin, origin)

			if req.Method == http.MethodOptions {
				res.Header().Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
				res.Header().Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
				res.Header().Set(echo.HeaderAccessControlMaxAge, "3600")
				return c.NoContent(http.StatusNoContent)
			}

			res.Header().Set(echo.HeaderAccessControlExposeHeaders, echo.HeaderContentDisposition)
			return next(c)
		}
	}
}
