package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/almanac/internal/apperror"
)

// RequireAdminKey returns middleware that admits a request only when its
// "Authorization: Bearer <key>" header matches the bcrypt hash of the admin
// API key. With no hash configured every write is refused.
func RequireAdminKey(hash string) echo.MiddlewareFunc {
	hashed := []byte(hash)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(hashed) == 0 {
				return apperror.NewForbidden("writes are disabled: no admin key configured")
			}

			key, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return apperror.NewUnauthorized("missing admin key")
			}
			if err := bcrypt.CompareHashAndPassword(hashed, []byte(key)); err != nil {
				return apperror.NewUnauthorized("invalid admin key")
			}
			return next(c)
		}
	}
}

// bearerToken extracts the token from an "Authorization: Bearer" value.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
