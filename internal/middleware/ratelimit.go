package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/almanac/internal/apperror"
)

// rateLimitEntry tracks request counts for a single IP within a time window.
type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// RateLimit returns middleware that limits requests per IP to maxRequests
// within window, answering 429 once exceeded. Expired entries are swept
// every minute until ctx is cancelled.
func RateLimit(ctx context.Context, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	var mu sync.Mutex
	entries := make(map[string]*rateLimitEntry)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				mu.Lock()
				for ip, entry := range entries {
					if now.Sub(entry.windowStart) > window*2 {
						delete(entries, ip)
					}
				}
				mu.Unlock()
			}
		}
	}()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			now := time.Now()

			mu.Lock()
			entry, exists := entries[ip]
			if !exists || now.Sub(entry.windowStart) > window {
				entries[ip] = &rateLimitEntry{count: 1, windowStart: now}
				mu.Unlock()
				return next(c)
			}

			entry.count++
			if entry.count > maxRequests {
				mu.Unlock()
				return apperror.NewTooManyRequests("Rate limit exceeded. Please try again later.")
			}
			mu.Unlock()
			return next(c)
		}
	}
}
