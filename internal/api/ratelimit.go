package api

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests with 429 once the token bucket is empty. A nil
// limiter disables limiting. Health checks are never limited.
func RateLimit(l *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if l == nil || c.Request().URL.Path == "/healthz" {
				return next(c)
			}
			if !l.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "rate limit exceeded", "", "rate_limited")
			}
			return next(c)
		}
	}
}

// NewLimiter returns a limiter allowing rps requests per second with the given
// burst, or nil when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}
