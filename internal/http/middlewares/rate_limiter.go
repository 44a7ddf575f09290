package middlewares

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/househub/internal/ratelimit"
	"github.com/gin-gonic/gin"
)

// RateLimit enforces limiter per scope and derived key. Limiter errors let
// the request through.
func RateLimit(limiter ratelimit.Limiter, scope string, keyFn func(*gin.Context) string, onReject func(scope string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		d, err := limiter.Allow(c.Request.Context(), scope+":"+key)
		if err != nil {
			slog.Default().WarnContext(c.Request.Context(), "rate limiter unavailable, allowing request",
				"scope", scope, "err", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(int((d.RetryAfter + time.Second - 1) / time.Second)))
			if onReject != nil {
				onReject(scope)
			}
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

// For authenticated endpoints: rate limit by user id if available
func KeyByUserOrIP(c *gin.Context) string {
	id, ok := UserIDFromContext(c)

	if ok && id != 0 {
		return "user:" + strconv.FormatInt(id, 10)
	}

	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin’s ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
