package middleware

import (
	"log/slog"
	"net/http"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit creates a per-IP rate limiting middleware from a formatted rate
// such as "5-M" (five per minute). Each call gets its own in-memory store, so
// differently limited route groups do not share counters.
func RateLimit(formatted string) gin.HandlerFunc {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		panic("invalid rate limit format: " + formatted)
	}
	instance := limiter.New(memory.NewStore(), rate)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		lctx, err := instance.Get(c.Request.Context(), ip)
		if err != nil {
			GetLoggerFromCtx(c.Request.Context()).Error("Rate limit check failed",
				slog.String("ip", ip), slog.String("error", err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    apperrors.CodeInternal,
				"message": "internal server error",
			})
			return
		}

		if lctx.Reached {
			GetLoggerFromCtx(c.Request.Context()).Warn("Rate limit exceeded",
				slog.String("ip", ip),
				slog.Int64("limit", lctx.Limit),
				slog.Int64("remaining", lctx.Remaining))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    apperrors.CodeTooManyRequests,
				"message": "too many requests, try again later",
			})
			return
		}

		c.Next()
	}
}
