package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// registerHomeRoutes sets up the health check endpoints.
func registerHomeRoutes(r *gin.Engine, pool *pgxpool.Pool, enableDBCheck bool) {
	r.GET("/health", func(c *gin.Context) {
		if enableDBCheck && pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
