package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health, running every registered dependency check
func Health(deps *Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := make(gin.H, len(deps.HealthChecks))
		for name, check := range deps.HealthChecks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}

		health := "healthy"
		if status != http.StatusOK {
			health = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":  health,
			"service": deps.ServiceName,
			"checks":  checks,
		})
	}
}
