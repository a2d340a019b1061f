package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/employees/pkg/logger"
)

// Check is a readiness probe for one dependency. Optional checks are
// reported in deps but do not flip the service to not_ready.
type Check struct {
	Name     string
	Optional bool
	Ping     func(ctx context.Context) error
}

const readyTimeout = 2 * time.Second

// RegisterHealth mounts /health (liveness) and /ready (dependency pings).
func RegisterHealth(r gin.IRoutes, startTime time.Time, checks ...Check) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyTimeout)
		defer cancel()

		ready := true
		deps := map[string]bool{}
		for _, chk := range checks {
			err := chk.Ping(ctx)
			deps[chk.Name] = err == nil
			if err != nil {
				logger.Warnf("readiness: %s unavailable: %v", chk.Name, err)
				if !chk.Optional {
					ready = false
				}
			}
		}

		body := gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		c.JSON(http.StatusOK, body)
	})
}
