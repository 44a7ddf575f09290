package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check is one readiness probe, e.g. a database or redis ping.
type Check struct {
	Name     string
	Ping     func(ctx context.Context) error
	Optional bool // failure is reported but does not fail readiness
}

type HealthHandler struct {
	checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}

	for _, c := range h.checks {
		if err := c.Ping(cctx); err != nil {
			results[c.Name] = err.Error()
			if !c.Optional {
				status = http.StatusServiceUnavailable
			}
			continue
		}
		results[c.Name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}

	ctx.JSON(status, gin.H{"status": state, "checks": results})
}
