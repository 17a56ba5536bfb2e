package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webextract/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Reports gate utilisation and degrades status when every browser slot is
// taken.
func Health(gate GateReporter, browser BrowserReporter, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := gate.Stats()

		status := "healthy"
		if stats.MaxBrowsers > 0 && stats.ActiveBrowsers >= stats.MaxBrowsers {
			status = "degraded"
		}

		browserState := "not_started"
		if browser != nil && browser.Running() {
			browserState = "running"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Browser:   browserState,
			GateStats: stats,
			Version:   Version,
		})
	}
}
