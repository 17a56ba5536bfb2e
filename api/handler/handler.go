package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webextract/models"
)

// Extractor runs the tier ladder for one URL. *engine.Orchestrator
// satisfies it.
type Extractor interface {
	Extract(ctx context.Context, url string, maxTier int) (models.ExtractionResult, error)
}

// GateReporter exposes browser gate utilisation.
type GateReporter interface {
	Stats() models.GateStats
}

// BrowserReporter tells whether the browser process is up.
type BrowserReporter interface {
	Running() bool
}

// respondError writes a rejected request.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}
