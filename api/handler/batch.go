package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/use-agent/webextract/config"
	"github.com/use-agent/webextract/models"
	"golang.org/x/sync/errgroup"
)

// PostBatch returns a handler for POST /api/v1/batch/extract.
//
// Every URL goes through its own Extract call, at most cfg.Concurrency at
// a time. The handler waits for all of them and returns the results in
// request order.
func PostBatch(ex Extractor, cfg config.BatchConfig, defaultMaxTier int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.Defaults(defaultMaxTier)

		if len(req.URLs) > cfg.MaxURLs {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput,
				fmt.Sprintf("maximum %d URLs per batch", cfg.MaxURLs))
			return
		}
		for _, u := range req.URLs {
			if err := models.ValidateURL(u); err != nil {
				respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput,
					fmt.Sprintf("%s: %v", u, err))
				return
			}
		}

		start := time.Now()
		results := make([]models.ExtractionResult, len(req.URLs))

		g, ctx := errgroup.WithContext(c.Request.Context())
		g.SetLimit(cfg.Concurrency)
		for i, u := range req.URLs {
			g.Go(func() error {
				res, err := ex.Extract(ctx, u, req.MaxTier)
				if err != nil {
					res = models.NewFailure(u, err.Error(), 0, 0)
				}
				results[i] = res
				return nil
			})
		}
		_ = g.Wait()

		succeeded := lo.CountBy(results, func(r models.ExtractionResult) bool { return r.Success })
		slog.Info("batch finished",
			"total", len(results),
			"succeeded", succeeded,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)

		c.JSON(http.StatusOK, models.BatchResponse{
			Total:     len(results),
			Succeeded: succeeded,
			Results:   results,
		})
	}
}
