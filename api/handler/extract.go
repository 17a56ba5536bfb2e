package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/webextract/models"
)

// Extract returns a handler for POST /api/v1/extract.
//
// The response is the ExtractionResult with HTTP 200 whether or not
// extraction succeeded. Only malformed requests get a 400.
func Extract(ex Extractor, defaultMaxTier int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}
		req.Defaults(defaultMaxTier)
		if err := models.ValidateURL(req.URL); err != nil {
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}

		res, err := ex.Extract(c.Request.Context(), req.URL, req.MaxTier)
		if err != nil {
			var ee *models.ExtractError
			if errors.As(err, &ee) {
				respondError(c, http.StatusBadRequest, ee.Code, ee.Error())
				return
			}
			respondError(c, http.StatusBadRequest, models.ErrCodeInvalidInput, err.Error())
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
