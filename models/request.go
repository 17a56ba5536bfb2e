package models

import (
	"fmt"
	"net/url"
)

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required,url"`

	// MaxTier caps escalation (1-4). Zero means the configured default.
	MaxTier int `json:"max_tier,omitempty" binding:"omitempty,min=1,max=4"`
}

// BatchRequest is the payload for POST /api/v1/batch/extract.
type BatchRequest struct {
	// URLs is the list of target pages. Required.
	URLs []string `json:"urls" binding:"required,min=1,dive,required,url"`

	// MaxTier applies to every URL in the batch.
	MaxTier int `json:"max_tier,omitempty" binding:"omitempty,min=1,max=4"`
}

// Defaults fills unset fields.
func (r *ExtractRequest) Defaults(maxTier int) {
	if r.MaxTier == 0 {
		r.MaxTier = maxTier
	}
}

// Defaults fills unset fields.
func (r *BatchRequest) Defaults(maxTier int) {
	if r.MaxTier == 0 {
		r.MaxTier = maxTier
	}
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return NewExtractError(ErrCodeInvalidInput, "invalid url", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return NewExtractError(ErrCodeInvalidInput, fmt.Sprintf("unsupported url scheme %q", u.Scheme), nil)
	}
	if u.Host == "" {
		return NewExtractError(ErrCodeInvalidInput, "url has no host", nil)
	}
	return nil
}
