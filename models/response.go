package models

// ErrorResponse is returned for requests rejected before extraction starts.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}

// BatchResponse is the response for POST /api/v1/batch/extract.
// Results are in the same order as the requested URLs.
type BatchResponse struct {
	Total     int                `json:"total"`
	Succeeded int                `json:"succeeded"`
	Results   []ExtractionResult `json:"results"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	Browser   string    `json:"browser"` // "running" or "not_started"
	GateStats GateStats `json:"gate_stats"`
	Version   string    `json:"version"`
}

// GateStats reports the state of the browser concurrency gate.
type GateStats struct {
	MaxBrowsers    int `json:"max_browsers"`
	ActiveBrowsers int `json:"active_browsers"`
}
