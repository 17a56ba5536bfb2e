package engine

import (
	"context"
	"time"
)

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "readability", "browser-js").
	Name() string

	// Fetch retrieves the page for the given request. A returned error is
	// a tier failure; it never ends the whole extraction.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL string

	// Timeout is the tier budget. The caller's context already carries
	// it as a deadline; engines may use it to size their own waits.
	Timeout time.Duration

	// JavaScript asks browser engines to execute page scripts.
	JavaScript bool
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	// HTML is the raw or rendered document. Empty when PreExtracted.
	HTML string

	// Title is the engine's own idea of the title, used only when the
	// content extractor finds none.
	Title string

	// Text is the body already extracted by the engine's own backend.
	Text string

	// PreExtracted marks results whose Title/Text come from the engine
	// instead of the content extractor.
	PreExtracted bool

	StatusCode int
	FinalURL   string
	EngineName string
}
