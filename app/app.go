// Package app wires configuration into a ready-to-use extraction stack.
// Both binaries build on it.
package app

import (
	"io"
	"log/slog"

	"github.com/use-agent/webextract/config"
	"github.com/use-agent/webextract/engine"
	"github.com/use-agent/webextract/models"
	"github.com/use-agent/webextract/scraper"
)

// App holds the long-lived pieces behind Extract.
type App struct {
	Config       *config.Config
	Orchestrator *engine.Orchestrator
	Gate         *engine.Gate
	Scraper      *scraper.Scraper
}

// New builds the four-tier ladder from cfg. The browser is not launched
// until a browser tier first needs it.
func New(cfg *config.Config) (*App, error) {
	sc := scraper.New(cfg.Browser, cfg.Tiers.BlockedResourceTypes)
	gate := engine.NewGate(cfg.Browser.MaxBrowsers)

	httpEngine := engine.NewHTTPEngine()
	readability := engine.NewReadabilityEngine(httpEngine, engine.NewWorkerPool(cfg.Tiers.ReadabilityWorkers))

	orch, err := engine.NewOrchestrator(gate,
		engine.Tier{
			Level:   1,
			Method:  models.MethodHTTP,
			Engine:  httpEngine,
			Timeout: cfg.Tiers.HTTPTimeout,
		},
		engine.Tier{
			Level:   2,
			Method:  models.MethodReadability,
			Engine:  readability,
			Timeout: cfg.Tiers.ReadabilityTimeout,
		},
		engine.Tier{
			Level:                3,
			Method:               models.MethodBrowserNoJS,
			Engine:               engine.NewBrowserEngine(sc.Render, false),
			Timeout:              cfg.Tiers.BrowserTimeout,
			Gated:                true,
			ReadabilityFallback:  true,
			DetectJavaScriptWall: true,
		},
		engine.Tier{
			Level:               4,
			Method:              models.MethodBrowser,
			Engine:              engine.NewBrowserEngine(sc.Render, true),
			Timeout:             cfg.Tiers.BrowserJSTimeout,
			Gated:               true,
			ReadabilityFallback: true,
		},
	)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:       cfg,
		Orchestrator: orch,
		Gate:         gate,
		Scraper:      sc,
	}, nil
}

// Close shuts the browser down if it was started.
func (a *App) Close() {
	a.Scraper.Close()
}

// InitLogger configures slog based on the LogConfig, writing to w.
func InitLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
