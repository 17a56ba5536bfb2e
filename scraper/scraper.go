package scraper

import (
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/webextract/config"
	"github.com/use-agent/webextract/models"
)

// Scraper manages the browser lifecycle and the page pool used by the
// browser tiers. The browser is launched on first use, so a missing
// Chromium only fails the browser tiers. It is safe for concurrent use.
type Scraper struct {
	browserCfg   config.BrowserConfig
	blockedTypes []string

	mu       sync.Mutex
	browser  *rod.Browser
	pagePool rod.Pool[rod.Page]

	activePages atomic.Int32
}

// New creates a Scraper. Nothing is launched until the first Render.
// blockedTypes are the resource types blocked while page scripts run.
func New(browserCfg config.BrowserConfig, blockedTypes []string) *Scraper {
	return &Scraper{
		browserCfg:   browserCfg,
		blockedTypes: blockedTypes,
	}
}

// Running reports whether the browser has been launched.
func (s *Scraper) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

// ActivePages returns the number of pages currently rendering.
func (s *Scraper) ActivePages() int {
	return int(s.activePages.Load())
}

// ensureBrowser returns the running browser, launching it if needed.
// A failed launch is retried on the next call.
func (s *Scraper) ensureBrowser() (*rod.Browser, rod.Pool[rod.Page], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		return s.browser, s.pagePool, nil
	}

	bin, err := s.resolveBin()
	if err != nil {
		return nil, nil, err
	}

	l := launcher.New().
		Bin(bin).
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, models.NewExtractError(
			models.ErrCodeBackendUnavailable,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, models.NewExtractError(
			models.ErrCodeBackendUnavailable,
			"failed to connect to browser",
			err,
		)
	}

	s.browser = browser
	s.pagePool = rod.NewPagePool(s.browserCfg.MaxBrowsers)
	slog.Info("page pool created", "maxPages", s.browserCfg.MaxBrowsers)
	return s.browser, s.pagePool, nil
}

// resolveBin finds the Chromium binary without downloading one.
func (s *Scraper) resolveBin() (string, error) {
	if bin := s.browserCfg.BrowserBin; bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return "", models.NewExtractError(
				models.ErrCodeBackendUnavailable,
				"browser binary not found",
				err,
			)
		}
		return bin, nil
	}
	if bin, ok := launcher.LookPath(); ok {
		return bin, nil
	}
	return "", models.NewExtractError(
		models.ErrCodeBackendUnavailable,
		"no chromium browser found on this system",
		nil,
	)
}

// dropBrowser forgets browser if it is still the current one, so the next
// render launches a fresh process. Pages still rendering on the old
// browser return to the old pool and are discarded with it.
func (s *Scraper) dropBrowser(browser *rod.Browser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != browser {
		return
	}
	slog.Warn("browser connection lost, will relaunch on next render")
	_ = rod.Try(func() { _ = browser.Close() })
	s.browser = nil
	s.pagePool = nil
}

// Close drains the page pool and kills the browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return
	}
	slog.Info("scraper shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	slog.Info("scraper shutting down: closing browser")
	if err := s.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	s.browser = nil
	slog.Info("scraper shutdown complete")
}
