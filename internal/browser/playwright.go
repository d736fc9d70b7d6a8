package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

type PlaywrightOptions struct {
	Headless          bool
	NavigationTimeout time.Duration
	UserAgent         string
	// CookiesPath is an optional JSON cookie export added to every session.
	CookiesPath string
	// ScreenshotDir enables a full-page screenshot whenever navigation fails.
	ScreenshotDir string
}

// PlaywrightManager owns one Chromium process shared by all sessions.
type PlaywrightManager struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    PlaywrightOptions
	shots   *ScreenshotDebugger
	logger  *zap.Logger
}

func NewPlaywright(_ context.Context, opts PlaywrightOptions, logger *zap.Logger) (*PlaywrightManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		// Required inside Docker/Linux containers
		Args: []string{"--no-sandbox"},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("could not launch chromium: %w", err)
	}

	pm := &PlaywrightManager{pw: pw, browser: b, opts: opts, logger: logger}
	if opts.ScreenshotDir != "" {
		pm.shots = NewScreenshotDebugger(opts.ScreenshotDir, logger)
	}
	return pm, nil
}

// NewSession opens an isolated browser context.
func (pm *PlaywrightManager) NewSession(_ context.Context) (Session, error) {
	ctxOpts := playwright.BrowserNewContextOptions{
		Locale: playwright.String("es-AR"),
	}
	if pm.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(pm.opts.UserAgent)
	}
	bctx, err := pm.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("could not create browser context: %w", err)
	}
	bctx.SetDefaultNavigationTimeout(float64(pm.opts.NavigationTimeout.Milliseconds()))

	if pm.opts.CookiesPath != "" {
		cookies, err := LoadCookies(pm.opts.CookiesPath)
		if err != nil {
			pm.logger.Warn("⚠️ Could not load cookies, continuing without them",
				zap.String("path", pm.opts.CookiesPath), zap.Error(err))
		} else if err := bctx.AddCookies(cookies); err != nil {
			pm.logger.Warn("⚠️ Could not add cookies to context", zap.Error(err))
		}
	}

	return &playwrightSession{manager: pm, bctx: bctx}, nil
}

func (pm *PlaywrightManager) Close() error {
	var firstErr error
	if pm.browser != nil {
		if err := pm.browser.Close(); err != nil {
			firstErr = err
		}
	}
	if pm.pw != nil {
		if err := pm.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type playwrightSession struct {
	manager *PlaywrightManager
	bctx    playwright.BrowserContext
}

// Open waits for DOMContentLoaded only; the snapshot does not need every asset.
func (s *playwrightSession) Open(ctx context.Context, url string) (*goquery.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page, err := s.bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	defer page.Close()

	res, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.manager.opts.NavigationTimeout.Milliseconds())),
	})
	if err != nil {
		s.capture(page, url)
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}
	if res != nil && res.Status() >= 400 {
		s.capture(page, url)
		return nil, statusError(url, res.Status())
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read content of %s: %w", url, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", url, err)
	}
	return doc, nil
}

func (s *playwrightSession) capture(page playwright.Page, url string) {
	if s.manager.shots == nil {
		return
	}
	_ = s.manager.shots.CaptureAndLog(page, "navigation-failed", "🚨 Navigation failed: "+url)
}

func (s *playwrightSession) Close() error {
	return s.bctx.Close()
}
