// Package app wires configuration into the components shared by the binaries.
package app

import (
	"context"
	"fmt"

	"go-internship-alerts/internal/browser"
	"go-internship-alerts/internal/config"
	"go-internship-alerts/internal/database"
	"go-internship-alerts/internal/logger"
	"go-internship-alerts/internal/metrics"
	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/pipeline"
	"go-internship-alerts/internal/scraper"
	"go-internship-alerts/internal/scraper/listing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// App holds the long-lived resources of one process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Store    database.Store
	Fetcher  browser.Fetcher
	Notifier notifier.Notifier
	Metrics  *metrics.Collector
	Pipeline *pipeline.Service

	closers []func() error
}

func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Development})
}

// New opens the store, starts the navigation engine and builds the pipeline.
// reg may be nil to skip metrics.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{Config: cfg, Logger: logger.OrNop(log)}

	store, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	fetcher, closeFetcher, err := NewFetcher(ctx, cfg, a.Logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Fetcher = fetcher
	a.closers = append(a.closers, closeFetcher)

	n, err := notifier.New(cfg.Notifier, a.Logger.Named("notifier"))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init notifier: %w", err)
	}
	a.Notifier = n

	if reg != nil {
		a.Metrics = metrics.New(reg)
	}
	a.Pipeline = pipeline.New(store, n, Strategies(cfg, fetcher, a.Logger), a.Logger.Named("pipeline"),
		pipeline.WithMetrics(a.Metrics))
	return a, nil
}

// NewFetcher builds the configured engine behind the per-host rate limiter.
// The returned func releases the engine.
func NewFetcher(ctx context.Context, cfg *config.Config, log *zap.Logger) (browser.Fetcher, func() error, error) {
	limiter := browser.NewHostLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	switch cfg.Browser.Engine {
	case config.EngineHTTP:
		f := browser.NewStaticFetcher(nil, cfg.Browser.UserAgent, cfg.Browser.NavigationTimeout)
		return browser.Limited(f, limiter), f.Close, nil
	default:
		pm, err := browser.NewPlaywright(ctx, browser.PlaywrightOptions{
			Headless:          cfg.Browser.IsHeadless(),
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			UserAgent:         cfg.Browser.UserAgent,
			CookiesPath:       cfg.Browser.CookiesPath,
			ScreenshotDir:     cfg.Browser.ScreenshotDir,
		}, log.Named("browser"))
		if err != nil {
			return nil, nil, fmt.Errorf("init playwright: %w", err)
		}
		return browser.Limited(pm, limiter), pm.Close, nil
	}
}

// Strategies builds one listing strategy per configured source, in order.
func Strategies(cfg *config.Config, fetcher browser.Fetcher, log *zap.Logger) []scraper.Strategy {
	out := make([]scraper.Strategy, 0, len(cfg.Sources))
	for _, src := range cfg.Sources {
		out = append(out, listing.New(src, fetcher, log.Named("scraper")))
	}
	return out
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
