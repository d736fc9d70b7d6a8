// Package pipeline runs scrape cycles: every strategy in order, dedup by URL
// against the store, persist, then notify only what was newly persisted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-internship-alerts/internal/database"
	"go-internship-alerts/internal/metrics"
	"go-internship-alerts/internal/models"
	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/scraper"

	"go.uber.org/zap"
)

type Service struct {
	strategies []scraper.Strategy
	store      database.Store
	notifier   notifier.Notifier
	metrics    *metrics.Collector
	now        func() time.Time
	logger     *zap.Logger
}

type Option func(*Service)

func WithMetrics(c *metrics.Collector) Option {
	return func(s *Service) { s.metrics = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New keeps strategies in the given order; cycles visit them in that order.
func New(store database.Store, n notifier.Notifier, strategies []scraper.Strategy, logger *zap.Logger, opts ...Option) *Service {
	if n == nil {
		n = notifier.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		strategies: append([]scraper.Strategy(nil), strategies...),
		store:      store,
		notifier:   n,
		now:        time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategies returns the registered sources in cycle order.
func (s *Service) Strategies() []scraper.Strategy {
	return append([]scraper.Strategy(nil), s.strategies...)
}

// RunCycle returns the postings persisted for the first time during this call.
// A failing item or source is logged and skipped; the cycle always completes.
func (s *Service) RunCycle(ctx context.Context) []scraper.Posting {
	started := s.now()
	s.logger.Info("🚀 Starting scraping cycle", zap.Int("sources", len(s.strategies)))

	var fresh []scraper.Posting
	for _, st := range s.strategies {
		if err := ctx.Err(); err != nil {
			s.logger.Warn("⏹️ Cycle cancelled", zap.Error(err))
			break
		}

		name := st.Name()
		postings := s.scrape(ctx, st)
		s.metrics.ObserveScraped(name, len(postings))

		saved := 0
		for _, p := range postings {
			if ctx.Err() != nil {
				s.logger.Warn("⏹️ Cycle cancelled, remaining postings left for the next cycle",
					zap.String("source", name))
				break
			}
			if !s.saveIfNew(ctx, name, p) {
				continue
			}
			saved++
			fresh = append(fresh, p)
			s.notify(ctx, name, p)
		}
		s.logger.Info("✅ Source finished",
			zap.String("source", name),
			zap.Int("relevant", len(postings)),
			zap.Int("new", saved))
	}

	finished := s.now()
	s.metrics.ObserveCycle(started, finished)
	s.logger.Info("🏁 Cycle finished",
		zap.Int("new", len(fresh)),
		zap.Duration("took", finished.Sub(started)))
	return fresh
}

// scrape shields the cycle from a strategy that panics.
func (s *Service) scrape(ctx context.Context, st scraper.Strategy) (out []scraper.Posting) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("❌ Source panicked", zap.String("source", st.Name()), zap.Any("panic", r))
			out = nil
		}
	}()
	s.logger.Info("▶️ Running source", zap.String("source", st.Name()))
	return st.Scrape(ctx)
}

// saveIfNew reports whether this call created the record. Only the creator
// notifies, so a URL is announced once even when cycles overlap.
func (s *Service) saveIfNew(ctx context.Context, source string, p scraper.Posting) bool {
	log := s.logger.With(zap.String("source", source), zap.String("url", p.URL))

	_, err := s.store.FindByURL(ctx, p.URL)
	switch {
	case err == nil:
		s.metrics.IncDuplicate(source)
		log.Debug("already stored")
		return false
	case !errors.Is(err, database.ErrNotFound):
		s.metrics.IncStoreError(source)
		log.Error("❌ Store lookup failed", zap.Error(err))
		return false
	}

	_, err = s.store.Create(ctx, toRecord(p))
	switch {
	case errors.Is(err, database.ErrDuplicate):
		s.metrics.IncDuplicate(source)
		log.Debug("stored concurrently by another cycle")
		return false
	case err != nil:
		s.metrics.IncStoreError(source)
		log.Error("❌ Failed to save posting", zap.Error(err))
		return false
	}

	s.metrics.IncPersisted(source)
	log.Info("💾 New posting saved", zap.String("title", p.Title))
	return true
}

// notify makes one attempt and marks the record published whatever the
// outcome, so a record is never announced twice. A disabled notifier or a
// cancelled context is no attempt and leaves the flag unset.
func (s *Service) notify(ctx context.Context, source string, p scraper.Posting) {
	log := s.logger.With(zap.String("source", source), zap.String("url", p.URL))

	err := s.notifier.Send(ctx, p)
	switch {
	case err == nil:
		s.metrics.IncNotification(source, metrics.NotifyOK)
		log.Info("📨 Notification sent", zap.String("title", p.Title))
	case errors.Is(err, notifier.ErrDisabled):
		s.metrics.IncNotification(source, metrics.NotifyFailed)
		log.Info("🔕 Notifier disabled, posting kept unannounced")
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.metrics.IncNotification(source, metrics.NotifyFailed)
		log.Warn("⏹️ Notification aborted, posting kept unannounced", zap.Error(err))
		return
	default:
		s.metrics.IncNotification(source, metrics.NotifyFailed)
		log.Warn("⚠️ Notification failed", zap.Error(err))
	}

	if err := s.store.MarkPublished(ctx, p.URL); err != nil {
		log.Error("❌ Failed to flag posting as published", zap.Error(err))
	}
}

func toRecord(p scraper.Posting) *models.Record {
	return &models.Record{
		Origin:      p.Origin,
		URL:         p.URL,
		Title:       p.Title,
		ImageURL:    p.ImageURL,
		PublishedAt: p.PublishedAt,
	}
}

// Summary renders the result of a cycle for status messages.
func Summary(fresh []scraper.Posting) string {
	if len(fresh) == 0 {
		return "ℹ️ No new internships this cycle."
	}
	return fmt.Sprintf("✅ Found %d new internships.", len(fresh))
}
