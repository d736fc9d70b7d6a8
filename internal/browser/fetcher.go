// Package browser is the navigation layer used by the scraping strategies.
// Every page is handed back as a goquery DOM snapshot, whatever engine loaded it.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrStatus is returned when a page answers with an HTTP error status.
var ErrStatus = errors.New("unexpected http status")

// Session is a scoped navigation context. Close must be called on every path.
type Session interface {
	// Open navigates to url in a fresh page and returns its DOM.
	Open(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

// Fetcher creates isolated sessions.
type Fetcher interface {
	NewSession(ctx context.Context) (Session, error)
}

func statusError(url string, status int) error {
	return fmt.Errorf("%w %d for %s", ErrStatus, status, url)
}

// Limited makes every Open of f wait on the per-host limiter first.
func Limited(f Fetcher, limiter *HostLimiter) Fetcher {
	if limiter == nil {
		return f
	}
	return &limitedFetcher{next: f, limiter: limiter}
}

type limitedFetcher struct {
	next    Fetcher
	limiter *HostLimiter
}

func (f *limitedFetcher) NewSession(ctx context.Context) (Session, error) {
	s, err := f.next.NewSession(ctx)
	if err != nil {
		return nil, err
	}
	return &limitedSession{Session: s, limiter: f.limiter}, nil
}

type limitedSession struct {
	Session
	limiter *HostLimiter
}

func (s *limitedSession) Open(ctx context.Context, url string) (*goquery.Document, error) {
	if err := s.limiter.WaitURL(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return s.Session.Open(ctx, url)
}
