package browser

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0 Safari/537.36"

// StaticFetcher loads pages with plain HTTP requests. It fits server-rendered
// sites (WordPress) and needs no browser install.
type StaticFetcher struct {
	client    *http.Client
	userAgent string
}

func NewStaticFetcher(client *http.Client, userAgent string, timeout time.Duration) *StaticFetcher {
	if client == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &StaticFetcher{client: client, userAgent: userAgent}
}

func (f *StaticFetcher) NewSession(_ context.Context) (Session, error) {
	return &staticSession{fetcher: f}, nil
}

type staticSession struct {
	fetcher *StaticFetcher
}

func (s *staticSession) Open(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.fetcher.userAgent)
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9,en;q=0.5")

	res, err := s.fetcher.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, statusError(url, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", url, err)
	}
	return doc, nil
}

func (s *staticSession) Close() error {
	s.fetcher.client.CloseIdleConnections()
	return nil
}

// Close drops pooled connections; the fetcher stays usable.
func (f *StaticFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
