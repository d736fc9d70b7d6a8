package listing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go-internship-alerts/internal/browser"
	"go-internship-alerts/internal/sitetest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

func newStrategy(t *testing.T, site *sitetest.Site, limit int) *Strategy {
	t.Helper()
	cfg := Config{
		Name:       "Test source",
		Origin:     "TEST",
		ListingURL: site.ListingURL(),
		Limit:      limit,
	}
	return New(cfg, browser.NewStaticFetcher(nil, "", 5*time.Second), zaptest.NewLogger(t),
		WithClock(func() time.Time { return fixedNow }))
}

func TestStrategy_Scrape_EnrichesRelevantArticles(t *testing.T) {
	site := sitetest.New(t,
		[]sitetest.Article{
			{Title: "Se abrió una pasantía rentada", Path: "/2025/01/pasantia-rentada/"},
			{Title: "Charla sobre robótica", Path: "/2025/01/charla/"},
			{Title: "Convocatoria PASANTIA en software", Path: "/2025/01/pasantia-software/"},
			{Title: "Jornada de puertas abiertas", Path: "/2025/01/jornada/"},
			{Title: "Torneo de ajedrez", Path: "/2025/01/ajedrez/"},
		},
		map[string]sitetest.Detail{
			"/2025/01/pasantia-rentada/": {
				OGTitle:       "Pasantía rentada en Entre Ríos",
				OGImage:       "https://cdn.example.com/p1.jpg",
				PublishedTime: "2025-01-20T10:00:00-03:00",
				VisualDate:    "15 Dic",
			},
			"/2025/01/pasantia-software/": {
				Thumbnail:  "/wp-content/uploads/p2.png",
				VisualDate: "15 Dic",
			},
		})

	got := newStrategy(t, site, 5).Scrape(context.Background())

	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "TEST", first.Origin)
	assert.Equal(t, site.URL+"/2025/01/pasantia-rentada/", first.URL)
	assert.Equal(t, "Pasantía rentada en Entre Ríos", first.Title)
	assert.Equal(t, "https://cdn.example.com/p1.jpg", first.ImageURL)
	assert.True(t, first.PublishedAt.Equal(time.Date(2025, 1, 20, 13, 0, 0, 0, time.UTC)), "metadata wins: %s", first.PublishedAt)

	second := got[1]
	assert.Equal(t, "Convocatoria PASANTIA en software", second.Title, "falls back to the listing title")
	assert.Equal(t, site.URL+"/wp-content/uploads/p2.png", second.ImageURL)
	assert.Equal(t, time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC), second.PublishedAt)

	assert.Zero(t, site.Hits("/2025/01/charla/"), "non matching articles are never opened")
}

func TestStrategy_Scrape_CapsToLimit(t *testing.T) {
	articles := make([]sitetest.Article, 0, 7)
	details := map[string]sitetest.Detail{}
	for _, p := range []string{"/a/", "/b/", "/c/", "/d/", "/e/", "/f/", "/g/"} {
		articles = append(articles, sitetest.Article{Title: "Pasantía " + p, Path: p})
		details[p] = sitetest.Detail{DateAttr: "2025-01-10"}
	}
	site := sitetest.New(t, articles, details)

	got := newStrategy(t, site, 0).Scrape(context.Background())

	assert.Len(t, got, DefaultLimit)
	assert.Zero(t, site.Hits("/f/"))
	assert.Equal(t, time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC), got[0].PublishedAt)
}

func TestStrategy_Scrape_DetailFailureDropsOnlyThatItem(t *testing.T) {
	site := sitetest.New(t,
		[]sitetest.Article{
			{Title: "Pasantía que no existe", Path: "/gone/"},
			{Title: "Pasantía con error", Path: "/broken/"},
			{Title: "Pasantía válida", Path: "/ok/"},
			{Title: "Pasantía sin enlace"},
		},
		map[string]sitetest.Detail{
			"/broken/": {Status: http.StatusInternalServerError},
			"/ok/":     {},
		})

	candidates := newStrategy(t, site, 5).Candidates(context.Background())

	require.Len(t, candidates, 3, "article without link is skipped")
	assert.ErrorIs(t, candidates[0].Err, browser.ErrStatus)
	assert.ErrorIs(t, candidates[1].Err, browser.ErrStatus)
	require.NotNil(t, candidates[2].Posting)
	assert.Equal(t, fixedNow, candidates[2].Posting.PublishedAt, "no date signal falls back to now")
}

func TestStrategy_Scrape_EmptyListing(t *testing.T) {
	site := sitetest.New(t, nil, nil)

	assert.Empty(t, newStrategy(t, site, 5).Scrape(context.Background()))
}

func TestStrategy_Scrape_UnreachableListing(t *testing.T) {
	site := sitetest.New(t, nil, nil)
	s := New(Config{Name: "x", Origin: "X", ListingURL: site.URL + "/nowhere/"},
		browser.NewStaticFetcher(nil, "", time.Second), zaptest.NewLogger(t))

	assert.Empty(t, s.Scrape(context.Background()))
}

type fakeFetcher struct {
	sessionErr error
	closed     int
	pages      map[string]string
}

func (f *fakeFetcher) NewSession(context.Context) (browser.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &fakeSession{f: f}, nil
}

type fakeSession struct{ f *fakeFetcher }

func (s *fakeSession) Open(_ context.Context, url string) (*goquery.Document, error) {
	html, ok := s.f.pages[url]
	if !ok {
		return nil, errors.New("navigation timeout")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *fakeSession) Close() error {
	s.f.closed++
	return nil
}

func TestStrategy_ReleasesSessionOnEveryPath(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://site.test/list": `<article><h2 class="entry-title"><a href="/p">Pasantía</a></h2></article>`,
	}}
	s := New(Config{Name: "fake", Origin: "FAKE", ListingURL: "https://site.test/list"}, f, zaptest.NewLogger(t))

	got := s.Scrape(context.Background())

	assert.Empty(t, got, "detail timeout drops the item")
	assert.Equal(t, 1, f.closed)

	f.pages = nil
	assert.Empty(t, s.Scrape(context.Background()))
	assert.Equal(t, 2, f.closed, "closed even when the listing fails")
}

func TestStrategy_SessionFailure(t *testing.T) {
	f := &fakeFetcher{sessionErr: errors.New("chromium crashed")}
	s := New(Config{Name: "fake", ListingURL: "https://site.test/list"}, f, nil)

	assert.Empty(t, s.Scrape(context.Background()))
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{Name: "n"}, &fakeFetcher{}, nil)

	assert.Equal(t, "n", s.Name())
	assert.Equal(t, DefaultLimit, s.cfg.Limit)
	assert.Equal(t, WordPressSelectors, s.cfg.Selectors)
}
