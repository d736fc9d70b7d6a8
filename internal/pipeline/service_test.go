package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-internship-alerts/internal/browser"
	"go-internship-alerts/internal/database"
	"go-internship-alerts/internal/metrics"
	"go-internship-alerts/internal/models"
	"go-internship-alerts/internal/notifier"
	"go-internship-alerts/internal/scraper"
	"go-internship-alerts/internal/scraper/listing"
	"go-internship-alerts/internal/sitetest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type staticStrategy struct {
	name     string
	postings []scraper.Posting
	panics   bool
	calls    int
	mu       sync.Mutex
}

func (s *staticStrategy) Name() string { return s.name }

func (s *staticStrategy) Scrape(context.Context) []scraper.Posting {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panics {
		panic("selector exploded")
	}
	return append([]scraper.Posting(nil), s.postings...)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, p scraper.Posting) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, p.URL)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// flakyStore fails lookups for one URL and delegates everything else.
type flakyStore struct {
	database.Store
	failURL string
}

func (f *flakyStore) FindByURL(ctx context.Context, url string) (*models.Record, error) {
	if url == f.failURL {
		return nil, errors.New("connection reset by peer")
	}
	return f.Store.FindByURL(ctx, url)
}

func posting(url string) scraper.Posting {
	return scraper.Posting{
		Origin:      "UADER",
		URL:         url,
		Title:       "Pasantía " + url,
		PublishedAt: time.Date(2025, 12, 17, 0, 0, 0, 0, time.UTC),
	}
}

func TestRunCycle_PersistsAndNotifiesNewOnly(t *testing.T) {
	store := database.NewMemoryStore()
	n := &recordingNotifier{}
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a"), posting("https://b")}}
	svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t))

	first := svc.RunCycle(context.Background())
	second := svc.RunCycle(context.Background())

	assert.Len(t, first, 2)
	assert.Empty(t, second, "unchanged listing yields nothing new")
	assert.Equal(t, []string{"https://a", "https://b"}, n.sent)

	rec, err := store.FindByURL(context.Background(), "https://a")
	require.NoError(t, err)
	assert.True(t, rec.IsPublished)
	assert.Equal(t, time.Date(2025, 12, 17, 0, 0, 0, 0, time.UTC), rec.PublishedAt)
}

func TestRunCycle_StrategiesRunInOrder(t *testing.T) {
	n := &recordingNotifier{}
	first := &staticStrategy{name: "first", postings: []scraper.Posting{posting("https://1")}}
	second := &staticStrategy{name: "second", postings: []scraper.Posting{posting("https://2"), posting("https://1")}}
	svc := New(database.NewMemoryStore(), n, []scraper.Strategy{first, second}, zaptest.NewLogger(t))

	got := svc.RunCycle(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, "https://1", got[0].URL)
	assert.Equal(t, "https://2", got[1].URL)
	assert.Equal(t, []string{"https://1", "https://2"}, n.sent, "a URL seen in an earlier source is not new")
}

func TestRunCycle_ConcurrentCyclesNotifyOnce(t *testing.T) {
	store := database.NewMemoryStore()
	n := &recordingNotifier{}
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a"), posting("https://b"), posting("https://c")}}
	svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := svc.RunCycle(context.Background())
			mu.Lock()
			total += len(got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, total)
	assert.Equal(t, 3, n.count())
}

func TestRunCycle_StoreFailureSkipsOnlyThatItem(t *testing.T) {
	store := &flakyStore{Store: database.NewMemoryStore(), failURL: "https://broken"}
	n := &recordingNotifier{}
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://broken"), posting("https://ok")}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t), WithMetrics(m))

	got := svc.RunCycle(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, "https://ok", got[0].URL)
	assert.Equal(t, []string{"https://ok"}, n.sent)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrors.WithLabelValues("src")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Persisted.WithLabelValues("src")))
}

func TestRunCycle_NotifyFailureKeepsRecord(t *testing.T) {
	store := database.NewMemoryStore()
	n := &recordingNotifier{err: errors.New("webhook down")}
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a")}}
	m := metrics.New(prometheus.NewRegistry())
	svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t), WithMetrics(m))

	got := svc.RunCycle(context.Background())
	require.Len(t, got, 1)

	rec, err := store.FindByURL(context.Background(), "https://a")
	require.NoError(t, err)
	assert.True(t, rec.IsPublished, "a failed attempt still counts as the one attempt")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("src", metrics.NotifyFailed)))

	assert.Empty(t, svc.RunCycle(context.Background()))
	assert.Equal(t, 1, n.count(), "never retried")
}

func TestRunCycle_PanickingSourceDoesNotStopOthers(t *testing.T) {
	n := &recordingNotifier{}
	bad := &staticStrategy{name: "bad", panics: true}
	good := &staticStrategy{name: "good", postings: []scraper.Posting{posting("https://a")}}
	svc := New(database.NewMemoryStore(), n, []scraper.Strategy{bad, good}, zaptest.NewLogger(t))

	got := svc.RunCycle(context.Background())

	assert.Len(t, got, 1)
	assert.Equal(t, 1, good.calls)
}

func TestRunCycle_DisabledNotifierLeavesFlagUnset(t *testing.T) {
	store := database.NewMemoryStore()
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a")}}
	svc := New(store, nil, []scraper.Strategy{st}, zaptest.NewLogger(t))

	assert.Len(t, svc.RunCycle(context.Background()), 1)
	rec, err := store.FindByURL(context.Background(), "https://a")
	require.NoError(t, err)
	assert.False(t, rec.IsPublished, "nothing was sent")

	assert.Empty(t, svc.RunCycle(context.Background()), "still stored only once")
}

// cancellingStrategy cancels the cycle while its listing is being read.
type cancellingStrategy struct {
	cancel   context.CancelFunc
	postings []scraper.Posting
}

func (c *cancellingStrategy) Name() string { return "cancelling" }

func (c *cancellingStrategy) Scrape(context.Context) []scraper.Posting {
	c.cancel()
	return c.postings
}

func TestRunCycle_CancelledMidScrapeKeepsPostingsForNextCycle(t *testing.T) {
	store := database.NewMemoryStore()
	n := &recordingNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	st := &cancellingStrategy{cancel: cancel, postings: []scraper.Posting{posting("https://a"), posting("https://b")}}
	svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t))

	assert.Empty(t, svc.RunCycle(ctx))
	assert.Zero(t, n.count())
	_, err := store.FindByURL(context.Background(), "https://a")
	assert.ErrorIs(t, err, database.ErrNotFound)

	st.cancel = func() {}
	got := svc.RunCycle(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, []string{"https://a", "https://b"}, n.sent)
	rec, err := store.FindByURL(context.Background(), "https://a")
	require.NoError(t, err)
	assert.True(t, rec.IsPublished)
}

func TestRunCycle_AbortedSendLeavesFlagUnset(t *testing.T) {
	for _, abort := range []error{context.Canceled, context.DeadlineExceeded} {
		t.Run(abort.Error(), func(t *testing.T) {
			store := database.NewMemoryStore()
			n := &recordingNotifier{err: fmt.Errorf("post webhook: %w", abort)}
			st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a")}}
			svc := New(store, n, []scraper.Strategy{st}, zaptest.NewLogger(t))

			require.Len(t, svc.RunCycle(context.Background()), 1)

			rec, err := store.FindByURL(context.Background(), "https://a")
			require.NoError(t, err)
			assert.False(t, rec.IsPublished)
		})
	}
}

func TestRunCycle_CancelledContextStopsBeforeSources(t *testing.T) {
	st := &staticStrategy{name: "src", postings: []scraper.Posting{posting("https://a")}}
	svc := New(database.NewMemoryStore(), &recordingNotifier{}, []scraper.Strategy{st}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, svc.RunCycle(ctx))
	assert.Zero(t, st.calls)
}

func TestRunCycle_EndToEnd(t *testing.T) {
	site := sitetest.New(t,
		[]sitetest.Article{
			{Title: "Se abrió una pasantía rentada", Path: "/2025/11/pasantia-rentada/"},
			{Title: "Charla sobre robótica", Path: "/2025/11/charla/"},
			{Title: "Convocatoria FCyT: pasantía en sistemas", Path: "/2025/11/sistemas/"},
			{Title: "Jornada de puertas abiertas", Path: "/2025/11/jornada/"},
			{Title: "Torneo de ajedrez", Path: "/2025/11/ajedrez/"},
		},
		map[string]sitetest.Detail{
			"/2025/11/pasantia-rentada/": {
				OGTitle:       "Pasantía rentada en el Ministerio",
				OGImage:       "https://cdn.example.com/og.jpg",
				PublishedTime: "2025-11-20T09:00:00-03:00",
			},
			"/2025/11/sistemas/": {
				VisualDate: "15 Dic",
			},
		})

	now := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	strategy := listing.New(listing.Config{
		Name:       "UADER FCyT Extensión",
		Origin:     "UADER",
		ListingURL: site.ListingURL(),
	}, browser.NewStaticFetcher(nil, "", 5*time.Second), zaptest.NewLogger(t),
		listing.WithClock(func() time.Time { return now }))

	store := database.NewMemoryStore()
	n := &recordingNotifier{}
	svc := New(store, n, []scraper.Strategy{strategy}, zaptest.NewLogger(t))

	got := svc.RunCycle(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, 2, n.count())

	og, err := store.FindByURL(context.Background(), site.URL+"/2025/11/pasantia-rentada/")
	require.NoError(t, err)
	assert.Equal(t, "Pasantía rentada en el Ministerio", og.Title)
	assert.True(t, og.PublishedAt.Equal(time.Date(2025, 11, 20, 12, 0, 0, 0, time.UTC)))

	visual, err := store.FindByURL(context.Background(), site.URL+"/2025/11/sistemas/")
	require.NoError(t, err)
	assert.True(t, visual.PublishedAt.Equal(time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)))

	assert.Empty(t, svc.RunCycle(context.Background()))
	assert.Equal(t, 2, n.count())
}

func TestSummary(t *testing.T) {
	assert.Contains(t, Summary(nil), "No new")
	assert.Contains(t, Summary([]scraper.Posting{posting("https://a")}), "1 new")
}

var _ notifier.Notifier = (*recordingNotifier)(nil)
