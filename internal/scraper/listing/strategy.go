// Package listing implements the listing -> filter -> detail strategy shared
// by blog-like sources (WordPress category pages and similar).
package listing

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go-internship-alerts/internal/browser"
	"go-internship-alerts/internal/filter"
	"go-internship-alerts/internal/pubdate"
	"go-internship-alerts/internal/scraper"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// DefaultLimit bounds work per run; older items were seen by previous runs.
const DefaultLimit = 5

type Selectors struct {
	Article      string `yaml:"article"`
	TitleLink    string `yaml:"title_link"`
	Thumbnail    string `yaml:"thumbnail"`
	PostDate     string `yaml:"post_date"`
	PostDateTime string `yaml:"post_date_time"`
}

// WordPressSelectors match the default WordPress theme markup.
var WordPressSelectors = Selectors{
	Article:      "article",
	TitleLink:    ".entry-title a",
	Thumbnail:    ".img-thumbnail img",
	PostDate:     ".post-date",
	PostDateTime: ".post-date time",
}

type Config struct {
	Name       string    `yaml:"name"`
	Origin     string    `yaml:"origin"`
	ListingURL string    `yaml:"listing_url"`
	Limit      int       `yaml:"limit"`
	Keywords   []string  `yaml:"keywords"`
	Selectors  Selectors `yaml:"selectors"`
}

type Strategy struct {
	cfg     Config
	fetcher browser.Fetcher
	matcher *filter.Matcher
	cascade pubdate.Cascade
	now     func() time.Time
	logger  *zap.Logger
}

type Option func(*Strategy)

// WithClock replaces time.Now, used by the date cascade.
func WithClock(now func() time.Time) Option {
	return func(s *Strategy) { s.now = now }
}

func WithCascade(c pubdate.Cascade) Option {
	return func(s *Strategy) { s.cascade = c }
}

func New(cfg Config, fetcher browser.Fetcher, logger *zap.Logger, opts ...Option) *Strategy {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	cfg.Selectors = withDefaults(cfg.Selectors)
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Strategy{
		cfg:     cfg,
		fetcher: fetcher,
		matcher: filter.NewMatcher(cfg.Keywords),
		cascade: pubdate.DefaultCascade,
		now:     time.Now,
		logger:  logger.With(zap.String("source", cfg.Name)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func withDefaults(sel Selectors) Selectors {
	def := WordPressSelectors
	if sel.Article == "" {
		sel.Article = def.Article
	}
	if sel.TitleLink == "" {
		sel.TitleLink = def.TitleLink
	}
	if sel.Thumbnail == "" {
		sel.Thumbnail = def.Thumbnail
	}
	if sel.PostDate == "" {
		sel.PostDate = def.PostDate
	}
	if sel.PostDateTime == "" {
		sel.PostDateTime = def.PostDateTime
	}
	return sel
}

func (s *Strategy) Name() string {
	return s.cfg.Name
}

// Candidate is one listing article and what happened to it.
type Candidate struct {
	RawTitle string
	URL      string
	Relevant bool
	Posting  *scraper.Posting
	Err      error
}

func (s *Strategy) Scrape(ctx context.Context) []scraper.Posting {
	var results []scraper.Posting
	for _, c := range s.Candidates(ctx) {
		if c.Posting != nil {
			results = append(results, *c.Posting)
		}
	}
	return results
}

// Candidates walks the listing and enriches every relevant article. Failures are
// recorded on the candidate and never abort the walk.
func (s *Strategy) Candidates(ctx context.Context) []Candidate {
	s.logger.Info("🔍 Scanning listing", zap.String("url", s.cfg.ListingURL))

	base, err := url.Parse(s.cfg.ListingURL)
	if err != nil {
		s.logger.Error("❌ Invalid listing URL", zap.Error(err))
		return nil
	}

	session, err := s.fetcher.NewSession(ctx)
	if err != nil {
		s.logger.Error("❌ Could not open navigation session", zap.Error(err))
		return nil
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Warn("⚠️ Failed to close navigation session", zap.Error(err))
		}
	}()

	doc, err := session.Open(ctx, s.cfg.ListingURL)
	if err != nil {
		s.logger.Error("❌ Could not load listing", zap.Error(err))
		return nil
	}

	articles := doc.Find(s.cfg.Selectors.Article)
	total := articles.Length()
	limit := min(total, s.cfg.Limit)
	s.logger.Info("📦 Found articles", zap.Int("count", total), zap.Int("processing", limit))

	var candidates []Candidate
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			s.logger.Warn("⚠️ Scrape interrupted", zap.Error(ctx.Err()))
			break
		}

		link := articles.Eq(i).Find(s.cfg.Selectors.TitleLink).First()
		rawTitle := cleanText(link.Text())
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		if rawTitle == "" || href == "" {
			s.logger.Warn("⚠️ Article without title or link, skipping", zap.Int("index", i))
			continue
		}

		c := Candidate{RawTitle: rawTitle, URL: resolve(base, href)}
		if !s.matcher.Matches(rawTitle) {
			s.logger.Debug("Ignored, not an internship", zap.String("title", rawTitle))
			candidates = append(candidates, c)
			continue
		}
		c.Relevant = true
		s.logger.Info("🎯 Internship detected, reading detail", zap.String("title", rawTitle))

		posting, err := s.scrapeDetail(ctx, session, c.URL, rawTitle)
		if err != nil {
			s.logger.Warn("⚠️ Error reading detail", zap.String("url", c.URL), zap.Error(err))
			c.Err = err
		} else {
			c.Posting = &posting
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func (s *Strategy) scrapeDetail(ctx context.Context, session browser.Session, pageURL, fallbackTitle string) (scraper.Posting, error) {
	doc, err := session.Open(ctx, pageURL)
	if err != nil {
		return scraper.Posting{}, fmt.Errorf("open detail: %w", err)
	}

	base, _ := url.Parse(pageURL)

	title := metaContent(doc, "og:title")
	if title == "" {
		title = fallbackTitle
	}

	image := metaContent(doc, "og:image")
	if image == "" {
		image, _ = doc.Find(s.cfg.Selectors.Thumbnail).First().Attr("src")
		image = strings.TrimSpace(image)
	}
	if image != "" && base != nil {
		image = resolve(base, image)
	}

	dateAttr, _ := doc.Find(s.cfg.Selectors.PostDateTime).First().Attr("datetime")
	sig := pubdate.Signals{
		Metadata:   metaContent(doc, "article:published_time"),
		DateAttr:   dateAttr,
		VisualText: cleanText(doc.Find(s.cfg.Selectors.PostDate).First().Text()),
	}
	published := s.cascade.Resolve(sig, s.now())
	s.logger.Debug("📅 Publication date resolved",
		zap.String("url", pageURL),
		zap.String("metadata", sig.Metadata),
		zap.String("datetime", sig.DateAttr),
		zap.String("visual", sig.VisualText),
		zap.Time("published_at", published))

	return scraper.Posting{
		Origin:      s.cfg.Origin,
		URL:         pageURL,
		Title:       title,
		ImageURL:    image,
		PublishedAt: published,
	}, nil
}

func metaContent(doc *goquery.Document, property string) string {
	sel := fmt.Sprintf(`meta[property=%q], meta[name=%q]`, property, property)
	content, _ := doc.Find(sel).First().Attr("content")
	return strings.TrimSpace(content)
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
