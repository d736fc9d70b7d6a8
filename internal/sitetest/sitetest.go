// Package sitetest serves fake WordPress-like listing and detail pages for tests.
package sitetest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Article is one entry of the listing page.
type Article struct {
	Title string
	// Path is the href of the title link; relative paths are served by the site.
	Path string
}

// Detail is the markup of a detail page.
type Detail struct {
	OGTitle       string
	OGImage       string
	PublishedTime string
	DateAttr      string
	VisualDate    string
	Thumbnail     string
	// Status other than 0 or 200 is returned instead of the page.
	Status int
}

type Site struct {
	*httptest.Server

	mu       sync.Mutex
	articles []Article
	details  map[string]Detail
	hits     map[string]int
}

const ListingPath = "/category/sec-de-extension/"

func New(t *testing.T, articles []Article, details map[string]Detail) *Site {
	t.Helper()
	s := &Site{articles: articles, details: details, hits: map[string]int{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Server.Close)
	return s
}

func (s *Site) ListingURL() string {
	return s.URL + ListingPath
}

// Hits reports how many times path was requested.
func (s *Site) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *Site) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if r.URL.Path == ListingPath {
		fmt.Fprint(w, s.listingHTML())
		return
	}
	d, ok := s.details[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	if d.Status != 0 && d.Status != http.StatusOK {
		http.Error(w, http.StatusText(d.Status), d.Status)
		return
	}
	fmt.Fprint(w, detailHTML(d))
}

func (s *Site) listingHTML() string {
	var b strings.Builder
	b.WriteString("<html><body><main>")
	for _, a := range s.articles {
		b.WriteString(`<article class="post">`)
		if a.Path != "" {
			fmt.Fprintf(&b, `<h2 class="entry-title"><a href="%s">%s</a></h2>`, a.Path, a.Title)
		} else {
			fmt.Fprintf(&b, `<h2 class="entry-title">%s</h2>`, a.Title)
		}
		b.WriteString(`<div class="entry-summary"><p>Resumen</p></div></article>`)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func detailHTML(d Detail) string {
	var b strings.Builder
	b.WriteString("<html><head>")
	if d.OGTitle != "" {
		fmt.Fprintf(&b, `<meta property="og:title" content="%s">`, d.OGTitle)
	}
	if d.OGImage != "" {
		fmt.Fprintf(&b, `<meta property="og:image" content="%s">`, d.OGImage)
	}
	if d.PublishedTime != "" {
		fmt.Fprintf(&b, `<meta property="article:published_time" content="%s">`, d.PublishedTime)
	}
	b.WriteString("</head><body><article>")
	if d.Thumbnail != "" {
		fmt.Fprintf(&b, `<div class="img-thumbnail"><img src="%s"></div>`, d.Thumbnail)
	}
	if d.DateAttr != "" || d.VisualDate != "" {
		b.WriteString(`<div class="post-date">`)
		if d.DateAttr != "" {
			fmt.Fprintf(&b, `<time datetime="%s">%s</time>`, d.DateAttr, d.VisualDate)
		} else {
			b.WriteString(d.VisualDate)
		}
		b.WriteString(`</div>`)
	}
	b.WriteString("<p>Contenido</p></article></body></html>")
	return b.String()
}
