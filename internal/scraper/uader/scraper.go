// Package uader configures the listing strategy for the extension office of
// UADER's Facultad de Ciencia y Tecnología.
package uader

import (
	"go-internship-alerts/internal/browser"
	"go-internship-alerts/internal/filter"
	"go-internship-alerts/internal/scraper/listing"

	"go.uber.org/zap"
)

const (
	Name       = "UADER FCyT Extensión"
	Origin     = "UADER"
	ListingURL = "https://fcyt.uader.edu.ar/category/sec-de-extension/"
)

// DefaultConfig is the source as published by the faculty's WordPress site.
func DefaultConfig() listing.Config {
	return listing.Config{
		Name:       Name,
		Origin:     Origin,
		ListingURL: ListingURL,
		Limit:      listing.DefaultLimit,
		Keywords:   append([]string(nil), filter.DefaultKeywords...),
		Selectors:  listing.WordPressSelectors,
	}
}

func New(fetcher browser.Fetcher, logger *zap.Logger, opts ...listing.Option) *listing.Strategy {
	return listing.New(DefaultConfig(), fetcher, logger, opts...)
}
