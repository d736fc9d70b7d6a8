// Define the contract every source strategy implements

package scraper

import (
	"context"
	"time"
)

// Posting is a candidate item produced by a strategy, not yet persisted.
// URL is the identity key across the whole system.
type Posting struct {
	Origin      string    `json:"origin"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Strategy is one web source.
type Strategy interface {
	// Name is the human readable source label (e.g. "UADER FCyT Extensión").
	Name() string

	// Scrape never fails: errors are logged and degrade to partial or empty results.
	Scrape(ctx context.Context) []Posting
}
