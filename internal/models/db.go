package models

import (
	"time"
)

// Record is the persisted form of a posting. URL is unique in every store.
type Record struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	// FoundAt is set once, when the record is created.
	FoundAt time.Time `json:"found_at"`
	// IsPublished flips to true once a notification was attempted, never back.
	// A disabled channel or an aborted cycle leaves it false.
	IsPublished bool `json:"is_published"`
}
