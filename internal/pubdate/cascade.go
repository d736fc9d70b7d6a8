// Package pubdate turns the inconsistent date signals of a detail page into
// exactly one publication timestamp.
package pubdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Signals are the raw date hints read from a detail page. Empty means absent.
type Signals struct {
	// Metadata is a machine readable timestamp, e.g. article:published_time.
	Metadata string
	// DateAttr is the datetime attribute of a <time> element, e.g. "2025-12-17".
	DateAttr string
	// VisualText is free text shown near the post, e.g. "12 Nov".
	VisualText string
}

// Resolver tries to derive a date from the signals. ok=false hands over to the
// next resolver of the cascade.
type Resolver func(sig Signals, now time.Time) (t time.Time, ok bool)

// Cascade tries each resolver in order; the first success wins.
type Cascade []Resolver

// DefaultCascade is metadata, then semantic markup, then visual text.
var DefaultCascade = Cascade{FromMetadata, FromDateAttr, FromVisualText}

// Resolve never fails: when every resolver gives up it returns now.
func (c Cascade) Resolve(sig Signals, now time.Time) time.Time {
	for _, r := range c {
		if t, ok := r(sig, now); ok && !t.IsZero() {
			return t
		}
	}
	return now
}

// Resolve runs DefaultCascade.
func Resolve(sig Signals, now time.Time) time.Time {
	return DefaultCascade.Resolve(sig, now)
}

var metadataLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// FromMetadata parses an ISO-like datetime.
func FromMetadata(sig Signals, _ time.Time) (time.Time, bool) {
	raw := strings.TrimSpace(sig.Metadata)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range metadataLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

var dateAttrRegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})`)

// FromDateAttr builds UTC midnight of the calendar date component-wise, so the
// evaluator's local zone can never shift the day.
func FromDateAttr(sig Signals, _ time.Time) (time.Time, bool) {
	m := dateAttrRegex.FindStringSubmatch(strings.TrimSpace(sig.DateAttr))
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return calendarDate(year, month, day, time.UTC)
}

// calendarDate rejects components time.Date would silently normalize (Feb 30).
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
