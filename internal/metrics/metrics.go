// Package metrics exposes Prometheus counters for scrape cycles.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "internship_alerts"

// Notification outcomes.
const (
	NotifyOK     = "ok"
	NotifyFailed = "failed"
)

// Collector groups the cycle metrics. A nil *Collector is valid and records nothing.
type Collector struct {
	Scraped       *prometheus.CounterVec
	Persisted     *prometheus.CounterVec
	Duplicates    *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	CycleDuration prometheus.Histogram
	LastCycle     prometheus.Gauge
}

// New registers the metrics on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		Scraped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_scraped_total",
			Help:      "Relevant postings returned by each source",
		}, []string{"source"}),
		Persisted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_persisted_total",
			Help:      "Postings stored for the first time",
		}, []string{"source"}),
		Duplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "postings_duplicate_total",
			Help:      "Postings skipped because their URL was already stored",
		}, []string{"source"}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Store failures while checking or creating a posting",
		}, []string{"source"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification attempts by outcome",
		}, []string{"source", "outcome"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full scrape cycle",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		LastCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time the last cycle finished",
		}),
	}
}

func (c *Collector) ObserveScraped(source string, n int) {
	if c == nil {
		return
	}
	c.Scraped.WithLabelValues(source).Add(float64(n))
}

func (c *Collector) IncPersisted(source string) {
	if c == nil {
		return
	}
	c.Persisted.WithLabelValues(source).Inc()
}

func (c *Collector) IncDuplicate(source string) {
	if c == nil {
		return
	}
	c.Duplicates.WithLabelValues(source).Inc()
}

func (c *Collector) IncStoreError(source string) {
	if c == nil {
		return
	}
	c.StoreErrors.WithLabelValues(source).Inc()
}

func (c *Collector) IncNotification(source, outcome string) {
	if c == nil {
		return
	}
	c.Notifications.WithLabelValues(source, outcome).Inc()
}

// ObserveCycle records how long a cycle took and when it ended.
func (c *Collector) ObserveCycle(started, finished time.Time) {
	if c == nil {
		return
	}
	c.CycleDuration.Observe(finished.Sub(started).Seconds())
	c.LastCycle.Set(float64(finished.Unix()))
}
