// Package httpapi serves health, metrics, manual cycle triggers and recent records.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go-internship-alerts/internal/models"
	"go-internship-alerts/internal/scheduler"
	"go-internship-alerts/internal/scraper"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxListLimit = 100

type Cycles interface {
	Trigger(ctx context.Context) ([]scraper.Posting, error)
	Status() scheduler.Status
}

type Records interface {
	ListRecent(ctx context.Context, limit int) ([]models.Record, error)
}

type Deps struct {
	Cycles   Cycles
	Records  Records
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Gatherer == nil {
		d.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(d.Logger))

	h := &handlers{deps: d}
	r.GET("/", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	r.POST("/cycles", h.trigger)
	r.GET("/internships", h.recent)
	return r
}

type handlers struct {
	deps Deps
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Internship alerts API is running!",
		"status":  "healthy",
		"cycle":   h.deps.Cycles.Status(),
	})
}

func (h *handlers) trigger(c *gin.Context) {
	// a dropped client must not abort a cycle halfway
	fresh, err := h.deps.Cycles.Trigger(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, scheduler.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cycle failed to start"})
		return
	}
	if fresh == nil {
		fresh = []scraper.Posting{}
	}
	c.JSON(http.StatusOK, gin.H{"new": len(fresh), "postings": fresh})
}

func (h *handlers) recent(c *gin.Context) {
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	recs, err := h.deps.Records.ListRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list internships"})
		return
	}
	if recs == nil {
		recs = []models.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"internships": recs})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}
