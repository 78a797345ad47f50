// Package metrics collects prometheus metrics for pipeline runs and tracks
// run health for the monitoring endpoint.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records per-run pipeline metrics.
type Collector struct {
	candidates      prometheus.Counter
	outcomes        *prometheus.CounterVec
	chunks          prometheus.Counter
	fallbacks       prometheus.Counter
	contentTier     *prometheus.CounterVec
	imageTier       *prometheus.CounterVec
	mediaFailures   prometheus.Counter
	articleDuration prometheus.Histogram

	mu            sync.RWMutex
	lastRunTime   time.Time
	lastErrorTime time.Time
	lastError     string
	healthy       bool
	lastSummary   string
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedpress_candidates_total",
			Help: "Candidates selected for processing",
		}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedpress_articles_total",
			Help: "Processed articles by outcome status",
		}, []string{"status"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedpress_translation_chunks_total",
			Help: "Chunks sent to the translation chain",
		}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedpress_translation_fallbacks_total",
			Help: "Chunks kept in the source language after translation failed",
		}),
		contentTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedpress_content_tier_total",
			Help: "Content extraction hits by tier",
		}, []string{"tier"}),
		imageTier: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "feedpress_image_tier_total",
			Help: "Image resolution hits by tier",
		}, []string{"tier"}),
		mediaFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedpress_media_failures_total",
			Help: "Resolved images that could not be attached to the post",
		}),
		articleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "feedpress_article_duration_seconds",
			Help:    "Wall time spent on one article",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
		healthy: true,
	}

	reg.MustRegister(
		c.candidates,
		c.outcomes,
		c.chunks,
		c.fallbacks,
		c.contentTier,
		c.imageTier,
		c.mediaFailures,
		c.articleDuration,
	)
	return c
}

func (c *Collector) RecordCandidates(n int) {
	c.candidates.Add(float64(n))
}

// RecordOutcome counts one finished article and observes how long it took.
func (c *Collector) RecordOutcome(status string, d time.Duration) {
	c.outcomes.WithLabelValues(status).Inc()
	c.articleDuration.Observe(d.Seconds())
}

func (c *Collector) RecordTranslation(chunks, fallbacks int) {
	c.chunks.Add(float64(chunks))
	c.fallbacks.Add(float64(fallbacks))
}

func (c *Collector) RecordContentTier(tier string) {
	c.contentTier.WithLabelValues(tierLabel(tier)).Inc()
}

func (c *Collector) RecordImageTier(tier string) {
	c.imageTier.WithLabelValues(tierLabel(tier)).Inc()
}

func (c *Collector) RecordMediaFailure() {
	c.mediaFailures.Inc()
}

func tierLabel(tier string) string {
	if tier == "" {
		return "none"
	}
	return tier
}

// SetLastRun marks a completed run and stores its summary line.
func (c *Collector) SetLastRun(summary string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = time.Now()
	c.lastSummary = summary
	c.healthy = true
}

func (c *Collector) SetError(err string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err
	c.lastErrorTime = time.Now()
	c.healthy = false
}

func (c *Collector) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

func (c *Collector) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := map[string]interface{}{
		"is_healthy":   c.healthy,
		"last_summary": c.lastSummary,
		"last_error":   c.lastError,
	}
	if !c.lastRunTime.IsZero() {
		stats["last_run_time"] = c.lastRunTime.Format(time.RFC3339)
	}
	if !c.lastErrorTime.IsZero() {
		stats["last_error_time"] = c.lastErrorTime.Format(time.RFC3339)
	}
	return stats
}
