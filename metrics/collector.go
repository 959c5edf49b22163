// Package metrics exposes Prometheus instruments for index builds and
// similarity queries.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records query and build activity. A nil *Collector is valid and
// records nothing.
type Collector struct {
	queries          *prometheus.CounterVec
	queryLatency     *prometheus.HistogramVec
	queryComparisons *prometheus.HistogramVec
	builds           *prometheus.CounterVec
	buildComparisons prometheus.Histogram
	throttled        prometheus.Counter
}

// NewCollector creates the instruments and registers them with reg. A nil
// reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vptree_queries_total",
			Help: "Similarity queries by method and status.",
		}, []string{"method", "status"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vptree_query_duration_seconds",
			Help:    "Similarity query latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		queryComparisons: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vptree_query_comparisons",
			Help:    "Distance evaluations per query.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		}, []string{"method"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vptree_builds_total",
			Help: "Index builds by status.",
		}, []string{"status"}),
		buildComparisons: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vptree_build_comparisons",
			Help:    "Distance evaluations per tree build.",
			Buckets: prometheus.ExponentialBuckets(16, 4, 12),
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vptree_queries_throttled_total",
			Help: "Queries delayed by the rate limiter.",
		}),
	}
	for _, col := range []prometheus.Collector{c.queries, c.queryLatency, c.queryComparisons, c.builds, c.buildComparisons, c.throttled} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// OnQuery records one query.
func (c *Collector) OnQuery(method string, d time.Duration, comparisons int, err error) {
	if c == nil {
		return
	}
	c.queries.WithLabelValues(method, status(err)).Inc()
	if err != nil {
		return
	}
	c.queryLatency.WithLabelValues(method).Observe(d.Seconds())
	c.queryComparisons.WithLabelValues(method).Observe(float64(comparisons))
}

// OnBuild records one index build.
func (c *Collector) OnBuild(comparisons int, err error) {
	if c == nil {
		return
	}
	c.builds.WithLabelValues(status(err)).Inc()
	if err == nil {
		c.buildComparisons.Observe(float64(comparisons))
	}
}

// OnThrottled records a query that had to wait for the rate limiter.
func (c *Collector) OnThrottled() {
	if c == nil {
		return
	}
	c.throttled.Inc()
}
