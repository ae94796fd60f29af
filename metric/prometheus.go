package metric

import (
	"time"

	"github.com/hupe1980/covmatch"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements covmatch.MetricsCollector with Prometheus counters and
// histograms.
type PrometheusCollector struct {
	scoreLatency  *prometheus.HistogramVec
	scores        *prometheus.CounterVec
	iterLatency   prometheus.Histogram
	groups        prometheus.Counter
	matched       prometheus.Counter
	runLatency    *prometheus.HistogramVec
	runIterations prometheus.Histogram
}

var _ covmatch.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics on reg.
// A nil reg selects prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		scoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covmatch",
			Subsystem: "scoring",
			Name:      "latency_seconds",
			Help:      "Latency of predictive error evaluations",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"status"}),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covmatch",
			Subsystem: "scoring",
			Name:      "evaluations_total",
			Help:      "Predictive error evaluations by outcome",
		}, []string{"status"}),
		iterLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covmatch",
			Subsystem: "search",
			Name:      "iteration_seconds",
			Help:      "Duration of committed iterations",
			Buckets:   prometheus.DefBuckets,
		}),
		groups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covmatch",
			Subsystem: "search",
			Name:      "groups_total",
			Help:      "Matched groups committed",
		}),
		matched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "covmatch",
			Subsystem: "search",
			Name:      "units_matched_total",
			Help:      "Units matched for the first time",
		}),
		runLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covmatch",
			Name:      "run_seconds",
			Help:      "Duration of matching runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"status"}),
		runIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covmatch",
			Name:      "run_iterations",
			Help:      "Iterations per matching run",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}

	for _, col := range []prometheus.Collector{
		c.scoreLatency, c.scores, c.iterLatency, c.groups, c.matched, c.runLatency, c.runIterations,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordScore observes one evaluation. Memo hits are counted but not timed.
func (c *PrometheusCollector) RecordScore(d time.Duration, cached bool, err error) {
	switch {
	case err != nil:
		c.scores.WithLabelValues("error").Inc()
		c.scoreLatency.WithLabelValues("error").Observe(d.Seconds())
	case cached:
		c.scores.WithLabelValues("cached").Inc()
	default:
		c.scores.WithLabelValues("success").Inc()
		c.scoreLatency.WithLabelValues("success").Observe(d.Seconds())
	}
}

// RecordIteration observes a committed iteration.
func (c *PrometheusCollector) RecordIteration(d time.Duration, groups, matched int) {
	c.iterLatency.Observe(d.Seconds())
	c.groups.Add(float64(groups))
	c.matched.Add(float64(matched))
}

// RecordRun observes a finished run.
func (c *PrometheusCollector) RecordRun(d time.Duration, iterations int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.runLatency.WithLabelValues(status).Observe(d.Seconds())
	c.runIterations.Observe(float64(iterations))
}
