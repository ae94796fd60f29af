package covmatch

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see
// metric.PrometheusCollector for a Prometheus implementation.
type MetricsCollector interface {
	// RecordScore is called after each predictive-error lookup. cached is true when no
	// estimator was invoked.
	RecordScore(duration time.Duration, cached bool, err error)

	// RecordIteration is called after each committed iteration with the number of groups
	// formed and units matched for the first time.
	RecordIteration(duration time.Duration, groups, matched int)

	// RecordRun is called once per run.
	RecordRun(duration time.Duration, iterations int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordScore(time.Duration, bool, error)  {}
func (NoopMetricsCollector) RecordIteration(time.Duration, int, int) {}
func (NoopMetricsCollector) RecordRun(time.Duration, int, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ScoreCount      atomic.Int64
	ScoreCached     atomic.Int64
	ScoreErrors     atomic.Int64
	ScoreTotalNanos atomic.Int64
	IterationCount  atomic.Int64
	GroupCount      atomic.Int64
	MatchedCount    atomic.Int64
	RunCount        atomic.Int64
	RunErrors       atomic.Int64
	RunTotalNanos   atomic.Int64
	RunIterations   atomic.Int64
}

// RecordScore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScore(duration time.Duration, cached bool, err error) {
	b.ScoreCount.Add(1)
	b.ScoreTotalNanos.Add(duration.Nanoseconds())
	if cached {
		b.ScoreCached.Add(1)
	}
	if err != nil {
		b.ScoreErrors.Add(1)
	}
}

// RecordIteration implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIteration(_ time.Duration, groups, matched int) {
	b.IterationCount.Add(1)
	b.GroupCount.Add(int64(groups))
	b.MatchedCount.Add(int64(matched))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(duration time.Duration, iterations int, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	b.RunIterations.Add(int64(iterations))
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ScoreCount:     b.ScoreCount.Load(),
		ScoreCached:    b.ScoreCached.Load(),
		ScoreErrors:    b.ScoreErrors.Load(),
		ScoreAvgNanos:  avg(b.ScoreTotalNanos.Load(), b.ScoreCount.Load()),
		IterationCount: b.IterationCount.Load(),
		GroupCount:     b.GroupCount.Load(),
		MatchedCount:   b.MatchedCount.Load(),
		RunCount:       b.RunCount.Load(),
		RunErrors:      b.RunErrors.Load(),
		RunAvgNanos:    avg(b.RunTotalNanos.Load(), b.RunCount.Load()),
		RunIterations:  b.RunIterations.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ScoreCount     int64
	ScoreCached    int64
	ScoreErrors    int64
	ScoreAvgNanos  int64
	IterationCount int64
	GroupCount     int64
	MatchedCount   int64
	RunCount       int64
	RunErrors      int64
	RunAvgNanos    int64
	RunIterations  int64
}
