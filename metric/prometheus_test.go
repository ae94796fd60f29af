package metric_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hupe1980/covmatch"
	"github.com/hupe1980/covmatch/metric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns counter values and histogram sample counts keyed by
// "<family>{<label values>}".
func gathered(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName() + "{"
			for i, lp := range m.GetLabel() {
				if i > 0 {
					key += ","
				}
				key += lp.GetValue()
			}
			key += "}"
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return out
}

func TestPrometheusCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metric.NewPrometheusCollector(reg)
	require.NoError(t, err)

	c.RecordScore(time.Millisecond, false, nil)
	c.RecordScore(0, true, nil)
	c.RecordScore(time.Millisecond, false, errors.New("boom"))
	c.RecordIteration(time.Millisecond, 3, 7)
	c.RecordIteration(time.Millisecond, 1, 2)
	c.RecordRun(time.Second, 2, nil)

	got := gathered(t, reg)
	assert.Equal(t, 1.0, got["covmatch_scoring_evaluations_total{success}"])
	assert.Equal(t, 1.0, got["covmatch_scoring_evaluations_total{cached}"])
	assert.Equal(t, 1.0, got["covmatch_scoring_evaluations_total{error}"])
	assert.Equal(t, 1.0, got["covmatch_scoring_latency_seconds{success}"])
	assert.Equal(t, 4.0, got["covmatch_search_groups_total{}"])
	assert.Equal(t, 9.0, got["covmatch_search_units_matched_total{}"])
	assert.Equal(t, 2.0, got["covmatch_search_iteration_seconds{}"])
	assert.Equal(t, 1.0, got["covmatch_run_seconds{success}"])
	assert.Equal(t, 1.0, got["covmatch_run_iterations{}"])
}

func TestPrometheusCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metric.NewPrometheusCollector(reg)
	require.NoError(t, err)

	_, err = metric.NewPrometheusCollector(reg)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestPrometheusCollector_WithRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metric.NewPrometheusCollector(reg)
	require.NoError(t, err)

	nan := math.NaN()
	units := &covmatch.Table{Units: []covmatch.Unit{
		{Covariates: []int32{1, 1, 1}, Treatment: 1, Outcome: nan},
		{Covariates: []int32{1, 0, 1}, Treatment: 1, Outcome: nan},
		{Covariates: []int32{1, 1, 1}, Treatment: 0, Outcome: nan},
		{Covariates: []int32{0, 0, 0}, Treatment: 0, Outcome: nan},
	}}
	res, err := covmatch.FLAME(t.Context(), units, nil,
		covmatch.WithWeights([]float64{1, 2, 3}),
		covmatch.WithMetricsCollector(c),
	)
	require.NoError(t, err)
	require.True(t, res.Succeeded())

	got := gathered(t, reg)
	assert.Equal(t, 1.0, got["covmatch_run_seconds{success}"])
	assert.GreaterOrEqual(t, got["covmatch_search_groups_total{}"], 1.0)
	assert.GreaterOrEqual(t, got["covmatch_search_units_matched_total{}"], 2.0)
}
