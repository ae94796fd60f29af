package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/covmatch/estimator"
	"github.com/hupe1980/covmatch/impute"
	"github.com/hupe1980/covmatch/internal/cache"
	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/hupe1980/covmatch/internal/resource"
)

// ErrProcedure wraps failures and malformed output of the caller-supplied estimator or
// imputer.
var ErrProcedure = errors.New("oracle: external procedure failed")

// Partition names the table a score was computed on.
type Partition uint8

const (
	// Holdout scores on the separate holdout table.
	Holdout Partition = iota
	// Matching scores on the matching table itself.
	Matching
)

func (p Partition) String() string {
	if p == Matching {
		return "matching"
	}
	return "holdout"
}

// Recorder receives one observation per Score call.
type Recorder interface {
	RecordScore(d time.Duration, cached bool, err error)
}

// Config describes the scoring table and procedures.
type Config struct {
	// Rows are the covariate codes of the scoring table; negative codes are missing.
	Rows    [][]int32
	Treated []bool
	Outcome []float64

	Partition Partition

	// Levels[j] is the number of codes of covariate j across all tables.
	Levels []int

	Estimator estimator.Estimator
	// Discrete selects misclassification loss instead of mean squared error.
	Discrete bool
	// Folds is the number of cross-validation folds. Zero means estimator.DefaultFolds.
	Folds int

	// Weights bypasses the estimator when non-nil.
	Weights []float64

	// Imputer, when set, replaces row dropping for missing values: the table is imputed
	// Imputations times and the PE is averaged across copies.
	Imputer     impute.Imputer
	Imputations int

	Limiter  *resource.Controller
	Logger   *slog.Logger
	Recorder Recorder
}

type key struct {
	set       covset.Set
	partition Partition
}

func (k key) String() string { return k.partition.String() + k.set.String() }

// Oracle computes and memoizes predictive errors. It is safe for concurrent use.
type Oracle struct {
	cfg     Config
	classes []float64
	copies  [][][]int32 // imputed tables; nil unless cfg.Imputer is set
	memo    *cache.Memo[key, float64]
	calls   atomic.Int64
}

// New creates an oracle. With an imputer configured, the scoring table is imputed once
// here.
func New(ctx context.Context, cfg Config) (*Oracle, error) {
	if cfg.Folds <= 0 {
		cfg.Folds = estimator.DefaultFolds
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	o := &Oracle{
		cfg:  cfg,
		memo: cache.NewMemo[key, float64](),
	}

	if cfg.Weights != nil {
		return o, nil
	}
	if cfg.Estimator == nil {
		return nil, errors.New("oracle: no estimator configured")
	}
	if cfg.Discrete {
		o.classes = estimator.Classes(cfg.Outcome)
	}

	if cfg.Imputer != nil {
		m := max(cfg.Imputations, 1)
		copies, err := cfg.Imputer.Impute(ctx, cfg.Rows, m)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: imputing %s table: %w", ErrProcedure, cfg.Partition, err)
		}
		if err := impute.Check(cfg.Rows, copies, m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProcedure, err)
		}
		o.copies = copies
	}

	return o, nil
}

// Weighted reports whether scores come from the weight vector.
func (o *Oracle) Weighted() bool { return o.cfg.Weights != nil }

// Stats summarizes the scoring work of an oracle.
type Stats struct {
	// Fits counts estimator invocations.
	Fits     int64
	Memoized int
	// Hits and Misses count memo lookups.
	Hits   int64
	Misses int64
}

// Stats returns a snapshot of the scoring counters.
func (o *Oracle) Stats() Stats {
	hits, misses := o.memo.Stats()
	return Stats{
		Fits:     o.calls.Load(),
		Memoized: o.memo.Len(),
		Hits:     hits,
		Misses:   misses,
	}
}

// Score returns PE(s).
func (o *Oracle) Score(ctx context.Context, s covset.Set) (float64, error) {
	start := time.Now()

	if o.cfg.Weights != nil {
		pe := o.weighted(s)
		o.record(start, true, nil)
		return pe, nil
	}

	pe, cached, err := o.memo.Do(key{set: s, partition: o.cfg.Partition}, func() (float64, error) {
		return o.compute(ctx, s)
	})
	o.record(start, cached, err)
	if err != nil {
		return 0, err
	}

	o.cfg.Logger.LogAttrs(ctx, slog.LevelDebug, "scored covariate set",
		slog.String("set", s.String()),
		slog.String("partition", o.cfg.Partition.String()),
		slog.Float64("pe", pe),
		slog.Bool("cached", cached),
	)
	return pe, nil
}

// ScoreAll scores sets in parallel and returns their PEs in the order of sets.
func (o *Oracle) ScoreAll(ctx context.Context, sets []covset.Set) ([]float64, error) {
	out := make([]float64, len(sets))

	limit := o.cfg.Limiter.MaxParallel()
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, s := range sets {
		g.Go(func() error {
			pe, err := o.Score(gctx, s)
			if err != nil {
				return err
			}
			out[i] = pe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Oracle) weighted(s covset.Set) float64 {
	var pe float64
	for j, w := range o.cfg.Weights {
		if !s.Has(j) {
			pe += w
		}
	}
	return pe
}

func (o *Oracle) compute(ctx context.Context, s covset.Set) (float64, error) {
	if o.copies == nil {
		return o.table(ctx, o.cfg.Rows, s, true)
	}

	var total float64
	for _, rows := range o.copies {
		pe, err := o.table(ctx, rows, s, false)
		if err != nil {
			return 0, err
		}
		total += pe
	}
	return total / float64(len(o.copies)), nil
}

// table returns the PE of s on rows, summing treated and control arm losses.
func (o *Oracle) table(ctx context.Context, rows [][]int32, s covset.Set, dropMissing bool) (float64, error) {
	cols := s.Indices()

	var pe float64
	for _, arm := range []bool{true, false} {
		var idx []int
		for i, row := range rows {
			if o.cfg.Treated[i] != arm {
				continue
			}
			if dropMissing && missingIn(row, cols) {
				continue
			}
			idx = append(idx, i)
		}
		loss, err := o.arm(ctx, rows, idx, cols)
		if err != nil {
			return 0, err
		}
		pe += loss
	}
	return pe, nil
}

func (o *Oracle) arm(ctx context.Context, rows [][]int32, idx []int, cols []int) (float64, error) {
	if len(idx) < 2 {
		return 0, nil
	}

	sub := make([][]int32, len(idx))
	y := make([]float64, len(idx))
	for i, r := range idx {
		sub[i] = rows[r]
		y[i] = o.cfg.Outcome[r]
	}
	ds := estimator.Dataset{
		X:       estimator.OneHot(sub, cols, o.cfg.Levels),
		Y:       y,
		Classes: o.classes,
	}

	pred, err := estimator.CrossValPredict(ctx, estimator.Func(o.fitPredict), ds, o.cfg.Folds)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %w", ErrProcedure, err)
	}

	if o.cfg.Discrete {
		return estimator.Misclassification(y, pred), nil
	}
	return estimator.MSE(y, pred), nil
}

func (o *Oracle) fitPredict(ctx context.Context, train estimator.Dataset, test [][]float64) ([]float64, error) {
	var pred []float64
	err := o.cfg.Limiter.Do(ctx, func(ctx context.Context) error {
		o.calls.Add(1)
		var err error
		pred, err = o.cfg.Estimator.FitPredict(ctx, train, test)
		return err
	})
	return pred, err
}

func (o *Oracle) record(start time.Time, cached bool, err error) {
	if o.cfg.Recorder != nil {
		o.cfg.Recorder.RecordScore(time.Since(start), cached, err)
	}
}

func missingIn(row []int32, cols []int) bool {
	for _, j := range cols {
		if row[j] < 0 {
			return true
		}
	}
	return false
}
