package covmatch

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/covmatch/estimator"
	"github.com/hupe1980/covmatch/impute"
	"github.com/hupe1980/covmatch/internal/encoder"
	"github.com/hupe1980/covmatch/internal/oracle"
	"github.com/hupe1980/covmatch/internal/resource"
	"github.com/hupe1980/covmatch/internal/search"
)

// FLAME matches units with the greedy FLAME algorithm. See Run.
func FLAME(ctx context.Context, units, holdout *Table, opts ...Option) (*Result, error) {
	return Run(ctx, AlgorithmFLAME, units, holdout, opts...)
}

// DAME matches units with the exhaustive DAME algorithm, or the FLAME-then-DAME hybrid
// with WithFLAMEIterations. See Run.
func DAME(ctx context.Context, units, holdout *Table, opts ...Option) (*Result, error) {
	return Run(ctx, AlgorithmDAME, units, holdout, opts...)
}

// Run matches the units table with the given algorithm. Predictive error is computed on
// holdout, or on units itself when holdout is nil.
//
// Invalid options and tables yield a *ConfigurationError or *DataError and a nil result.
// A run that fails after it started returns both a result with Status StatusFailed,
// holding the groups committed before the failure, and the error.
func Run(ctx context.Context, alg Algorithm, units, holdout *Table, opts ...Option) (*Result, error) {
	start := time.Now()
	o := applyOptions(opts)

	res, err := run(ctx, alg, units, holdout, &o)
	iterations := 0
	if res != nil {
		iterations = res.Iterations
	}
	o.metricsCollector.RecordRun(time.Since(start), iterations, err)
	return res, err
}

func run(ctx context.Context, alg Algorithm, units, holdout *Table, o *options) (*Result, error) {
	if alg != AlgorithmFLAME && alg != AlgorithmDAME {
		return nil, &ConfigurationError{Option: "algorithm", Reason: alg.String(), cause: ErrUnknownAlgorithm}
	}
	if units == nil {
		return nil, &DataError{Table: "units", Unit: -1, Reason: "no table"}
	}

	p := units.Covariates()
	if p == 0 {
		return nil, &DataError{Table: "units", Unit: -1, Reason: "no covariates"}
	}
	if err := o.validate(alg, p); err != nil {
		return nil, err
	}

	weighted := o.weights != nil
	scoring, scoringName, partition := holdout, "holdout", oracle.Holdout
	if holdout == nil {
		scoring, scoringName, partition = units, "units", oracle.Matching
	}
	if err := units.validate("units", p, (holdout == nil && !weighted) || o.estimateCATEs); err != nil {
		return nil, err
	}
	if holdout != nil {
		if err := holdout.validate("holdout", p, true); err != nil {
			return nil, err
		}
		if len(units.Names) > 0 && len(holdout.Names) > 0 {
			for j := range p {
				if units.Names[j] != holdout.Names[j] {
					return nil, &DataError{Table: "holdout", Unit: -1, Reason: fmt.Sprintf("covariate %d is %q, units have %q", j, holdout.Names[j], units.Names[j])}
				}
			}
		}
	}
	if !weighted && o.outcomeType == OutcomeBinary {
		if n := len(estimator.Classes(scoring.outcomes())); n > 2 {
			return nil, &DataError{Table: scoringName, Unit: -1, Reason: fmt.Sprintf("binary outcome has %d classes", n)}
		}
	}

	runID := uuid.NewString()
	log := o.logger.WithRunID(runID)
	log.LogRunStarted(ctx, alg, units.Len(), p)

	rows := units.rows()
	if o.missingData == MissingImpute && units.hasMissing() {
		copies, err := o.imputer.Impute(ctx, rows, 1)
		if err == nil {
			err = impute.Check(rows, copies, 1)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &ExternalProcedureError{Procedure: "imputer", cause: err}
		}
		rows = copies[0]
	}

	enc, err := encoder.New(rows)
	if err != nil {
		return nil, translateError(err)
	}

	scoringRows := scoring.rows()
	if holdout == nil {
		scoringRows = rows
	}
	scorer, err := newOracle(ctx, o, scoring, scoringRows, partition, levels(p, rows, scoringRows), log)
	if err != nil {
		return nil, translateError(err)
	}

	ctrl, err := search.New(search.Config{
		Algorithm:           searchAlgorithm(alg),
		FLAMEIterations:     o.flameIterations,
		Encoder:             enc,
		Treated:             units.treated(),
		Scorer:              scorer,
		Replace:             o.replace,
		C:                   o.c,
		DropMissing:         o.missingData == MissingDrop,
		EarlyStopIterations: o.earlyStopIterations,
		Epsilon:             o.epsilon,
		UnmatchedControl:    o.unmatchedControl,
		UnmatchedTreated:    o.unmatchedTreated,
		Logger:              log.Logger,
		Recorder:            o.metricsCollector,
	})
	if err != nil {
		return nil, translateError(err)
	}

	out, runErr := ctrl.Run(ctx)
	st := scorer.Stats()
	log.LogScoring(ctx, st.Fits, st.Memoized, st.Hits, st.Misses)
	if out == nil {
		return nil, translateError(runErr)
	}

	res := newResult(runID, alg, units, out, o)
	if runErr != nil {
		runErr = translateError(runErr)
		res.Status = StatusFailed
		res.Err = runErr
		res.Error = runErr.Error()
		log.LogRunFailed(ctx, res.Iterations, len(res.Groups), runErr)
		return res, runErr
	}

	if o.estimateCATEs {
		annotateCATEs(res, units)
	}
	log.LogTermination(ctx, res.Termination, res.Reason, res.Iterations, len(res.Groups))
	return res, nil
}

// newOracle scores on rows, the covariates of scoring after any imputation of the
// matching table.
func newOracle(ctx context.Context, o *options, scoring *Table, rows [][]int32, partition oracle.Partition, levels []int, log *Logger) (*oracle.Oracle, error) {
	cfg := oracle.Config{
		Partition: partition,
		Levels:    levels,
		Weights:   o.weights,
		Logger:    log.Logger,
		Recorder:  o.metricsCollector,
	}
	if o.weights != nil {
		return oracle.New(ctx, cfg)
	}

	est := o.estimator
	if est == nil {
		est, _ = estimator.ByName(o.peMethod)
	}

	cfg.Rows = rows
	cfg.Treated = scoring.treated()
	cfg.Outcome = scoring.outcomes()
	cfg.Estimator = est
	cfg.Discrete = o.outcomeType != OutcomeContinuous
	cfg.Folds = o.cvFolds
	cfg.Limiter = resource.NewController(resource.Config{
		MaxParallel: int64(o.maxParallel),
		RatePerSec:  o.rateLimit,
	})
	if o.missingHoldout == MissingImpute && anyMissing(rows) {
		cfg.Imputer = o.imputer
		cfg.Imputations = o.holdoutImputations
	}
	return oracle.New(ctx, cfg)
}

func anyMissing(rows [][]int32) bool {
	for _, row := range rows {
		if slices.Contains(row, Missing) {
			return true
		}
	}
	return false
}

// levels returns, per covariate, one more than the largest code in any table.
func levels(p int, tables ...[][]int32) []int {
	out := make([]int, p)
	for _, rows := range tables {
		for _, row := range rows {
			for j, c := range row {
				if int(c)+1 > out[j] {
					out[j] = int(c) + 1
				}
			}
		}
	}
	return out
}

func searchAlgorithm(a Algorithm) search.Algorithm {
	if a == AlgorithmDAME {
		return search.DAME
	}
	return search.FLAME
}

func newResult(runID string, alg Algorithm, units *Table, out *search.Outcome, o *options) *Result {
	p := units.Covariates()
	names := make([]string, p)
	for j := range names {
		names[j] = units.Name(j)
	}

	res := &Result{
		RunID:       runID,
		Algorithm:   alg.String(),
		Replace:     o.replace,
		Status:      StatusSucceeded,
		Termination: Termination(out.Reason),
		Reason:      out.Detail,
		Iterations:  len(out.Iterations),
		Covariates:  names,
		BaselinePE:  out.BaselinePE,
		DroppedSets: [][]int{},
	}

	for _, it := range out.Iterations {
		if it.Number > 1 {
			res.DroppedSets = append(res.DroppedSets, it.Dropped.Indices())
		}
		if o.wantPE {
			res.PE = append(res.PE, it.PE)
		}
		if o.wantBF {
			res.BF = append(res.BF, it.BF)
		}
	}

	reg := out.Registry
	for _, g := range reg.Groups() {
		members := make([]int, len(g.Members))
		for i, u := range g.Members {
			members[i] = int(u)
		}
		res.Groups = append(res.Groups, MatchedGroup{
			ID:         g.ID,
			Iteration:  g.Iteration,
			Covariates: g.Set.Indices(),
			Members:    members,
		})
	}

	res.Units = make([]UnitResult, units.Len())
	for i, u := range units.Units {
		id, _ := reg.GroupID(uint32(i))
		res.Units[i] = UnitResult{
			Treated: u.Treatment == 1,
			Matched: reg.Matched(uint32(i)),
			Weight:  reg.Weight(uint32(i)),
			GroupID: id,
		}
	}
	return res
}

func annotateCATEs(res *Result, units *Table) {
	for i := range res.Units {
		if !res.Units[i].Matched {
			continue
		}
		if cate, err := CATE(res, units, i); err == nil {
			res.Units[i].CATE = &cate
		}
	}
}
