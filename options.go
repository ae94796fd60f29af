package covmatch

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"

	"github.com/hupe1980/covmatch/estimator"
	"github.com/hupe1980/covmatch/impute"
)

// MissingPolicy selects how missing covariate values are handled.
type MissingPolicy uint8

const (
	// MissingDrop excludes units (or holdout rows) with missing values.
	MissingDrop MissingPolicy = iota
	// MissingKeep lets a unit match on any covariate set that avoids its missing values.
	// It applies to the matching table only.
	MissingKeep
	// MissingImpute fills missing values with the configured imputer.
	MissingImpute
)

func (m MissingPolicy) String() string {
	switch m {
	case MissingDrop:
		return "drop"
	case MissingKeep:
		return "keep"
	case MissingImpute:
		return "impute"
	default:
		return fmt.Sprintf("MissingPolicy(%d)", m)
	}
}

// OutcomeType selects the predictive-error loss.
type OutcomeType uint8

const (
	// OutcomeContinuous scores with mean squared error.
	OutcomeContinuous OutcomeType = iota
	// OutcomeBinary scores with the misclassification rate.
	OutcomeBinary
	// OutcomeMulticlass scores with the misclassification rate.
	OutcomeMulticlass
)

func (t OutcomeType) String() string {
	switch t {
	case OutcomeContinuous:
		return "continuous"
	case OutcomeBinary:
		return "binary"
	case OutcomeMulticlass:
		return "multiclass"
	default:
		return fmt.Sprintf("OutcomeType(%d)", t)
	}
}

// Defaults.
const (
	DefaultC                  = 0.1
	DefaultPEMethod           = "ridge"
	DefaultEpsilon            = 0.25
	DefaultHoldoutImputations = 10
)

type options struct {
	replace             bool
	c                   float64
	peMethod            string
	estimator           estimator.Estimator
	missingData         MissingPolicy
	missingHoldout      MissingPolicy
	holdoutImputations  int
	imputer             impute.Imputer
	earlyStopIterations int
	epsilon             float64
	unmatchedControl    float64
	unmatchedTreated    float64
	weights             []float64
	flameIterations     int
	estimateCATEs       bool
	outcomeType         OutcomeType
	cvFolds             int
	maxParallel         int
	rateLimit           float64
	wantPE              bool
	wantBF              bool
	metricsCollector    MetricsCollector
	logger              *Logger
}

// Option configures a run.
type Option func(*options)

// WithReplace lets matched units stay in the pool and join further groups.
func WithReplace(replace bool) Option {
	return func(o *options) {
		o.replace = replace
	}
}

// WithC sets the weight of the balancing factor in FLAME's match quality C·BF − PE.
func WithC(c float64) Option {
	return func(o *options) {
		o.c = c
	}
}

// WithPEMethod selects a built-in estimator: "ridge" or "xgb".
func WithPEMethod(method string) Option {
	return func(o *options) {
		o.peMethod = method
	}
}

// WithEstimator uses a caller-supplied prediction procedure for predictive error. It takes
// precedence over WithPEMethod.
func WithEstimator(est estimator.Estimator) Option {
	return func(o *options) {
		o.estimator = est
	}
}

// WithMissingData sets the missing-value policy of the matching table.
func WithMissingData(p MissingPolicy) Option {
	return func(o *options) {
		o.missingData = p
	}
}

// WithMissingHoldout sets the missing-value policy of the holdout table: MissingDrop
// excludes rows missing a covariate of the scored set, MissingImpute averages over
// imputed copies.
func WithMissingHoldout(p MissingPolicy) Option {
	return func(o *options) {
		o.missingHoldout = p
	}
}

// WithHoldoutImputations sets the number of imputed holdout copies.
func WithHoldoutImputations(m int) Option {
	return func(o *options) {
		o.holdoutImputations = m
	}
}

// WithImputer replaces the default hot-deck imputer.
// If nil is passed, the default is kept.
func WithImputer(imp impute.Imputer) Option {
	return func(o *options) {
		if imp != nil {
			o.imputer = imp
		}
	}
}

// WithEarlyStopIterations caps the number of iterations. Zero means no cap.
func WithEarlyStopIterations(n int) Option {
	return func(o *options) {
		o.earlyStopIterations = n
	}
}

// WithEarlyStopEpsilon stops the run before committing a covariate set whose predictive
// error exceeds (1+eps) times the predictive error of the full set. Use math.Inf(1) to
// disable. Ignored when weights are supplied.
func WithEarlyStopEpsilon(eps float64) Option {
	return func(o *options) {
		o.epsilon = eps
	}
}

// WithEarlyStopUnmatched stops the run once the unmatched fraction of controls or of
// treated units is at or below the given value. Zero disables a rule.
func WithEarlyStopUnmatched(controlFrac, treatedFrac float64) Option {
	return func(o *options) {
		o.unmatchedControl = controlFrac
		o.unmatchedTreated = treatedFrac
	}
}

// WithWeights ranks covariates by fixed importance instead of fitted predictive error:
// PE(S) is the total weight of the covariates outside S. No estimator is called.
func WithWeights(w []float64) Option {
	return func(o *options) {
		o.weights = slices.Clone(w)
	}
}

// WithFLAMEIterations runs n FLAME iterations before DAME takes over. DAME only.
func WithFLAMEIterations(n int) Option {
	return func(o *options) {
		o.flameIterations = n
	}
}

// WithEstimateCATEs annotates matched units with their conditional average treatment
// effect.
func WithEstimateCATEs(estimate bool) Option {
	return func(o *options) {
		o.estimateCATEs = estimate
	}
}

// WithOutcomeType selects the predictive-error loss.
func WithOutcomeType(t OutcomeType) Option {
	return func(o *options) {
		o.outcomeType = t
	}
}

// WithCVFolds sets the number of cross-validation folds used for predictive error.
func WithCVFolds(k int) Option {
	return func(o *options) {
		o.cvFolds = k
	}
}

// WithMaxParallelScoring caps concurrent estimator fits.
func WithMaxParallelScoring(n int) Option {
	return func(o *options) {
		o.maxParallel = n
	}
}

// WithScoringRateLimit caps estimator fits per second. Zero means unlimited.
func WithScoringRateLimit(perSecond float64) Option {
	return func(o *options) {
		o.rateLimit = perSecond
	}
}

// WithWantPE records the predictive error of the chosen set at every iteration.
func WithWantPE(want bool) Option {
	return func(o *options) {
		o.wantPE = want
	}
}

// WithWantBF records the balancing factor of the chosen set at every iteration.
func WithWantBF(want bool) Option {
	return func(o *options) {
		o.wantBF = want
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &covmatch.BasicMetricsCollector{}
//	res, _ := covmatch.FLAME(ctx, units, holdout, covmatch.WithMetricsCollector(metrics))
//	fmt.Println(metrics.GetStats().ScoreCount)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for runs.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := covmatch.NewJSONLogger(slog.LevelInfo)
//	res, _ := covmatch.DAME(ctx, units, holdout, covmatch.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		c:                  DefaultC,
		peMethod:           DefaultPEMethod,
		missingData:        MissingDrop,
		missingHoldout:     MissingDrop,
		holdoutImputations: DefaultHoldoutImputations,
		imputer:            impute.HotDeckImputer{},
		epsilon:            DefaultEpsilon,
		cvFolds:            estimator.DefaultFolds,
		maxParallel:        runtime.GOMAXPROCS(0),
		metricsCollector:   NoopMetricsCollector{},
		logger:             NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// validate checks option values against each other and the covariate count p.
func (o *options) validate(alg Algorithm, p int) error {
	bad := func(opt, format string, args ...any) error {
		return &ConfigurationError{Option: opt, Reason: fmt.Sprintf(format, args...)}
	}

	if math.IsNaN(o.c) || o.c < 0 {
		return bad("C", "must be non-negative, got %v", o.c)
	}
	if o.estimator == nil && o.weights == nil {
		if _, ok := estimator.ByName(o.peMethod); !ok {
			return bad("PE_method", "unknown method %q", o.peMethod)
		}
	}
	if o.missingData > MissingImpute {
		return bad("missing_data", "unknown policy %v", o.missingData)
	}
	if o.missingHoldout != MissingDrop && o.missingHoldout != MissingImpute {
		return bad("missing_holdout", "must be drop or impute, got %v", o.missingHoldout)
	}
	if o.missingHoldout == MissingImpute && o.holdoutImputations < 1 {
		return bad("missing_holdout_imputations", "must be positive, got %d", o.holdoutImputations)
	}
	if o.earlyStopIterations < 0 {
		return bad("early_stop_iterations", "must be non-negative, got %d", o.earlyStopIterations)
	}
	if math.IsNaN(o.epsilon) || o.epsilon < 0 {
		return bad("early_stop_epsilon", "must be non-negative, got %v", o.epsilon)
	}
	for _, f := range []float64{o.unmatchedControl, o.unmatchedTreated} {
		if math.IsNaN(f) || f < 0 || f > 1 {
			return bad("early_stop_unmatched", "fractions must lie in [0, 1], got %v", f)
		}
	}
	if o.flameIterations < 0 {
		return bad("n_flame_iters", "must be non-negative, got %d", o.flameIterations)
	}
	if o.flameIterations > 0 && alg != AlgorithmDAME {
		return bad("n_flame_iters", "only applies to DAME")
	}
	if o.outcomeType > OutcomeMulticlass {
		return bad("outcome_type", "unknown type %v", o.outcomeType)
	}
	if o.cvFolds < 2 {
		return bad("cv_folds", "must be at least 2, got %d", o.cvFolds)
	}
	if o.maxParallel < 1 {
		return bad("max_parallel_scoring", "must be positive, got %d", o.maxParallel)
	}
	if math.IsNaN(o.rateLimit) || o.rateLimit < 0 {
		return bad("scoring_rate_limit", "must be non-negative, got %v", o.rateLimit)
	}

	if o.weights != nil {
		if len(o.weights) != p {
			return bad("weights", "%d weights for %d covariates", len(o.weights), p)
		}
		for j, w := range o.weights {
			if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
				return bad("weights", "weight %d is %v", j, w)
			}
		}
		if !o.replace {
			sorted := slices.Clone(o.weights)
			slices.Sort(sorted)
			if len(slices.Compact(sorted)) != len(sorted) {
				return bad("weights", "without replacement the weights must be distinct to define a strict ordering")
			}
		}
	}
	return nil
}
