package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/hupe1980/covmatch/internal/encoder"
	"github.com/hupe1980/covmatch/internal/lattice"
	"github.com/hupe1980/covmatch/internal/match"
	"github.com/hupe1980/covmatch/internal/registry"
)

// ErrAlreadyRun is returned when Run is called twice on one controller.
var ErrAlreadyRun = errors.New("search: controller already ran")

// Algorithm selects the traversal.
type Algorithm uint8

const (
	// FLAME greedily drops one covariate per iteration.
	FLAME Algorithm = iota
	// DAME searches the covariate-set lattice exhaustively.
	DAME
)

func (a Algorithm) String() string {
	if a == DAME {
		return "dame"
	}
	return "flame"
}

// Reason is a termination reason code.
type Reason string

// Termination reasons. None of them is an error.
const (
	AllMatched        Reason = "all_matched"
	NoCovariates      Reason = "no_covariates"
	IterationLimit    Reason = "early_stop_iterations"
	EpsilonExceeded   Reason = "early_stop_epsilon"
	UnmatchedFraction Reason = "early_stop_unmatched"
	// EmptyArm: the pool held no treated or no control unit before the first iteration.
	EmptyArm Reason = "empty_arm"
)

// State is the lifecycle state of a Controller.
type State uint8

const (
	Init State = iota
	Iterating
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Iterating:
		return "iterating"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Scorer computes predictive errors.
type Scorer interface {
	Score(ctx context.Context, s covset.Set) (float64, error)
	ScoreAll(ctx context.Context, sets []covset.Set) ([]float64, error)
	// Weighted reports that scores come from a fixed weight vector rather than fitted
	// models.
	Weighted() bool
}

// Recorder receives one observation per completed iteration.
type Recorder interface {
	RecordIteration(d time.Duration, groups, matched int)
}

// Config configures a run.
type Config struct {
	Algorithm Algorithm
	// FLAMEIterations turns DAME into the hybrid: iterations 1..FLAMEIterations use FLAME.
	FLAMEIterations int

	Encoder *encoder.Encoder
	Treated []bool
	Scorer  Scorer

	Replace bool
	C       float64
	// DropMissing removes units with any missing covariate from the pool.
	DropMissing bool

	// EarlyStopIterations caps the number of iterations; 0 means unlimited.
	EarlyStopIterations int
	// Epsilon stops the run when the chosen set's PE exceeds (1+Epsilon) times the PE of
	// the full set. Ignored for weighted scorers.
	Epsilon float64
	// UnmatchedControl and UnmatchedTreated stop the run once the unmatched fraction of
	// the arm is at or below the value. Zero disables the rule.
	UnmatchedControl float64
	UnmatchedTreated float64

	Logger   *slog.Logger
	Recorder Recorder
}

// Iteration records one committed iteration.
type Iteration struct {
	Number int
	// Set is the covariate set units were matched on.
	Set covset.Set
	// Dropped is the full set minus Set.
	Dropped covset.Set
	PE      float64
	BF      float64
	// Groups is the number of groups committed.
	Groups int
	// NewlyMatched counts units matched for the first time.
	NewlyMatched int
}

// Outcome is the state of a finished run.
type Outcome struct {
	Registry   *registry.Registry
	Iterations []Iteration
	BaselinePE float64
	Reason     Reason
	Detail     string
	// Err is set when the run failed.
	Err error
}

// Controller runs one search.
type Controller struct {
	cfg    Config
	log    *slog.Logger
	engine *match.Engine
	reg    *registry.Registry
	lat    *lattice.Lattice

	full      covset.Set
	treatedBM *roaring.Bitmap
	eligible  *roaring.Bitmap
	unmatched *roaring.Bitmap

	totalTreated uint64
	totalControl uint64

	state State
	out   *Outcome
}

// New creates a controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Encoder == nil || cfg.Scorer == nil {
		return nil, errors.New("search: encoder and scorer are required")
	}
	if len(cfg.Treated) != cfg.Encoder.Len() {
		return nil, fmt.Errorf("search: %d treatment flags for %d units", len(cfg.Treated), cfg.Encoder.Len())
	}
	full, err := covset.Full(cfg.Encoder.Covariates())
	if err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	c := &Controller{
		cfg:    cfg,
		log:    cfg.Logger,
		engine: match.New(cfg.Encoder, cfg.Treated),
		reg:    registry.New(cfg.Treated, cfg.Replace),
		lat:    lattice.New(full),
		full:   full,
	}
	c.treatedBM = c.engine.Treated()

	c.eligible = roaring.New()
	for u := range cfg.Encoder.Len() {
		if cfg.DropMissing && !cfg.Encoder.Missing(u).IsEmpty() {
			continue
		}
		c.eligible.Add(uint32(u))
	}
	c.unmatched = c.eligible.Clone()
	c.totalTreated = roaring.And(c.eligible, c.treatedBM).GetCardinality()
	c.totalControl = c.eligible.GetCardinality() - c.totalTreated

	return c, nil
}

// State returns the lifecycle state.
func (c *Controller) State() State { return c.state }

// Eligible returns the units that take part in matching.
func (c *Controller) Eligible() *roaring.Bitmap { return c.eligible.Clone() }

// Run executes the search. On failure the returned outcome holds the groups committed
// before the failing iteration, and the error is also stored in Outcome.Err.
func (c *Controller) Run(ctx context.Context) (*Outcome, error) {
	if c.state != Init {
		return nil, ErrAlreadyRun
	}
	c.state = Iterating
	c.out = &Outcome{Registry: c.reg}

	if err := c.run(ctx); err != nil {
		c.state = Failed
		c.out.Err = err
		c.log.LogAttrs(ctx, slog.LevelError, "search failed",
			slog.Int("iterations", len(c.out.Iterations)),
			slog.Int("groups", c.reg.Len()),
			slog.String("error", err.Error()),
		)
		return c.out, err
	}

	c.state = Stopped
	c.log.LogAttrs(ctx, slog.LevelDebug, "search stopped",
		slog.String("reason", string(c.out.Reason)),
		slog.String("detail", c.out.Detail),
		slog.Int("iterations", len(c.out.Iterations)),
		slog.Int("groups", c.reg.Len()),
		slog.Int("sets_done", len(c.lat.Order())),
	)
	return c.out, nil
}

func (c *Controller) run(ctx context.Context) error {
	switch {
	case c.totalTreated == 0:
		c.stop(EmptyArm, "no eligible treated units")
		return nil
	case c.totalControl == 0:
		c.stop(EmptyArm, "no eligible control units")
		return nil
	}

	start := time.Now()
	baseline, err := c.cfg.Scorer.Score(ctx, c.full)
	if err != nil {
		return fmt.Errorf("scoring full covariate set: %w", err)
	}
	c.out.BaselinePE = baseline

	// Iteration 1 always matches on every covariate.
	if err := c.lat.Visit(c.full); err != nil {
		return err
	}
	if err := c.commit(ctx, 1, c.full, baseline, start); err != nil {
		return err
	}

	for k := 2; ; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.stopBefore(k) {
			return nil
		}

		start := time.Now()
		set, pe, err := c.choose(ctx, k)
		if err != nil {
			return err
		}

		if !c.cfg.Scorer.Weighted() && pe > (1+c.cfg.Epsilon)*baseline {
			c.stop(EpsilonExceeded, fmt.Sprintf("PE %.6g of %s exceeds %.6g", pe, set, (1+c.cfg.Epsilon)*baseline))
			return nil
		}

		if c.flame(k) {
			err = c.lat.Descend(set)
		} else {
			err = c.lat.Visit(set)
		}
		if err != nil {
			return err
		}
		if err := c.commit(ctx, k, set, pe, start); err != nil {
			return err
		}
	}
}

// flame reports whether iteration k uses the greedy rule.
func (c *Controller) flame(k int) bool {
	return c.cfg.Algorithm == FLAME || k <= c.cfg.FLAMEIterations
}

// stopBefore applies the checks that precede iteration k.
func (c *Controller) stopBefore(k int) bool {
	ut, uc := c.unmatchedCounts()
	switch {
	case ut == 0:
		c.stop(AllMatched, "all treated units are matched")
		return true
	case uc == 0:
		c.stop(AllMatched, "all control units are matched")
		return true
	case !c.hasCandidates(k):
		c.stop(NoCovariates, "no covariate set left to match on")
		return true
	}

	if n := c.cfg.EarlyStopIterations; n > 0 && k > n {
		c.stop(IterationLimit, fmt.Sprintf("reached %d iterations", n))
		return true
	}

	if f := c.cfg.UnmatchedControl; f > 0 && frac(uc, c.totalControl) <= f {
		c.stop(UnmatchedFraction, fmt.Sprintf("unmatched control fraction %.4g at or below %.4g", frac(uc, c.totalControl), f))
		return true
	}
	if f := c.cfg.UnmatchedTreated; f > 0 && frac(ut, c.totalTreated) <= f {
		c.stop(UnmatchedFraction, fmt.Sprintf("unmatched treated fraction %.4g at or below %.4g", frac(ut, c.totalTreated), f))
		return true
	}
	return false
}

func (c *Controller) hasCandidates(k int) bool {
	if c.flame(k) {
		return c.lat.Root().Len() > 1
	}
	return len(c.lat.Frontier()) > 0
}

func (c *Controller) choose(ctx context.Context, k int) (covset.Set, float64, error) {
	if c.flame(k) {
		return c.chooseFLAME(ctx)
	}
	return c.chooseDAME(ctx)
}

// chooseFLAME scores every one-covariate drop of the active set and returns the candidate
// with maximum match quality. Ties go to the smallest dropped index.
func (c *Controller) chooseFLAME(ctx context.Context) (covset.Set, float64, error) {
	candidates := c.lat.Root().Children()

	pes, err := c.cfg.Scorer.ScoreAll(ctx, candidates)
	if err != nil {
		return 0, 0, fmt.Errorf("scoring %d candidates: %w", len(candidates), err)
	}
	bfs, err := c.balance(ctx, candidates)
	if err != nil {
		return 0, 0, err
	}

	best := 0
	bestMQ := c.cfg.C*bfs[0] - pes[0]
	for i := 1; i < len(candidates); i++ {
		if mq := c.cfg.C*bfs[i] - pes[i]; mq > bestMQ {
			best, bestMQ = i, mq
		}
	}

	c.log.LogAttrs(ctx, slog.LevelDebug, "flame candidate chosen",
		slog.String("set", candidates[best].String()),
		slog.Float64("mq", bestMQ),
		slog.Float64("pe", pes[best]),
		slog.Float64("bf", bfs[best]),
	)
	return candidates[best], pes[best], nil
}

// chooseDAME returns the frontier set with the lowest PE. Frontier order breaks ties.
func (c *Controller) chooseDAME(ctx context.Context) (covset.Set, float64, error) {
	frontier := c.lat.Frontier()

	pes, err := c.cfg.Scorer.ScoreAll(ctx, frontier)
	if err != nil {
		return 0, 0, fmt.Errorf("scoring %d frontier sets: %w", len(frontier), err)
	}

	best := 0
	for i := 1; i < len(frontier); i++ {
		if pes[i] < pes[best] {
			best = i
		}
	}
	return frontier[best], pes[best], nil
}

// balance trial-matches every candidate in parallel and returns its balancing factor.
func (c *Controller) balance(ctx context.Context, candidates []covset.Set) ([]float64, error) {
	out := make([]float64, len(candidates))
	pool := c.pool()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = c.bf(match.Covered(c.engine.Match(s, pool)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// bf is the matchable control fraction plus the matchable treated fraction, both counted
// among still unmatched units.
func (c *Controller) bf(covered *roaring.Bitmap) float64 {
	ut, uc := c.unmatchedCounts()
	fresh := roaring.And(covered, c.unmatched)
	nt := fresh.AndCardinality(c.treatedBM)
	nc := fresh.GetCardinality() - nt
	return frac(nc, uc) + frac(nt, ut)
}

// commit matches the pool on s and records the iteration.
func (c *Controller) commit(ctx context.Context, k int, s covset.Set, pe float64, start time.Time) error {
	buckets := c.engine.Match(s, c.pool())
	bf := c.bf(match.Covered(buckets))

	before := c.unmatched.GetCardinality()
	groups := 0
	for _, b := range buckets {
		if c.cfg.Replace && !c.hasUnmatched(b.Members) {
			continue
		}
		if _, err := c.reg.Commit(s, k, b.Members); err != nil {
			return fmt.Errorf("search: iteration %d: %w", k, err)
		}
		for _, u := range b.Members {
			c.unmatched.Remove(u)
		}
		groups++
	}
	newly := int(before - c.unmatched.GetCardinality())

	it := Iteration{
		Number:       k,
		Set:          s,
		Dropped:      c.full.Minus(s),
		PE:           pe,
		BF:           bf,
		Groups:       groups,
		NewlyMatched: newly,
	}
	c.out.Iterations = append(c.out.Iterations, it)

	c.log.LogAttrs(ctx, slog.LevelDebug, "iteration committed",
		slog.Int("iteration", k),
		slog.String("set", s.String()),
		slog.String("dropped", it.Dropped.String()),
		slog.Int("visit", c.lat.Seq(s)),
		slog.Float64("pe", pe),
		slog.Float64("bf", bf),
		slog.Int("groups", groups),
		slog.Int("newly_matched", newly),
	)
	if c.cfg.Recorder != nil {
		c.cfg.Recorder.RecordIteration(time.Since(start), groups, newly)
	}
	return nil
}

func (c *Controller) hasUnmatched(members []uint32) bool {
	for _, u := range members {
		if c.unmatched.Contains(u) {
			return true
		}
	}
	return false
}

// pool returns the units that may join a group this iteration.
func (c *Controller) pool() *roaring.Bitmap {
	if c.cfg.Replace {
		return c.eligible
	}
	return c.unmatched
}

func (c *Controller) unmatchedCounts() (treated, control uint64) {
	treated = c.unmatched.AndCardinality(c.treatedBM)
	return treated, c.unmatched.GetCardinality() - treated
}

func (c *Controller) stop(r Reason, detail string) {
	c.out.Reason = r
	c.out.Detail = detail
}

func frac(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
