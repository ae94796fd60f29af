package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// Missing is the code written by Mask.
const Missing int32 = -1

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Categorical returns n rows of p codes drawn uniformly from [0, levels).
func (r *RNG) Categorical(n, p, levels int) [][]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]int32, n)
	for i := range rows {
		row := make([]int32, p)
		for j := range row {
			row[j] = int32(r.rand.Intn(levels))
		}
		rows[i] = row
	}
	return rows
}

// Skewed returns n rows of p codes in [0, levels) with P(k) ∝ 1/(k+1)^s.
func (r *RNG) Skewed(n, p, levels int, s float64) [][]int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make([][]int32, n)
	for i := range rows {
		row := make([]int32, p)
		for j := range row {
			row[j] = int32(r.zipfLocked(levels, s))
		}
		rows[i] = row
	}
	return rows
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

// zipfLocked is the internal implementation (caller must hold lock).
func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1 // 0-indexed
		}
	}

	return n - 1
}

// Treatments returns n assignments in {0, 1}; each unit is treated with probability prob.
func (r *RNG) Treatments(n int, prob float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, n)
	for i := range out {
		if r.rand.Float64() < prob {
			out[i] = 1
		}
	}
	return out
}

// Mask replaces each code with Missing with probability rate, in place. It returns the
// number of masked cells.
func (r *RNG) Mask(rows [][]int32, rate float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, row := range rows {
		for j := range row {
			if r.rand.Float64() < rate {
				row[j] = Missing
				n++
			}
		}
	}
	return n
}

// StudyConfig describes a synthetic study.
type StudyConfig struct {
	Units int
	// Important covariates drive the outcome with decreasing coefficients; Unimportant
	// covariates do not.
	Important   int
	Unimportant int
	Levels      int
	// Effect is the constant treatment effect.
	Effect float64
	// Noise is the standard deviation of the outcome noise.
	Noise float64
	// TreatedProb is the treatment probability. Zero means 0.5.
	TreatedProb float64
}

// Study is a synthetic study. Covariates 0..Important-1 are the important ones.
type Study struct {
	Rows      [][]int32
	Treatment []int
	Outcome   []float64
	// Coefficients holds the outcome coefficient of every covariate.
	Coefficients []float64
}

// Study generates outcome = Σ coef_j·code_j + Effect·treatment + noise, with
// coef_j = 10·(Important−j) for important covariates and 0 otherwise.
func (r *RNG) Study(cfg StudyConfig) Study {
	p := cfg.Important + cfg.Unimportant
	prob := cfg.TreatedProb
	if prob == 0 {
		prob = 0.5
	}

	rows := r.Categorical(cfg.Units, p, cfg.Levels)
	treatment := r.Treatments(cfg.Units, prob)

	coef := make([]float64, p)
	for j := range cfg.Important {
		coef[j] = 10 * float64(cfg.Important-j)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	outcome := make([]float64, cfg.Units)
	for i, row := range rows {
		y := cfg.Effect * float64(treatment[i])
		for j, c := range row {
			y += coef[j] * float64(c)
		}
		if cfg.Noise > 0 {
			y += r.rand.NormFloat64() * cfg.Noise
		}
		outcome[i] = y
	}

	return Study{Rows: rows, Treatment: treatment, Outcome: outcome, Coefficients: coef}
}
