package covmatch

import (
	"fmt"
	"slices"
)

// Algorithm selects the matching algorithm.
type Algorithm uint8

const (
	// AlgorithmFLAME drops one covariate per iteration, greedily.
	AlgorithmFLAME Algorithm = iota
	// AlgorithmDAME searches covariate sets exhaustively.
	AlgorithmDAME
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmFLAME:
		return "flame"
	case AlgorithmDAME:
		return "dame"
	default:
		return fmt.Sprintf("Algorithm(%d)", a)
	}
}

// ParseAlgorithm parses "flame" or "dame".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch s {
	case "flame", "FLAME":
		return AlgorithmFLAME, nil
	case "dame", "DAME":
		return AlgorithmDAME, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
	}
}

// Status tags a result as succeeded or failed.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Termination is the reason code of a normal end of run. It is empty for failed runs.
type Termination string

const (
	// TerminationAllMatched: every treated or every control unit is matched.
	TerminationAllMatched Termination = "all_matched"
	// TerminationNoCovariates: no covariate set is left to match on.
	TerminationNoCovariates Termination = "no_covariates"
	// TerminationMaxIterations: the iteration cap was reached.
	TerminationMaxIterations Termination = "early_stop_iterations"
	// TerminationEpsilon: the next set's predictive error was too high.
	TerminationEpsilon Termination = "early_stop_epsilon"
	// TerminationUnmatched: the unmatched fraction of an arm fell to its threshold.
	TerminationUnmatched Termination = "early_stop_unmatched"
	// TerminationEmptyArm: no treated or no control unit could take part in matching.
	TerminationEmptyArm Termination = "empty_arm"
)

// UnitResult annotates one unit of the matching table.
type UnitResult struct {
	Treated bool `json:"treated"`
	Matched bool `json:"matched"`
	// Weight is the number of groups containing the unit.
	Weight int `json:"weight"`
	// GroupID is the unit's group without replacement, -1 otherwise.
	GroupID int `json:"group_id"`
	// CATE is set for matched units when CATE estimation was requested.
	CATE *float64 `json:"cate,omitempty"`
}

// MatchedGroup is a group of units that agree on a covariate set.
type MatchedGroup struct {
	ID        int `json:"id"`
	Iteration int `json:"iteration"`
	// Covariates are the indices the group was matched on.
	Covariates []int `json:"covariates"`
	// Members are unit indices in ascending order.
	Members []int `json:"members"`
}

// Contains reports whether unit is a member of g.
func (g MatchedGroup) Contains(unit int) bool {
	_, ok := slices.BinarySearch(g.Members, unit)
	return ok
}

// Result is the record of one run.
type Result struct {
	RunID     string `json:"run_id"`
	Algorithm string `json:"algorithm"`
	Replace   bool   `json:"replace"`
	Status    Status `json:"status"`
	// Err is the failure of a failed run.
	Err   error  `json:"-" yaml:"-"`
	Error string `json:"error,omitempty"`

	Termination Termination `json:"termination,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Iterations  int         `json:"iterations"`

	// Covariates are the covariate names of the matching table.
	Covariates []string       `json:"covariates"`
	Units      []UnitResult   `json:"units"`
	Groups     []MatchedGroup `json:"groups"`
	// DroppedSets[i] lists the covariates dropped from the full set at iteration i+2.
	DroppedSets [][]int `json:"dropped_sets"`

	// PE and BF hold one value per iteration when requested.
	PE         []float64 `json:"pe,omitempty"`
	BF         []float64 `json:"bf,omitempty"`
	BaselinePE float64   `json:"baseline_pe"`
}

// Succeeded reports whether the run terminated normally.
func (r *Result) Succeeded() bool { return r.Status == StatusSucceeded }

// GroupsFor returns the groups containing unit ordered by iteration. Without multiple only
// the main matched group is returned.
func (r *Result) GroupsFor(unit int, multiple bool) []MatchedGroup {
	var out []MatchedGroup
	for _, g := range r.Groups {
		if g.Contains(unit) {
			out = append(out, g)
			if !multiple {
				break
			}
		}
	}
	return out
}

// MMG returns the main matched group of unit: the group formed on the largest covariate
// set, which is its first group.
func (r *Result) MMG(unit int) (MatchedGroup, bool) {
	groups := r.GroupsFor(unit, false)
	if len(groups) == 0 {
		return MatchedGroup{}, false
	}
	return groups[0], true
}

// Matched returns the indices of matched units.
func (r *Result) Matched() []int {
	var out []int
	for i, u := range r.Units {
		if u.Matched {
			out = append(out, i)
		}
	}
	return out
}

// DroppedNames returns DroppedSets with covariate names.
func (r *Result) DroppedNames() [][]string {
	out := make([][]string, len(r.DroppedSets))
	for i, set := range r.DroppedSets {
		names := make([]string, len(set))
		for k, j := range set {
			if j < len(r.Covariates) {
				names[k] = r.Covariates[j]
			} else {
				names[k] = fmt.Sprintf("X%d", j+1)
			}
		}
		out[i] = names
	}
	return out
}
