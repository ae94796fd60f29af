package covmatch

import (
	"errors"
	"fmt"

	"github.com/hupe1980/covmatch/impute"
	"github.com/hupe1980/covmatch/internal/covset"
	"github.com/hupe1980/covmatch/internal/encoder"
	"github.com/hupe1980/covmatch/internal/oracle"
)

var (
	// ErrUnmatched is returned by CATE for a unit without a matched group.
	ErrUnmatched = errors.New("unit is not matched")

	// ErrNoMatches is returned by ATE and ATT when no unit of the relevant arm is matched.
	ErrNoMatches = errors.New("no matched units")

	// ErrNoOutcome is returned when a matched group lacks an observed outcome in one arm.
	ErrNoOutcome = errors.New("no observed outcome")

	// ErrUnknownAlgorithm is returned by ParseAlgorithm.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")
)

// ConfigurationError reports an invalid option or option combination. It is returned
// before any iteration runs.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Option string
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Option, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// DataError reports malformed input tables. It is returned before any iteration runs.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type DataError struct {
	// Table is "units" or "holdout".
	Table string
	// Unit is the offending row, or -1 when the problem is not row specific.
	Unit   int
	Reason string
	cause  error
}

func (e *DataError) Error() string {
	if e.Unit >= 0 {
		return fmt.Sprintf("invalid %s table: unit %d: %s", e.Table, e.Unit, e.Reason)
	}
	return fmt.Sprintf("invalid %s table: %s", e.Table, e.Reason)
}

func (e *DataError) Unwrap() error { return e.cause }

// ExternalProcedureError reports a failure or malformed output of the predictive-error
// estimator or the imputation procedure. The run is aborted and not retried.
//
// The original underlying error can be accessed via errors.Unwrap.
type ExternalProcedureError struct {
	// Procedure is "estimator" or "imputer".
	Procedure string
	cause     error
}

func (e *ExternalProcedureError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Procedure, e.cause)
}

func (e *ExternalProcedureError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var (
		ce *ConfigurationError
		de *DataError
		pe *ExternalProcedureError
	)
	if errors.As(err, &ce) || errors.As(err, &de) || errors.As(err, &pe) {
		return err
	}

	if errors.Is(err, oracle.ErrProcedure) {
		proc := "estimator"
		if errors.Is(err, impute.ErrMalformedOutput) || errors.Is(err, impute.ErrNoObserved) {
			proc = "imputer"
		}
		return &ExternalProcedureError{Procedure: proc, cause: err}
	}
	if errors.Is(err, covset.ErrTooManyCovariates) {
		return &DataError{Table: "units", Unit: -1, Reason: "too many covariates", cause: err}
	}
	if errors.Is(err, encoder.ErrRaggedRows) {
		return &DataError{Table: "units", Unit: -1, Reason: "covariate count differs between units", cause: err}
	}

	return err
}
