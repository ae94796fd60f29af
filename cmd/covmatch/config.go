package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/covmatch"
	"github.com/hupe1980/covmatch/codec"
	"github.com/hupe1980/covmatch/estimator"
	"github.com/hupe1980/covmatch/export"
)

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Config is the YAML run configuration. Command-line flags override it.
type Config struct {
	Algorithm  string  `yaml:"algorithm" validate:"oneof=flame dame"`
	Replace    bool    `yaml:"replace"`
	C          float64 `yaml:"c" validate:"gte=0"`
	PEMethod   string  `yaml:"pe_method" validate:"oneof=ridge xgb"`
	Outcome    string  `yaml:"outcome_type" validate:"oneof=continuous binary multiclass"`
	CVFolds    int     `yaml:"cv_folds" validate:"gte=2"`
	Parallel   int     `yaml:"max_parallel_scoring" validate:"gte=0"`
	RateLimit  float64 `yaml:"scoring_rate_limit" validate:"gte=0"`
	Estimate   bool    `yaml:"estimate_cates"`
	FLAMEIters int     `yaml:"n_flame_iters" validate:"gte=0"`

	// Weights replace PE evaluation with fixed covariate importances when set.
	Weights []float64 `yaml:"weights" validate:"omitempty,dive,gte=0"`

	Missing struct {
		Data        string `yaml:"data" validate:"oneof=drop keep impute"`
		Holdout     string `yaml:"holdout" validate:"oneof=drop impute"`
		Imputations int    `yaml:"imputations" validate:"gte=1"`
	} `yaml:"missing"`

	EarlyStop struct {
		Iterations       int     `yaml:"iterations" validate:"gte=0"`
		Epsilon          float64 `yaml:"epsilon" validate:"gte=0"`
		UnmatchedControl float64 `yaml:"unmatched_control" validate:"gte=0,lte=1"`
		UnmatchedTreated float64 `yaml:"unmatched_treated" validate:"gte=0,lte=1"`
	} `yaml:"early_stop"`

	Export struct {
		Codec       string `yaml:"codec" validate:"oneof=json go-json yaml"`
		Compression string `yaml:"compression" validate:"oneof=none lz4 zstd"`
		Prefix      string `yaml:"prefix"`
	} `yaml:"export"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	var c Config
	c.Algorithm = "flame"
	c.C = covmatch.DefaultC
	c.PEMethod = covmatch.DefaultPEMethod
	c.Outcome = covmatch.OutcomeContinuous.String()
	c.CVFolds = estimator.DefaultFolds
	c.Missing.Data = covmatch.MissingDrop.String()
	c.Missing.Holdout = covmatch.MissingDrop.String()
	c.Missing.Imputations = covmatch.DefaultHoldoutImputations
	c.EarlyStop.Epsilon = covmatch.DefaultEpsilon
	c.Export.Codec = codec.Default.Name()
	c.Export.Compression = export.CompressionZSTD.String()
	return c
}

// LoadConfig reads a YAML file over the defaults and validates the result.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && len(bytes.TrimSpace(data)) > 0 {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AlgorithmValue parses the algorithm name.
func (c *Config) AlgorithmValue() (covmatch.Algorithm, error) {
	return covmatch.ParseAlgorithm(c.Algorithm)
}

// Options translates the configuration into run options.
func (c *Config) Options() []covmatch.Option {
	opts := []covmatch.Option{
		covmatch.WithReplace(c.Replace),
		covmatch.WithC(c.C),
		covmatch.WithPEMethod(c.PEMethod),
		covmatch.WithOutcomeType(outcomeTypes[c.Outcome]),
		covmatch.WithCVFolds(c.CVFolds),
		covmatch.WithScoringRateLimit(c.RateLimit),
		covmatch.WithEstimateCATEs(c.Estimate),
		covmatch.WithMissingData(missingPolicies[c.Missing.Data]),
		covmatch.WithMissingHoldout(missingPolicies[c.Missing.Holdout]),
		covmatch.WithHoldoutImputations(c.Missing.Imputations),
		covmatch.WithEarlyStopIterations(c.EarlyStop.Iterations),
		covmatch.WithEarlyStopEpsilon(c.EarlyStop.Epsilon),
		covmatch.WithEarlyStopUnmatched(c.EarlyStop.UnmatchedControl, c.EarlyStop.UnmatchedTreated),
		covmatch.WithWantPE(true),
		covmatch.WithWantBF(true),
	}
	if c.Parallel > 0 {
		opts = append(opts, covmatch.WithMaxParallelScoring(c.Parallel))
	}
	if c.FLAMEIters > 0 {
		opts = append(opts, covmatch.WithFLAMEIterations(c.FLAMEIters))
	}
	if len(c.Weights) > 0 {
		opts = append(opts, covmatch.WithWeights(c.Weights))
	}
	return opts
}

var outcomeTypes = map[string]covmatch.OutcomeType{
	"continuous": covmatch.OutcomeContinuous,
	"binary":     covmatch.OutcomeBinary,
	"multiclass": covmatch.OutcomeMulticlass,
}

var missingPolicies = map[string]covmatch.MissingPolicy{
	"drop":   covmatch.MissingDrop,
	"keep":   covmatch.MissingKeep,
	"impute": covmatch.MissingImpute,
}
