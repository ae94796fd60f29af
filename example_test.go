package covmatch_test

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/hupe1980/covmatch"
)

func exampleUnits() *covmatch.Table {
	return &covmatch.Table{
		Names: []string{"age_band", "smoker", "region"},
		Units: []covmatch.Unit{
			{Covariates: []int32{1, 1, 1}, Treatment: 1, Outcome: 7},
			{Covariates: []int32{1, 0, 1}, Treatment: 1, Outcome: 6},
			{Covariates: []int32{1, 1, 1}, Treatment: 0, Outcome: 4},
			{Covariates: []int32{0, 0, 0}, Treatment: 0, Outcome: 1},
			{Covariates: []int32{1, 0, 0}, Treatment: 0, Outcome: 3},
		},
	}
}

// ExampleFLAME matches with a fixed covariate ranking instead of fitted predictive error.
func ExampleFLAME() {
	units := exampleUnits()

	res, err := covmatch.FLAME(context.Background(), units, nil,
		covmatch.WithWeights([]float64{3, 1, 2}), // age_band matters most
	)
	if err != nil {
		log.Fatal(err)
	}

	for _, g := range res.Groups {
		fmt.Println(g.Iteration, units.NameSet(g.Covariates), g.Members)
	}
	fmt.Println(res.Termination)
	// Output:
	// 1 [age_band smoker region] [0 2]
	// 3 [age_band] [1 4]
	// all_matched
}

// ExampleATE estimates the average treatment effect from matched groups.
func ExampleATE() {
	units := exampleUnits()

	res, err := covmatch.DAME(context.Background(), units, nil,
		covmatch.WithWeights([]float64{3, 1, 2}),
	)
	if err != nil {
		log.Fatal(err)
	}

	ate, err := covmatch.ATE(res, units)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("matched %d of %d units, ATE %.2f\n", len(res.Matched()), len(res.Units), ate)
	// Output: matched 4 of 5 units, ATE 3.00
}

// ExampleCATE reads per-unit effects annotated during the run.
func ExampleCATE() {
	units := exampleUnits()

	res, err := covmatch.FLAME(context.Background(), units, nil,
		covmatch.WithWeights([]float64{3, 1, 2}),
		covmatch.WithEstimateCATEs(true),
	)
	if err != nil {
		log.Fatal(err)
	}

	for i, u := range res.Units {
		cate := math.NaN()
		if u.CATE != nil {
			cate = *u.CATE
		}
		fmt.Printf("unit %d: %v\n", i, cate)
	}
	// Output:
	// unit 0: 3
	// unit 1: 3
	// unit 2: 3
	// unit 3: NaN
	// unit 4: 3
}
