package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/hupe1980/covmatch"
)

// dictionary codes categorical cells per covariate name, in order of first appearance.
// Tables loaded with the same dictionary share codes.
type dictionary struct {
	codes map[string]map[string]int32
}

func newDictionary() *dictionary {
	return &dictionary{codes: make(map[string]map[string]int32)}
}

func (d *dictionary) code(column, cell string) int32 {
	m, ok := d.codes[column]
	if !ok {
		m = make(map[string]int32)
		d.codes[column] = m
	}
	c, ok := m[cell]
	if !ok {
		c = int32(len(m))
		m[cell] = c
	}
	return c
}

// Levels returns the coded labels of a column, indexed by code.
func (d *dictionary) Levels(column string) []string {
	m := d.codes[column]
	out := make([]string, len(m))
	for label, c := range m {
		out[c] = label
	}
	return out
}

func isMissing(cell string) bool {
	switch strings.TrimSpace(cell) {
	case "", "NA", "NaN", "nan", "N/A":
		return true
	}
	return false
}

// csvSpec names the treatment and outcome columns. An empty outcome means the table has
// none. Covariates, when set, fixes the covariate column order.
type csvSpec struct {
	Treatment  string
	Outcome    string
	Covariates []string
}

// loadCSV reads a header row followed by one unit per row. Every column other than
// treatment and outcome is a covariate.
func loadCSV(r io.Reader, layout csvSpec, dict *dictionary) (*covmatch.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: empty input")
		}
		return nil, fmt.Errorf("csv: header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	treatCol := slices.Index(header, layout.Treatment)
	if treatCol < 0 {
		return nil, fmt.Errorf("csv: treatment column %q not found", layout.Treatment)
	}
	outCol := -1
	if layout.Outcome != "" {
		if outCol = slices.Index(header, layout.Outcome); outCol < 0 {
			return nil, fmt.Errorf("csv: outcome column %q not found", layout.Outcome)
		}
	}

	var names []string
	var cols []int
	if layout.Covariates != nil {
		for _, name := range layout.Covariates {
			j := slices.Index(header, name)
			if j < 0 {
				return nil, fmt.Errorf("csv: covariate column %q not found", name)
			}
			names = append(names, name)
			cols = append(cols, j)
		}
	} else {
		for j, name := range header {
			if j == treatCol || j == outCol {
				continue
			}
			names = append(names, name)
			cols = append(cols, j)
		}
	}
	if len(cols) == 0 {
		return nil, errors.New("csv: no covariate columns")
	}

	table := &covmatch.Table{Names: names}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}

		treatment, err := strconv.Atoi(strings.TrimSpace(rec[treatCol]))
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: treatment %q is not an integer", line, rec[treatCol])
		}

		outcome := math.NaN()
		if outCol >= 0 && !isMissing(rec[outCol]) {
			if outcome, err = strconv.ParseFloat(strings.TrimSpace(rec[outCol]), 64); err != nil {
				return nil, fmt.Errorf("csv: line %d: outcome %q is not numeric", line, rec[outCol])
			}
		}

		row := make([]int32, len(cols))
		for k, j := range cols {
			if isMissing(rec[j]) {
				row[k] = covmatch.Missing
				continue
			}
			row[k] = dict.code(names[k], strings.TrimSpace(rec[j]))
		}
		table.Units = append(table.Units, covmatch.Unit{Covariates: row, Treatment: treatment, Outcome: outcome})
	}
	return table, nil
}
