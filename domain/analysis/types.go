// Package analysis defines the derived statistical views: per-cell
// aggregates with Wilson intervals and hypothesis results with multiplicity
// control. Both are recomputable from the frozen record log at any time.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"feastbench/domain/core"
)

// CellKey is a group-by key over scored outcomes. Dimensions are ordered and
// rendered canonically so the same grouping always maps to the same cell.
type CellKey map[string]string

// String renders the key canonically (sorted dimension=value pairs)
func (k CellKey) String() string {
	dims := make([]string, 0, len(k))
	for d := range k {
		dims = append(dims, d)
	}
	sort.Strings(dims)
	parts := make([]string, 0, len(dims))
	for _, d := range dims {
		parts = append(parts, fmt.Sprintf("%s=%s", d, k[d]))
	}
	return strings.Join(parts, ",")
}

// Interval is a binomial confidence interval, bounds always within [0, 1]
type Interval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// AggregateCell is one group-by cell: counts plus its Wilson score interval
type AggregateCell struct {
	Key       CellKey  `json:"key"`
	N         int      `json:"n"`
	Successes int      `json:"successes"`
	Rate      float64  `json:"rate"`
	Wilson    Interval `json:"wilson"`
	// Secondary rates, reported alongside the primary endpoint
	Refusals  int `json:"refusals"`
	Malformed int `json:"malformed"`
	// Underpowered cells are excluded from inference and flagged rather than
	// reported with a misleadingly wide interval.
	Underpowered bool   `json:"underpowered"`
	ReasonCode   string `json:"reason_code,omitempty"`
}

// TestMode is the inference mode fixed per hypothesis at pre-registration
type TestMode string

const (
	ModeSuperiority TestMode = "superiority"
	ModeEquivalence TestMode = "equivalence"
)

// Hypothesis is one pre-registered contrast
type Hypothesis struct {
	TestID string   `json:"test_id"`
	Mode   TestMode `json:"mode"`
	// Factor and the two levels being contrasted on model-adjusted means
	Factor string `json:"factor"`
	LevelA string `json:"level_a"`
	LevelB string `json:"level_b"`
	// Margin is the pre-declared equivalence margin; only meaningful for
	// ModeEquivalence.
	Margin float64 `json:"margin,omitempty"`
}

// Family is a pre-declared set of simultaneous contrasts receiving one
// independent FDR correction. Families are frozen before results are
// observed and never merged or re-split afterwards.
type Family struct {
	Name       string          `json:"name"`
	Hash       core.FamilyHash `json:"hash"`
	Hypotheses []Hypothesis    `json:"hypotheses"`
}

// HypothesisResult is the outcome of one pre-registered test
type HypothesisResult struct {
	TestID     string          `json:"test_id"`
	FamilyHash core.FamilyHash `json:"family_hash"`
	Mode       TestMode        `json:"mode"`
	Statistic  float64         `json:"statistic"`
	PValue     float64         `json:"p_value"`
	// PAdjusted is the BH-adjusted p-value; always >= PValue, rank-preserving
	// within the family.
	PAdjusted  float64 `json:"p_adjusted"`
	EffectSize float64 `json:"effect_size"`
	N          int     `json:"n"`
	// Underpowered contrasts are never tested: they enter the family's
	// adjustment at p=1 so ranks are untouched, and are flagged rather than
	// reported with a fabricated statistic.
	Underpowered bool   `json:"underpowered,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// RateSummary describes the spread of accuracy rates across a set of cells.
// It is descriptive only and feeds the report narrative, never inference.
type RateSummary struct {
	Cells  int     `json:"cells"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Report is the full derived view handed to external report generation
type Report struct {
	RunID      core.RunID         `json:"run_id"`
	CorpusHash core.CorpusHash    `json:"corpus_hash"`
	Cells      []AggregateCell    `json:"cells"`
	Results    []HypothesisResult `json:"results"`
	// Spread summarizes the accuracy rates of the powered cells
	Spread    RateSummary    `json:"spread"`
	CreatedAt core.Timestamp `json:"created_at"`
}
