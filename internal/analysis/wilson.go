// Package analysis implements the pre-registered statistical procedures:
// Wilson intervals, Benjamini-Hochberg correction, equivalence testing, and
// the mixed-effects logistic model. Everything here is a pure function of
// its inputs so a report can be recomputed bit-for-bit from a frozen log.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"feastbench/domain/analysis"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// zForConfidence returns the two-sided critical value for a confidence level
func zForConfidence(confidence float64) float64 {
	return stdNormal.Quantile(1 - (1-confidence)/2)
}

// Wilson computes the Wilson score interval for successes out of n at the
// given confidence. Unlike the Wald interval it stays inside [0, 1] and
// gives a nonzero upper bound at zero successes, which is exactly the case
// floor-level accuracy cells hit.
func Wilson(successes, n int, confidence float64) analysis.Interval {
	if n <= 0 {
		return analysis.Interval{Lower: 0, Upper: 1, Confidence: confidence}
	}

	z := zForConfidence(confidence)
	p := float64(successes) / float64(n)
	nf := float64(n)
	z2 := z * z

	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	half := z * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf)) / denom

	lower := center - half
	upper := center + half
	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}
	return analysis.Interval{Lower: lower, Upper: upper, Confidence: confidence}
}
