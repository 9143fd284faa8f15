package analysis

import "math"

// TOSTResult is the outcome of two one-sided tests against a pre-declared
// equivalence margin on a difference of proportions.
type TOSTResult struct {
	Difference float64
	SE         float64
	PLower     float64
	PUpper     float64
	// PValue is the TOST p-value: the larger of the two one-sided p-values.
	PValue float64
}

// TOST runs two one-sided tests for equivalence of two proportions within
// +/- margin. Equivalence is concluded only when both one-sided nulls are
// rejected; absence of a superiority signal is never treated as equivalence.
func TOST(successA, nA, successB, nB int, margin float64) TOSTResult {
	pA := float64(successA) / float64(nA)
	pB := float64(successB) / float64(nB)
	d := pA - pB

	se := math.Sqrt(pA*(1-pA)/float64(nA) + pB*(1-pB)/float64(nB))
	if se == 0 {
		// Degenerate cells (all successes or all failures on both sides).
		// A zero observed variance cannot support an equivalence claim.
		return TOSTResult{Difference: d, SE: 0, PLower: 1, PUpper: 1, PValue: 1}
	}

	zLower := (d + margin) / se // H0: d <= -margin
	zUpper := (margin - d) / se // H0: d >= +margin

	pLower := 1 - stdNormal.CDF(zLower)
	pUpper := 1 - stdNormal.CDF(zUpper)

	return TOSTResult{
		Difference: d,
		SE:         se,
		PLower:     pLower,
		PUpper:     pUpper,
		PValue:     math.Max(pLower, pUpper),
	}
}

// TwoProportionZ is the superiority counterpart: a pooled two-proportion
// z-test of H0: pA == pB.
func TwoProportionZ(successA, nA, successB, nB int) (z, p float64) {
	pA := float64(successA) / float64(nA)
	pB := float64(successB) / float64(nB)
	pooled := float64(successA+successB) / float64(nA+nB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(nA) + 1/float64(nB)))
	if se == 0 {
		return 0, 1
	}
	z = (pA - pB) / se
	p = 2 * (1 - stdNormal.CDF(math.Abs(z)))
	return z, p
}
