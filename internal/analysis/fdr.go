package analysis

import "sort"

// BenjaminiHochberg returns BH step-up adjusted p-values in the input order.
// The adjustment is applied within one family only; the caller never pools
// p-values across families. Adjusted values are rank-preserving, monotone
// after the cumulative-minimum pass, and never below their raw value.
func BenjaminiHochberg(pvalues []float64) []float64 {
	m := len(pvalues)
	if m == 0 {
		return nil
	}

	idx := make([]int, m)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return pvalues[idx[a]] < pvalues[idx[b]] })

	adjusted := make([]float64, m)
	minSoFar := 1.0
	for rank := m - 1; rank >= 0; rank-- {
		i := idx[rank]
		v := pvalues[i] * float64(m) / float64(rank+1)
		if v < minSoFar {
			minSoFar = v
		}
		if minSoFar > 1 {
			adjusted[i] = 1
		} else {
			adjusted[i] = minSoFar
		}
	}
	return adjusted
}
