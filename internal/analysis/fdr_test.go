package analysis

import (
	"math"
	"sort"
	"testing"
)

func TestBenjaminiHochbergKnownValues(t *testing.T) {
	p := []float64{0.01, 0.04, 0.03, 0.005}
	adj := BenjaminiHochberg(p)

	// Hand-computed step-up: sorted p = .005, .01, .03, .04
	// raw*m/rank = .02, .02, .04, .04; cumulative min from the top keeps them.
	want := []float64{0.02, 0.04, 0.04, 0.02}
	for i := range want {
		if math.Abs(adj[i]-want[i]) > 1e-12 {
			t.Errorf("adjusted[%d]: want %f, got %f", i, want[i], adj[i])
		}
	}
}

func TestBenjaminiHochbergNeverBelowRaw(t *testing.T) {
	p := []float64{0.2, 0.001, 0.7, 0.049, 0.4, 0.05}
	adj := BenjaminiHochberg(p)
	for i := range p {
		if adj[i] < p[i]-1e-15 {
			t.Errorf("adjusted p %f fell below raw %f", adj[i], p[i])
		}
		if adj[i] > 1 {
			t.Errorf("adjusted p %f exceeds 1", adj[i])
		}
	}
}

func TestBenjaminiHochbergRankPreserving(t *testing.T) {
	p := []float64{0.11, 0.02, 0.9, 0.035, 0.005, 0.5}
	adj := BenjaminiHochberg(p)

	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })
	for r := 1; r < len(idx); r++ {
		if adj[idx[r]] < adj[idx[r-1]]-1e-15 {
			t.Errorf("adjusted values not monotone in raw rank order: %v -> %v", adj[idx[r-1]], adj[idx[r]])
		}
	}
}

func TestBenjaminiHochbergSingle(t *testing.T) {
	adj := BenjaminiHochberg([]float64{0.03})
	if adj[0] != 0.03 {
		t.Errorf("a single test needs no correction, got %f", adj[0])
	}
	if BenjaminiHochberg(nil) != nil {
		t.Error("empty input should return nil")
	}
}

func TestBenjaminiHochbergPerFamilyIndependence(t *testing.T) {
	// Correcting two families separately must not equal correcting the pool.
	famA := []float64{0.01, 0.02}
	famB := []float64{0.03, 0.04}
	sep := append(BenjaminiHochberg(famA), BenjaminiHochberg(famB)...)
	pooled := BenjaminiHochberg(append(append([]float64{}, famA...), famB...))

	same := true
	for i := range sep {
		if math.Abs(sep[i]-pooled[i]) > 1e-12 {
			same = false
		}
	}
	if same {
		t.Error("per-family and pooled corrections should differ on this input")
	}
}
