package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"feastbench/domain/core"
)

// Observation is one scored primary outcome prepared for model fitting.
type Observation struct {
	Success bool
	// Fixed maps a fixed factor name to the observed level.
	Fixed map[string]string
	// The three crossed grouping factors. Each gets its own random
	// intercept; they are never merged into a single grouping.
	Model    string
	Content  string
	Template string
}

// GLMMSpec fixes the model structure before fitting.
type GLMMSpec struct {
	// FixedFactors lists the dummy-coded fixed factors in order. The first
	// level (alphabetically) of each factor is the reference.
	FixedFactors []string
	MaxOuterIter int
	MaxIRLSIter  int
	Tol          float64
}

// DefaultGLMMSpec returns the pre-registered fitting configuration
func DefaultGLMMSpec(factors ...string) GLMMSpec {
	return GLMMSpec{
		FixedFactors: factors,
		MaxOuterIter: 20,
		MaxIRLSIter:  50,
		Tol:          1e-6,
	}
}

// GLMMFit is a fitted logistic model with three crossed random intercepts.
// Random effects are estimated as ridge-penalized intercept columns with
// block variances updated by Schall's algorithm, a penalized-quasi-likelihood
// scheme that needs nothing beyond weighted least squares.
type GLMMFit struct {
	Intercept    float64
	Coefficients map[string]float64
	SE           map[string]float64

	VarModel    float64
	VarContent  float64
	VarTemplate float64

	Converged bool
	NObs      int

	colIndex map[string]int
	cov      *mat.Dense
}

type effectBlock struct {
	name   string
	levels []string
	start  int // column offset of the first level
}

// FitGLMM fits success ~ fixed factors + (1|model) + (1|content) +
// (1|template) by penalized IRLS.
func FitGLMM(obs []Observation, spec GLMMSpec) (*GLMMFit, error) {
	n := len(obs)
	if n == 0 {
		return nil, core.ErrInsufficientData
	}

	// Column layout: intercept, dummy columns per fixed factor, then one
	// column per level of each random block.
	colIndex := map[string]int{}
	cols := 1 // intercept

	for _, f := range spec.FixedFactors {
		levels := distinctLevels(obs, func(o Observation) string { return o.Fixed[f] })
		if len(levels) < 2 {
			return nil, fmt.Errorf("fixed factor %q has %d observed level(s)", f, len(levels))
		}
		for _, lvl := range levels[1:] { // levels[0] is the reference
			colIndex[f+"="+lvl] = cols
			cols++
		}
	}

	blocks := make([]*effectBlock, 0, 3)
	for _, b := range []struct {
		name string
		key  func(Observation) string
	}{
		{"model", func(o Observation) string { return o.Model }},
		{"content", func(o Observation) string { return o.Content }},
		{"template", func(o Observation) string { return o.Template }},
	} {
		levels := distinctLevels(obs, b.key)
		blk := &effectBlock{name: b.name, levels: levels, start: cols}
		for _, lvl := range levels {
			colIndex[b.name+":"+lvl] = cols
			cols++
		}
		blocks = append(blocks, blk)
	}

	x := mat.NewDense(n, cols, nil)
	y := make([]float64, n)
	for i, o := range obs {
		if o.Success {
			y[i] = 1
		}
		x.Set(i, 0, 1)
		for _, f := range spec.FixedFactors {
			if j, ok := colIndex[f+"="+o.Fixed[f]]; ok {
				x.Set(i, j, 1)
			}
		}
		x.Set(i, colIndex["model:"+o.Model], 1)
		x.Set(i, colIndex["content:"+o.Content], 1)
		x.Set(i, colIndex["template:"+o.Template], 1)
	}

	beta := make([]float64, cols)
	variances := map[string]float64{"model": 1, "content": 1, "template": 1}

	var cov *mat.Dense
	converged := false

	for outer := 0; outer < spec.MaxOuterIter; outer++ {
		var innerOK bool
		var err error
		beta, cov, innerOK, err = penalizedIRLS(x, y, beta, blocks, variances, spec)
		if err != nil {
			return nil, err
		}

		// Schall variance update per block: sigma^2 = u'u / (q - tr(C_bb)/sigma^2)
		maxRel := 0.0
		for _, blk := range blocks {
			q := len(blk.levels)
			var uu, trc float64
			for j := 0; j < q; j++ {
				u := beta[blk.start+j]
				uu += u * u
				trc += cov.At(blk.start+j, blk.start+j)
			}
			old := variances[blk.name]
			nu := float64(q) - trc/old
			if nu < 1e-3 {
				nu = 1e-3
			}
			next := uu / nu
			if next < 1e-6 {
				next = 1e-6
			}
			rel := math.Abs(next-old) / (old + 1e-12)
			if rel > maxRel {
				maxRel = rel
			}
			variances[blk.name] = next
		}

		if innerOK && maxRel < spec.Tol*100 {
			converged = true
			break
		}
	}

	fit := &GLMMFit{
		Intercept:    beta[0],
		Coefficients: map[string]float64{},
		SE:           map[string]float64{},
		VarModel:     variances["model"],
		VarContent:   variances["content"],
		VarTemplate:  variances["template"],
		Converged:    converged,
		NObs:         n,
		colIndex:     colIndex,
		cov:          cov,
	}
	for name, j := range colIndex {
		fit.Coefficients[name] = beta[j]
		fit.SE[name] = math.Sqrt(math.Max(cov.At(j, j), 0))
	}
	return fit, nil
}

// penalizedIRLS runs IRLS to convergence for fixed variance components,
// returning the solution and the inverse penalized information matrix.
func penalizedIRLS(x *mat.Dense, y, beta0 []float64, blocks []*effectBlock, variances map[string]float64, spec GLMMSpec) (beta []float64, cov *mat.Dense, converged bool, err error) {
	n, p := x.Dims()
	beta = append([]float64(nil), beta0...)

	penalty := make([]float64, p)
	for _, blk := range blocks {
		lambda := 1 / variances[blk.name]
		for j := 0; j < len(blk.levels); j++ {
			penalty[blk.start+j] = lambda
		}
	}

	eta := make([]float64, n)
	w := make([]float64, n)
	z := make([]float64, n)

	var a mat.Dense
	var rhs mat.VecDense

	for iter := 0; iter < spec.MaxIRLSIter; iter++ {
		for i := 0; i < n; i++ {
			var e float64
			for j := 0; j < p; j++ {
				e += x.At(i, j) * beta[j]
			}
			eta[i] = e
			mu := 1 / (1 + math.Exp(-e))
			// Clamp so separated cells cannot zero the weight.
			if mu < 1e-6 {
				mu = 1e-6
			} else if mu > 1-1e-6 {
				mu = 1 - 1e-6
			}
			w[i] = mu * (1 - mu)
			z[i] = e + (y[i]-mu)/w[i]
		}

		// A = X'WX + P, rhs = X'Wz
		a.Reset()
		a.ReuseAs(p, p)
		rhs.Reset()
		rhs.ReuseAsVec(p)
		for i := 0; i < n; i++ {
			for j := 0; j < p; j++ {
				xij := x.At(i, j)
				if xij == 0 {
					continue
				}
				wx := w[i] * xij
				rhs.SetVec(j, rhs.AtVec(j)+wx*z[i])
				for k := j; k < p; k++ {
					xik := x.At(i, k)
					if xik == 0 {
						continue
					}
					a.Set(j, k, a.At(j, k)+wx*xik)
				}
			}
		}
		for j := 0; j < p; j++ {
			a.Set(j, j, a.At(j, j)+penalty[j])
			for k := j + 1; k < p; k++ {
				a.Set(k, j, a.At(j, k))
			}
		}

		var inv mat.Dense
		if err := inv.Inverse(&a); err != nil {
			return nil, nil, false, fmt.Errorf("penalized information matrix is singular: %w", err)
		}

		var next mat.VecDense
		next.MulVec(&inv, &rhs)

		maxDelta := 0.0
		for j := 0; j < p; j++ {
			d := math.Abs(next.AtVec(j) - beta[j])
			if d > maxDelta {
				maxDelta = d
			}
			beta[j] = next.AtVec(j)
		}
		cov = &inv

		if maxDelta < spec.Tol {
			return beta, cov, true, nil
		}
	}
	return beta, cov, false, nil
}

// Contrast returns the Wald test for levelA - levelB of a fixed factor on
// the log-odds scale. The reference level contributes a zero coefficient
// with zero variance apart from its covariance terms, which the dummy
// coding already absorbs.
func (f *GLMMFit) Contrast(factor, levelA, levelB string) (estimate, se, z, p float64, err error) {
	c := make([]float64, 0, 2)
	idx := make([]int, 0, 2)

	if j, ok := f.colIndex[factor+"="+levelA]; ok {
		c = append(c, 1)
		idx = append(idx, j)
	}
	if j, ok := f.colIndex[factor+"="+levelB]; ok {
		c = append(c, -1)
		idx = append(idx, j)
	}
	if len(idx) == 0 {
		return 0, 0, 0, 1, fmt.Errorf("contrast %s: %s vs %s names no fitted coefficient", factor, levelA, levelB)
	}

	var est, variance float64
	for a, ja := range idx {
		est += c[a] * f.coefAt(ja)
		for b, jb := range idx {
			variance += c[a] * c[b] * f.cov.At(ja, jb)
		}
	}
	if variance <= 0 {
		return est, 0, 0, 1, fmt.Errorf("contrast %s: non-positive variance", factor)
	}

	se = math.Sqrt(variance)
	z = est / se
	p = 2 * (1 - stdNormal.CDF(math.Abs(z)))
	return est, se, z, p, nil
}

func (f *GLMMFit) coefAt(j int) float64 {
	for name, idx := range f.colIndex {
		if idx == j {
			return f.Coefficients[name]
		}
	}
	return 0
}

func distinctLevels(obs []Observation, key func(Observation) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, o := range obs {
		k := key(o)
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
