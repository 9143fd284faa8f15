package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
)

// syntheticObs generates crossed data with a known fixed effect of the
// calendar system and mild heterogeneity across models and contents.
func syntheticObs(seed int64) []Observation {
	rng := rand.New(rand.NewSource(seed))
	models := []string{"alpha", "beta", "gamma"}
	systems := []string{"fixed", "lunisolar"}
	templates := []string{"t-min", "t-cot"}

	modelShift := map[string]float64{"alpha": 0.4, "beta": 0.0, "gamma": -0.4}

	var obs []Observation
	for _, m := range models {
		for _, s := range systems {
			for _, tpl := range templates {
				for c := 0; c < 25; c++ {
					content := fmt.Sprintf("%s-c%02d", s, c)
					logit := 0.5 + modelShift[m]
					if s == "lunisolar" {
						logit -= 1.5
					}
					p := 1 / (1 + math.Exp(-logit))
					obs = append(obs, Observation{
						Success:  rng.Float64() < p,
						Fixed:    map[string]string{"system": s},
						Model:    m,
						Content:  content,
						Template: tpl,
					})
				}
			}
		}
	}
	return obs
}

func TestFitGLMMRecoversFixedEffect(t *testing.T) {
	obs := syntheticObs(7)
	fit, err := FitGLMM(obs, DefaultGLMMSpec("system"))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	if fit.NObs != len(obs) {
		t.Errorf("NObs: want %d, got %d", len(obs), fit.NObs)
	}

	// "fixed" is the alphabetical reference; the lunisolar coefficient is
	// the log-odds shift and was generated at -1.5.
	coef, ok := fit.Coefficients["system=lunisolar"]
	if !ok {
		t.Fatalf("missing dummy coefficient; have %v", fit.Coefficients)
	}
	if coef > -0.5 {
		t.Errorf("lunisolar shift should be clearly negative, got %f", coef)
	}

	est, se, z, p, err := fit.Contrast("system", "lunisolar", "fixed")
	if err != nil {
		t.Fatalf("contrast failed: %v", err)
	}
	if math.Abs(est-coef) > 1e-9 {
		t.Errorf("contrast vs reference should equal the dummy coefficient: %f vs %f", est, coef)
	}
	if se <= 0 {
		t.Errorf("contrast se must be positive, got %f", se)
	}
	if z >= 0 || p >= 0.05 {
		t.Errorf("a 1.5 log-odds gap at n=%d should be significant: z=%f p=%f", len(obs), z, p)
	}
}

func TestFitGLMMThreeVarianceComponents(t *testing.T) {
	fit, err := FitGLMM(syntheticObs(11), DefaultGLMMSpec("system"))
	if err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	// The three groupings stay separate components; none collapses to the
	// others and all respect the variance floor.
	for name, v := range map[string]float64{
		"model":    fit.VarModel,
		"content":  fit.VarContent,
		"template": fit.VarTemplate,
	} {
		if v < 1e-6 {
			t.Errorf("variance component %s below floor: %g", name, v)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("variance component %s not finite: %g", name, v)
		}
	}
}

func TestFitGLMMDeterministic(t *testing.T) {
	obs := syntheticObs(3)
	a, err := FitGLMM(obs, DefaultGLMMSpec("system"))
	if err != nil {
		t.Fatalf("first fit failed: %v", err)
	}
	b, err := FitGLMM(obs, DefaultGLMMSpec("system"))
	if err != nil {
		t.Fatalf("second fit failed: %v", err)
	}
	for name, va := range a.Coefficients {
		if vb := b.Coefficients[name]; va != vb {
			t.Errorf("coefficient %s drifted between fits: %g vs %g", name, va, vb)
		}
	}
	if a.VarModel != b.VarModel || a.VarContent != b.VarContent || a.VarTemplate != b.VarTemplate {
		t.Error("variance components drifted between identical fits")
	}
}

func TestFitGLMMRejectsEmptyInput(t *testing.T) {
	if _, err := FitGLMM(nil, DefaultGLMMSpec("system")); err == nil {
		t.Error("empty input should fail")
	}
}

func TestFitGLMMRejectsConstantFactor(t *testing.T) {
	obs := syntheticObs(5)
	for i := range obs {
		obs[i].Fixed["system"] = "fixed"
	}
	if _, err := FitGLMM(obs, DefaultGLMMSpec("system")); err == nil {
		t.Error("a single-level fixed factor should fail")
	}
}
