package app

import (
	stderrors "errors"
	"fmt"
	"sort"

	domain "feastbench/domain/analysis"
	"feastbench/domain/calendar"
	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
	"feastbench/internal/analysis"
	"feastbench/internal/config"
)

// AnalysisService computes the derived statistical views from scored
// outcomes: per-cell aggregates with Wilson intervals and the pre-registered
// hypothesis tests with per-family FDR control.
type AnalysisService struct {
	cfg    config.RegistrationConfig
	logger *internal.Logger
}

func NewAnalysisService(cfg config.RegistrationConfig, logger *internal.Logger) *AnalysisService {
	return &AnalysisService{cfg: cfg, logger: logger.With("Analysis")}
}

// NewFamily freezes a hypothesis family against a corpus hash. The hash
// binds name and member test ids; EvaluateFamilies refuses any family whose
// hash no longer matches its content.
func NewFamily(corpusHash core.CorpusHash, name string, hypotheses []domain.Hypothesis) domain.Family {
	ids := make([]string, 0, len(hypotheses))
	for _, h := range hypotheses {
		ids = append(ids, h.TestID)
	}
	return domain.Family{
		Name:       name,
		Hash:       core.ComputeFamilyHash(corpusHash, name, ids),
		Hypotheses: hypotheses,
	}
}

// observationSet is the per-query view the engine works from: one row per
// primary outcome on a non-excluded item, with every factor level attached.
type observationSet struct {
	obs []analysis.Observation
	// dims holds the factor levels per row, including the grouping factors,
	// for aggregation and per-level counting.
	dims []map[string]string
	succ []bool
}

// buildObservations joins primary outcomes with their items and conditions.
// Refusal and Malformed count as failures on the primary endpoint here;
// their standalone rates are preserved by Aggregate.
func (s *AnalysisService) buildObservations(manifest *corpus.Manifest, outcomes []record.ScoredOutcome) (*observationSet, error) {
	categories := map[core.TemplateID]corpus.ConditionCategory{}
	for _, cond := range manifest.Conditions {
		categories[cond.TemplateID] = cond.Category
	}
	registry := calendar.DefaultRegistry()

	set := &observationSet{}
	for _, o := range outcomes {
		if !o.Primary {
			continue
		}
		item, err := manifest.Item(o.Key.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.Primary() {
			continue
		}

		category, ok := categories[o.Key.TemplateID]
		if !ok {
			return nil, fmt.Errorf("outcome %s references unknown template", o.Key)
		}
		system := string(registry[item.Holiday].System)

		fixed := map[string]string{
			"category": string(category),
			"stratum":  item.YearStratum,
			"holiday":  string(item.Holiday),
			"language": string(item.Language),
			"system":   system,
			"type":     string(item.Type),
		}
		dims := map[string]string{
			"model":    string(o.Key.ModelID),
			"template": string(o.Key.TemplateID),
			"class":    string(o.Class),
		}
		for k, v := range fixed {
			dims[k] = v
		}

		set.obs = append(set.obs, analysis.Observation{
			Success:  o.Class.Success(),
			Fixed:    fixed,
			Model:    string(o.Key.ModelID),
			Content:  string(o.Key.ItemID),
			Template: string(o.Key.TemplateID),
		})
		set.dims = append(set.dims, dims)
		set.succ = append(set.succ, o.Class.Success())
	}

	if len(set.obs) == 0 {
		return nil, core.ErrInsufficientData
	}
	return set, nil
}

// Aggregate groups primary outcomes by the given dimensions, attaching the
// Wilson interval and flagging cells under the registered minimum n.
func (s *AnalysisService) Aggregate(manifest *corpus.Manifest, outcomes []record.ScoredOutcome, groupBy []string) ([]domain.AggregateCell, error) {
	set, err := s.buildObservations(manifest, outcomes)
	if err != nil {
		return nil, err
	}

	cells := map[string]*domain.AggregateCell{}
	for i, dims := range set.dims {
		key := domain.CellKey{}
		for _, g := range groupBy {
			key[g] = dims[g]
		}
		ck := key.String()
		cell, ok := cells[ck]
		if !ok {
			cell = &domain.AggregateCell{Key: key}
			cells[ck] = cell
		}
		cell.N++
		if set.succ[i] {
			cell.Successes++
		}
		switch dims["class"] {
		case string(record.OutcomeRefusal):
			cell.Refusals++
		case string(record.OutcomeMalformed):
			cell.Malformed++
		}
	}

	out := make([]domain.AggregateCell, 0, len(cells))
	for _, cell := range cells {
		cell.Rate = float64(cell.Successes) / float64(cell.N)
		cell.Wilson = analysis.Wilson(cell.Successes, cell.N, s.cfg.Confidence)
		if cell.N < s.cfg.MinCellN {
			cell.Underpowered = true
			cell.ReasonCode = "below_min_cell_n"
		}
		out = append(out, *cell)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.String() < out[j].Key.String() })
	return out, nil
}

// EvaluateFamilies runs every pre-registered family against the outcomes.
// Superiority contrasts are Wald tests on the mixed-model fixed effects;
// equivalence contrasts run TOST on the raw level proportions. Adjustment
// is per family, never pooled.
func (s *AnalysisService) EvaluateFamilies(manifest *corpus.Manifest, outcomes []record.ScoredOutcome, families []domain.Family) ([]domain.HypothesisResult, error) {
	set, err := s.buildObservations(manifest, outcomes)
	if err != nil {
		return nil, err
	}

	// Re-derive each family hash; a family edited after registration fails
	// loudly instead of being silently corrected for.
	for _, fam := range families {
		ids := make([]string, 0, len(fam.Hypotheses))
		for _, h := range fam.Hypotheses {
			ids = append(ids, h.TestID)
		}
		if core.ComputeFamilyHash(manifest.Hash, fam.Name, ids) != fam.Hash {
			return nil, fmt.Errorf("%w: family %q", core.ErrFamilyTampered, fam.Name)
		}
	}

	factors := superiorityFactors(families)
	var fit *analysis.GLMMFit
	if len(factors) > 0 {
		fit, err = analysis.FitGLMM(set.obs, analysis.DefaultGLMMSpec(factors...))
		if err != nil {
			return nil, fmt.Errorf("mixed model fit: %w", err)
		}
		if !fit.Converged {
			s.logger.Warn("mixed model did not fully converge after %d observations", fit.NObs)
		}
	}

	var results []domain.HypothesisResult
	for _, fam := range families {
		famResults := make([]domain.HypothesisResult, 0, len(fam.Hypotheses))
		pvalues := make([]float64, 0, len(fam.Hypotheses))

		for _, hyp := range fam.Hypotheses {
			res, err := s.testHypothesis(hyp, fam.Hash, set, fit)
			if stderrors.Is(err, core.ErrUnderpowered) {
				// The contrast stays registered: it enters adjustment at
				// p=1, flagged, with no statistic fabricated for it.
				s.logger.Warn("family %q test %q skipped: %v", fam.Name, hyp.TestID, err)
				res.Underpowered = true
				res.PValue = 1
				res.Detail = fmt.Sprintf("skipped: level n below registered minimum %d", s.cfg.MinCellN)
				err = nil
			}
			if err != nil {
				return nil, fmt.Errorf("family %q test %q: %w", fam.Name, hyp.TestID, err)
			}
			famResults = append(famResults, res)
			pvalues = append(pvalues, res.PValue)
		}

		adjusted := analysis.BenjaminiHochberg(pvalues)
		for i := range famResults {
			famResults[i].PAdjusted = adjusted[i]
		}
		results = append(results, famResults...)
	}
	return results, nil
}

func (s *AnalysisService) testHypothesis(hyp domain.Hypothesis, famHash core.FamilyHash, set *observationSet, fit *analysis.GLMMFit) (domain.HypothesisResult, error) {
	succA, nA := levelCounts(set, hyp.Factor, hyp.LevelA)
	succB, nB := levelCounts(set, hyp.Factor, hyp.LevelB)
	if nA == 0 || nB == 0 {
		return domain.HypothesisResult{}, fmt.Errorf("%w: level %s or %s unobserved on %s",
			core.ErrInsufficientData, hyp.LevelA, hyp.LevelB, hyp.Factor)
	}

	result := domain.HypothesisResult{
		TestID:     hyp.TestID,
		FamilyHash: famHash,
		Mode:       hyp.Mode,
		N:          nA + nB,
	}

	// The same minimum n that flags aggregate cells gates inference here:
	// a contrast on an underpowered level is never tested.
	if nA < s.cfg.MinCellN || nB < s.cfg.MinCellN {
		return result, fmt.Errorf("%w: %s n=%d, %s n=%d, minimum %d",
			core.ErrUnderpowered, hyp.LevelA, nA, hyp.LevelB, nB, s.cfg.MinCellN)
	}

	switch hyp.Mode {
	case domain.ModeSuperiority:
		est, se, z, p, err := fit.Contrast(hyp.Factor, hyp.LevelA, hyp.LevelB)
		if err != nil {
			return domain.HypothesisResult{}, err
		}
		result.Statistic = z
		result.PValue = p
		result.EffectSize = est
		result.Detail = fmt.Sprintf("wald log-odds, se=%.4f", se)

	case domain.ModeEquivalence:
		margin := hyp.Margin
		if margin == 0 {
			margin = s.cfg.EquivalenceMargin
		}
		r := analysis.TOST(succA, nA, succB, nB, margin)
		result.Statistic = r.Difference / maxFloat(r.SE, 1e-12)
		result.PValue = r.PValue
		result.EffectSize = r.Difference
		result.Detail = fmt.Sprintf("tost margin=%.3f, se=%.4f", margin, r.SE)

	default:
		return domain.HypothesisResult{}, fmt.Errorf("unknown test mode %q", hyp.Mode)
	}
	return result, nil
}

// Report assembles the full derived view for a run
func (s *AnalysisService) Report(runID core.RunID, manifest *corpus.Manifest, outcomes []record.ScoredOutcome, groupBy []string, families []domain.Family) (*domain.Report, error) {
	cells, err := s.Aggregate(manifest, outcomes, groupBy)
	if err != nil {
		return nil, err
	}
	results, err := s.EvaluateFamilies(manifest, outcomes, families)
	if err != nil {
		return nil, err
	}

	spread, err := analysis.SummarizeRates(cells)
	if err != nil {
		// Every cell underpowered: the report still ships, without a spread.
		s.logger.Warn("rate spread unavailable: %v", err)
		spread = domain.RateSummary{}
	}

	s.logger.Info("report for run %s: %d cells, %d hypothesis results", runID, len(cells), len(results))
	return &domain.Report{
		RunID:      runID,
		CorpusHash: manifest.Hash,
		Cells:      cells,
		Results:    results,
		Spread:     spread,
		CreatedAt:  core.Now(),
	}, nil
}

func superiorityFactors(families []domain.Family) []string {
	seen := map[string]bool{}
	var out []string
	for _, fam := range families {
		for _, h := range fam.Hypotheses {
			if h.Mode == domain.ModeSuperiority && !seen[h.Factor] {
				seen[h.Factor] = true
				out = append(out, h.Factor)
			}
		}
	}
	sort.Strings(out)
	return out
}

func levelCounts(set *observationSet, factor, level string) (successes, n int) {
	for i, dims := range set.dims {
		if dims[factor] != level {
			continue
		}
		n++
		if set.succ[i] {
			successes++
		}
	}
	return successes, n
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
