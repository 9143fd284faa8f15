package app

import (
	"testing"

	domain "feastbench/domain/analysis"
	"feastbench/domain/calendar"
	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
)

func analysisManifest(t *testing.T) *corpus.Manifest {
	t.Helper()
	cfg := testRegistration()
	universe := Universe{
		Version: "analysis-test",
		Strata: map[string][]int{
			"historical": {2016},
			"recent":     {2024},
		},
		Languages: map[calendar.Holiday][]corpus.Language{
			calendar.HolidayEaster:    {corpus.LanguageEnglish},
			calendar.HolidayChristmas: {corpus.LanguageEnglish},
		},
		Conventions: map[calendar.Holiday][]calendar.Convention{
			calendar.HolidayEaster: {calendar.ConventionWestern},
		},
		Conditions: []corpus.PromptCondition{
			{TemplateID: "tpl-minimal", Category: corpus.ConditionMinimal},
			{TemplateID: "tpl-cot", Category: corpus.ConditionChainOfThought},
		},
	}
	manifest, err := newCorpusService(t, cfg).Generate(universe)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return manifest
}

// syntheticOutcomes fabricates primary outcomes over the full item x model x
// template grid with a deterministic success pattern that varies along every
// factor without separating any of them.
func syntheticOutcomes(manifest *corpus.Manifest) []record.ScoredOutcome {
	models := []core.ModelID{"model-a", "model-b"}
	var out []record.ScoredOutcome
	for i, item := range manifest.Items {
		for m, model := range models {
			for c, cond := range manifest.Conditions {
				class := record.OutcomeCorrect
				switch (i + m + c) % 4 {
				case 0:
					class = record.OutcomeIncorrect
				case 1:
					if m == 1 {
						class = record.OutcomeRefusal
					}
				}
				out = append(out, record.ScoredOutcome{
					Key: record.Key{
						ItemID:     item.ID,
						ModelID:    model,
						TemplateID: cond.TemplateID,
						Attempt:    1,
					},
					Class:   class,
					Method:  record.ParseJSON,
					Primary: true,
				})
			}
		}
	}
	return out
}

func newAnalysisService(minCellN int) *AnalysisService {
	cfg := testRegistration()
	cfg.MinCellN = minCellN
	return NewAnalysisService(cfg, internal.NewLogger(internal.LogLevelError, "test"))
}

func TestAggregateCounts(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)

	cells, err := newAnalysisService(1).Aggregate(manifest, outcomes, []string{"model"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	if len(cells) != 2 {
		t.Fatalf("want 2 model cells, got %d", len(cells))
	}

	total := 0
	for _, cell := range cells {
		total += cell.N
		if cell.Rate < 0 || cell.Rate > 1 {
			t.Errorf("cell %s rate out of range: %f", cell.Key, cell.Rate)
		}
		if cell.Wilson.Lower > cell.Rate || cell.Wilson.Upper < cell.Rate {
			t.Errorf("cell %s interval excludes its own rate", cell.Key)
		}
		if cell.Successes > cell.N {
			t.Errorf("cell %s successes exceed n", cell.Key)
		}
	}
	if want := len(outcomes); total != want {
		t.Errorf("cells should partition the outcomes: %d vs %d", total, want)
	}
}

func TestAggregateRefusalsReportedSeparately(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)

	cells, err := newAnalysisService(1).Aggregate(manifest, outcomes, []string{"model"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	refusals := 0
	for _, cell := range cells {
		refusals += cell.Refusals
	}
	if refusals == 0 {
		t.Error("synthetic pattern includes refusals; they must appear as a standalone count")
	}
}

func TestAggregateUnderpoweredFlag(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)

	cells, err := newAnalysisService(10000).Aggregate(manifest, outcomes, []string{"model"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}
	for _, cell := range cells {
		if !cell.Underpowered {
			t.Errorf("cell %s (n=%d) should be flagged under min cell n", cell.Key, cell.N)
		}
		if cell.ReasonCode == "" {
			t.Errorf("underpowered cell %s carries no reason code", cell.Key)
		}
	}
}

func TestAggregateSkipsExcludedItems(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)

	baseline, err := newAnalysisService(1).Aggregate(manifest, outcomes, []string{"model"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	manifest.Items[0].Excluded = corpus.ExclusionComputationAmbiguous
	reduced, err := newAnalysisService(1).Aggregate(manifest, outcomes, []string{"model"})
	if err != nil {
		t.Fatalf("aggregate failed: %v", err)
	}

	var nBase, nReduced int
	for _, c := range baseline {
		nBase += c.N
	}
	for _, c := range reduced {
		nReduced += c.N
	}
	if nReduced >= nBase {
		t.Errorf("excluding an item must shrink inference counts: %d vs %d", nReduced, nBase)
	}
}

func TestEvaluateFamilies(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)
	svc := newAnalysisService(1)

	families := []domain.Family{
		NewFamily(manifest.Hash, "conditions", []domain.Hypothesis{
			{TestID: "cot_vs_minimal", Mode: domain.ModeSuperiority, Factor: "category",
				LevelA: "chain_of_thought", LevelB: "minimal"},
		}),
		NewFamily(manifest.Hash, "systems", []domain.Hypothesis{
			{TestID: "easter_vs_fixed_equiv", Mode: domain.ModeEquivalence, Factor: "system",
				LevelA: "computus_easter", LevelB: "gregorian_fixed", Margin: 0.20},
		}),
	}

	results, err := svc.EvaluateFamilies(manifest, outcomes, families)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.PValue < 0 || r.PValue > 1 {
			t.Errorf("%s: p out of range: %f", r.TestID, r.PValue)
		}
		if r.PAdjusted < r.PValue-1e-15 {
			t.Errorf("%s: adjusted p below raw p", r.TestID)
		}
		if r.N == 0 {
			t.Errorf("%s: n not recorded", r.TestID)
		}
		if r.FamilyHash == "" {
			t.Errorf("%s: family hash missing", r.TestID)
		}
	}
}

func TestEvaluateFamiliesSkipsUnderpoweredContrasts(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)
	svc := newAnalysisService(10000)

	families := []domain.Family{
		NewFamily(manifest.Hash, "conditions", []domain.Hypothesis{
			{TestID: "cot_vs_minimal", Mode: domain.ModeSuperiority, Factor: "category",
				LevelA: "chain_of_thought", LevelB: "minimal"},
		}),
		NewFamily(manifest.Hash, "systems", []domain.Hypothesis{
			{TestID: "easter_vs_fixed_equiv", Mode: domain.ModeEquivalence, Factor: "system",
				LevelA: "computus_easter", LevelB: "gregorian_fixed", Margin: 0.20},
		}),
	}

	results, err := svc.EvaluateFamilies(manifest, outcomes, families)
	if err != nil {
		t.Fatalf("an underpowered contrast must not abort evaluation: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Underpowered {
			t.Errorf("%s: contrast below the minimum cell n must be flagged", r.TestID)
		}
		if r.PValue != 1 || r.PAdjusted != 1 {
			t.Errorf("%s: skipped contrast must carry p=1, got %f/%f", r.TestID, r.PValue, r.PAdjusted)
		}
		if r.Statistic != 0 {
			t.Errorf("%s: no statistic should be fabricated for a skipped contrast", r.TestID)
		}
		if r.Detail == "" {
			t.Errorf("%s: skipped contrast carries no detail", r.TestID)
		}
	}
}

func TestEvaluateFamiliesRejectsTampering(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)
	svc := newAnalysisService(1)

	fam := NewFamily(manifest.Hash, "conditions", []domain.Hypothesis{
		{TestID: "cot_vs_minimal", Mode: domain.ModeSuperiority, Factor: "category",
			LevelA: "chain_of_thought", LevelB: "minimal"},
	})
	// Adding a member after the hash was frozen must be refused.
	fam.Hypotheses = append(fam.Hypotheses, domain.Hypothesis{
		TestID: "added_later", Mode: domain.ModeEquivalence, Factor: "system",
		LevelA: "computus_easter", LevelB: "gregorian_fixed", Margin: 0.2,
	})

	_, err := svc.EvaluateFamilies(manifest, outcomes, []domain.Family{fam})
	if err == nil {
		t.Fatal("a family edited after registration must fail")
	}
}

func TestReportAssembly(t *testing.T) {
	manifest := analysisManifest(t)
	outcomes := syntheticOutcomes(manifest)
	svc := newAnalysisService(1)

	fam := NewFamily(manifest.Hash, "systems", []domain.Hypothesis{
		{TestID: "easter_vs_fixed_equiv", Mode: domain.ModeEquivalence, Factor: "system",
			LevelA: "computus_easter", LevelB: "gregorian_fixed", Margin: 0.20},
	})

	report, err := svc.Report(core.RunID(core.NewID()), manifest, outcomes, []string{"model", "system"}, []domain.Family{fam})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.CorpusHash != manifest.Hash {
		t.Error("report must pin the corpus hash")
	}
	if len(report.Cells) == 0 || len(report.Results) == 0 {
		t.Error("report missing cells or results")
	}
	if report.Spread.Cells == 0 {
		t.Error("report must summarize the rate spread of powered cells")
	}
	if report.Spread.Min > report.Spread.Median || report.Spread.Median > report.Spread.Max {
		t.Errorf("spread order statistics inconsistent: %+v", report.Spread)
	}
}
