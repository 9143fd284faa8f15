package app

import (
	"context"
	"fmt"
	"testing"

	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
	"feastbench/internal/testkit"
)

func newScoringService(t *testing.T, policy record.AttemptPolicy, log *testkit.MemoryQueryLog) *ScoringService {
	t.Helper()
	svc, err := NewScoringService(log, policy, internal.NewLogger(internal.LogLevelError, "test"))
	if err != nil {
		t.Fatalf("scoring service: %v", err)
	}
	return svc
}

// seedRecords appends one response per item in the manifest under a single
// model and template.
func seedRecords(t *testing.T, log *testkit.MemoryQueryLog, runID core.RunID, manifest *corpus.Manifest, respond func(corpus.TestItem) string) {
	t.Helper()
	for _, item := range manifest.Items {
		rec := record.QueryRecord{
			Key: record.Key{
				ItemID:     item.ID,
				ModelID:    "model-a",
				TemplateID: "tpl-minimal",
				Attempt:    1,
			},
			RunID:       runID,
			RawResponse: respond(item),
			CreatedAt:   core.Now(),
		}
		if err := log.Append(context.Background(), rec); err != nil {
			t.Fatalf("seed append: %v", err)
		}
	}
}

func TestScoreRunGroundTruthEchoIsCorrect(t *testing.T) {
	manifest := smallManifest(t)
	log := testkit.NewMemoryQueryLog()
	runID := core.RunID(core.NewID())

	// A responder that echoes the oracle: the canonical label on positives,
	// an empty set on negatives.
	seedRecords(t, log, runID, manifest, func(item corpus.TestItem) string {
		if item.Type == corpus.ItemPositive {
			return fmt.Sprintf(`{"holidays": [%q]}`, item.AcceptedLabels[0])
		}
		return `{"holidays": []}`
	})

	outcomes, err := newScoringService(t, record.AttemptFirst, log).ScoreRun(context.Background(), runID, manifest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if len(outcomes) != len(manifest.Items) {
		t.Fatalf("outcomes: want %d, got %d", len(manifest.Items), len(outcomes))
	}
	for _, o := range outcomes {
		if o.Class != record.OutcomeCorrect {
			t.Errorf("echoing the ground truth must score correct, got %s for %s", o.Class, o.Key)
		}
		if !o.Primary {
			t.Errorf("single attempts are always primary: %s", o.Key)
		}
	}
}

func TestScoreRunRescoringIsIdentical(t *testing.T) {
	manifest := smallManifest(t)
	log := testkit.NewMemoryQueryLog()
	runID := core.RunID(core.NewID())
	seedRecords(t, log, runID, manifest, func(item corpus.TestItem) string {
		return `{"holidays": ["easter"]}`
	})

	svc := newScoringService(t, record.AttemptFirst, log)
	first, err := svc.ScoreRun(context.Background(), runID, manifest)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	second, err := svc.ScoreRun(context.Background(), runID, manifest)
	if err != nil {
		t.Fatalf("rescore failed: %v", err)
	}
	for i := range first {
		if first[i].Class != second[i].Class || first[i].Primary != second[i].Primary {
			t.Errorf("rescoring drifted at %s", first[i].Key)
		}
	}
}

func TestScoreRunAttemptPolicy(t *testing.T) {
	manifest := smallManifest(t)
	item := manifest.Items[0]
	runID := core.RunID(core.NewID())

	log := testkit.NewMemoryQueryLog()
	for attempt := 1; attempt <= 2; attempt++ {
		rec := record.QueryRecord{
			Key: record.Key{
				ItemID: item.ID, ModelID: "model-a", TemplateID: "tpl-minimal", Attempt: attempt,
			},
			RunID:       runID,
			RawResponse: `{"holidays": []}`,
			CreatedAt:   core.Now(),
		}
		if err := log.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	check := func(policy record.AttemptPolicy, wantPrimary int) {
		outcomes, err := newScoringService(t, policy, log).ScoreRun(context.Background(), runID, manifest)
		if err != nil {
			t.Fatalf("%s: score failed: %v", policy, err)
		}
		for _, o := range outcomes {
			if o.Primary != (o.Key.Attempt == wantPrimary) {
				t.Errorf("%s policy: attempt %d primary=%v", policy, o.Key.Attempt, o.Primary)
			}
		}
	}
	check(record.AttemptFirst, 1)
	check(record.AttemptFinal, 2)
}

func TestScoringServiceRejectsInvalidPolicy(t *testing.T) {
	_, err := NewScoringService(testkit.NewMemoryQueryLog(), "median", internal.NewLogger(internal.LogLevelError, "test"))
	if err == nil {
		t.Error("invalid attempt policy must be rejected")
	}
}

func TestScoreRunEmptyLog(t *testing.T) {
	manifest := smallManifest(t)
	log := testkit.NewMemoryQueryLog()
	_, err := newScoringService(t, record.AttemptFirst, log).ScoreRun(context.Background(), core.RunID(core.NewID()), manifest)
	if err == nil {
		t.Error("scoring an empty run should fail loudly")
	}
}
