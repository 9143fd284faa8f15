package app

import (
	"context"
	"testing"

	"feastbench/domain/calendar"
	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
	"feastbench/internal/config"
	"feastbench/internal/testkit"
	"feastbench/ports"
)

func testOrchestrator() config.OrchestratorConfig {
	return config.OrchestratorConfig{
		Workers:      4,
		MaxRetries:   2,
		RetryDelayMs: 1,
		BudgetTokens: 1 << 20,
	}
}

func smallManifest(t *testing.T) *corpus.Manifest {
	t.Helper()
	cfg := testRegistration()
	universe := Universe{
		Version: "test",
		Strata:  map[string][]int{"recent": {2024}},
		Languages: map[calendar.Holiday][]corpus.Language{
			calendar.HolidayEaster:    {corpus.LanguageEnglish},
			calendar.HolidayChristmas: {corpus.LanguageEnglish},
		},
		Conventions: map[calendar.Holiday][]calendar.Convention{
			calendar.HolidayEaster: {calendar.ConventionWestern},
		},
		Conditions: []corpus.PromptCondition{
			{TemplateID: "tpl-minimal", Category: corpus.ConditionMinimal},
		},
	}
	manifest, err := newCorpusService(t, cfg).Generate(universe)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	return manifest
}

func newRunService(client ports.ModelClient, log *testkit.MemoryQueryLog, cfg config.OrchestratorConfig) *RunService {
	logger := internal.NewLogger(internal.LogLevelError, "test")
	return NewRunService(client, log, cfg, ports.DecodingParams{Temperature: 0, MaxTokens: 200}, logger)
}

func TestExecuteLogsEveryTask(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient(`{"holidays": []}`)
	log := testkit.NewMemoryQueryLog()

	runID := core.RunID(core.NewID())
	stats, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), runID, manifest, []core.ModelID{"model-a"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	wantTasks := len(manifest.Items) * len(manifest.Conditions)
	if stats.Queried != wantTasks {
		t.Errorf("queried: want %d, got %d", wantTasks, stats.Queried)
	}
	if log.Len() != wantTasks {
		t.Errorf("log size: want %d, got %d", wantTasks, log.Len())
	}

	recs, err := log.ListByRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for _, rec := range recs {
		if rec.RawResponse == "" {
			t.Errorf("record %s has empty response", rec.Key)
		}
	}
}

func TestExecuteRerunFillsGapsOnly(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient(`{"holidays": []}`)
	log := testkit.NewMemoryQueryLog()
	svc := newRunService(client, log, testOrchestrator())

	runID := core.RunID(core.NewID())
	models := []core.ModelID{"model-a"}
	if _, err := svc.Execute(context.Background(), runID, manifest, models); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	appendsAfterFirst := log.Appends

	stats, err := svc.Execute(context.Background(), runID, manifest, models)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if stats.Queried != 0 {
		t.Errorf("rerun should query nothing, queried %d", stats.Queried)
	}
	if log.Appends != appendsAfterFirst {
		t.Errorf("rerun must not append: %d -> %d", appendsAfterFirst, log.Appends)
	}
}

func TestExecuteRetriesTransientFailures(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient(`{"holidays": []}`)
	client.FailFirst = 1
	log := testkit.NewMemoryQueryLog()

	stats, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), core.RunID(core.NewID()), manifest, []core.ModelID{"model-a"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if stats.Failed != 0 {
		t.Errorf("transient failures should be retried away, failed=%d", stats.Failed)
	}
	wantTasks := len(manifest.Items) * len(manifest.Conditions)
	if stats.Queried != wantTasks {
		t.Errorf("queried: want %d, got %d", wantTasks, stats.Queried)
	}
}

func TestExecutePermanentFailureRecordsMalformed(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient("")
	client.FailFirst = 100 // beyond the retry cap
	log := testkit.NewMemoryQueryLog()

	runID := core.RunID(core.NewID())
	stats, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), runID, manifest, []core.ModelID{"model-a"})
	if err != nil {
		t.Fatalf("execute should not be fatal on endpoint failure: %v", err)
	}
	if stats.Failed == 0 {
		t.Error("expected failed tasks")
	}

	recs, err := log.ListByRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(recs) == 0 {
		t.Fatal("failed tasks must still leave records")
	}
	for _, rec := range recs {
		if rec.RawResponse != "" {
			t.Errorf("failed record should carry no response: %q", rec.RawResponse)
		}
	}
}

func TestExecuteSchemaRetryLogsBothAttempts(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient("not json at all")
	log := testkit.NewMemoryQueryLog()

	runID := core.RunID(core.NewID())
	if _, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), runID, manifest, []core.ModelID{"model-a"}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	recs, err := log.ListByRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	wantTasks := len(manifest.Items) * len(manifest.Conditions)
	if len(recs) != 2*wantTasks {
		t.Errorf("schema-invalid responses get exactly one re-query: want %d records, got %d", 2*wantTasks, len(recs))
	}

	attempts := map[int]int{}
	for _, rec := range recs {
		attempts[rec.Key.Attempt]++
	}
	if attempts[1] != wantTasks || attempts[2] != wantTasks {
		t.Errorf("attempt split: want %d/%d, got %d/%d", wantTasks, wantTasks, attempts[1], attempts[2])
	}
}

func TestExecuteRerunFillsMissingSecondAttempt(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient(`{"holidays": []}`)
	log := testkit.NewMemoryQueryLog()

	// A previous run logged a schema-invalid first attempt and died before
	// the re-query landed.
	runID := core.RunID(core.NewID())
	orphan := record.Key{
		ItemID:     manifest.Items[0].ID,
		ModelID:    "model-a",
		TemplateID: manifest.Conditions[0].TemplateID,
		Attempt:    1,
	}
	if err := log.Append(context.Background(), record.QueryRecord{
		Key:         orphan,
		RunID:       runID,
		RawResponse: "half an answer, no json",
		CreatedAt:   core.Now(),
	}); err != nil {
		t.Fatalf("seed append failed: %v", err)
	}

	if _, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), runID, manifest, []core.ModelID{"model-a"}); err != nil {
		t.Fatalf("rerun failed: %v", err)
	}

	second := orphan
	second.Attempt = 2
	if _, err := log.Get(context.Background(), second); err != nil {
		t.Errorf("rerun must fill the missing second attempt: %v", err)
	}

	first, err := log.Get(context.Background(), orphan)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if first.RawResponse != "half an answer, no json" {
		t.Error("the logged first attempt must never be rewritten")
	}

	wantTasks := len(manifest.Items) * len(manifest.Conditions)
	if log.Len() != wantTasks+1 {
		t.Errorf("log size: want %d (all tasks plus the filled attempt), got %d", wantTasks+1, log.Len())
	}
}

func TestExecuteBudgetCapStopsRun(t *testing.T) {
	manifest := smallManifest(t)
	client := testkit.NewScriptedClient(`{"holidays": []}`)
	log := testkit.NewMemoryQueryLog()

	cfg := testOrchestrator()
	cfg.Workers = 1
	cfg.BudgetTokens = 1 // exhausted after the first response

	_, err := newRunService(client, log, cfg).Execute(context.Background(), core.RunID(core.NewID()), manifest, []core.ModelID{"model-a"})
	if err == nil {
		t.Fatal("exceeding the token budget should surface an error")
	}
	wantTasks := len(manifest.Items) * len(manifest.Conditions)
	if log.Len() >= wantTasks {
		t.Errorf("budget cap should stop the run early: %d of %d logged", log.Len(), wantTasks)
	}
}

func TestExecuteVerifiesManifest(t *testing.T) {
	manifest := smallManifest(t)
	manifest.Items[0].Year++

	client := testkit.NewScriptedClient(`{"holidays": []}`)
	log := testkit.NewMemoryQueryLog()
	_, err := newRunService(client, log, testOrchestrator()).Execute(context.Background(), core.RunID(core.NewID()), manifest, []core.ModelID{"model-a"})
	if err == nil {
		t.Fatal("a tampered manifest must abort the run before any query")
	}
	if client.Calls() != 0 {
		t.Errorf("no queries should be issued: %d", client.Calls())
	}
}
