package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	calendaradapter "feastbench/adapters/calendar"
	"feastbench/adapters/excel"
	"feastbench/adapters/llm"
	"feastbench/adapters/postgres"
	"feastbench/app"
	domainanalysis "feastbench/domain/analysis"
	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/internal"
	"feastbench/internal/config"
	"feastbench/internal/errors"
	"feastbench/internal/rng"
	"feastbench/internal/testkit"
	"feastbench/ports"
)

func main() {
	var (
		models     = flag.String("models", "", "comma-separated model identifiers to query")
		reportPath = flag.String("report", "report.xlsx", "output workbook path")
		dryRun     = flag.Bool("dry-run", false, "use the in-memory log and skip the database")
	)
	flag.Parse()

	if err := run(*models, *reportPath, *dryRun); err != nil {
		log.Fatalf("[Bench] fatal: %v", err)
	}
}

func run(modelList, reportPath string, dryRun bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := internal.NewDefaultLogger("Bench")

	modelIDs, err := parseModels(modelList)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Query log: postgres in real runs, in-memory for dry runs.
	var queryLog ports.QueryLog
	if dryRun {
		queryLog = testkit.NewMemoryQueryLog()
		logger.Info("dry run: using in-memory query log")
	} else {
		db, err := initDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		queryLog = postgres.NewQueryLogRepository(db)
	}

	oracle := calendaradapter.NewDefaultOracle()
	seededRNG := rng.New(cfg.Registration.Seed)

	// 1. Generate and freeze the corpus.
	conditions := defaultConditions()
	corpusService := app.NewCorpusService(oracle, seededRNG, cfg.Registration, logger)
	manifest, err := corpusService.Generate(app.DefaultUniverse(conditions))
	if err != nil {
		return err
	}

	// 2. Query every model over the frozen corpus.
	client := llm.NewClient(cfg.Endpoint, logger)
	decoding := ports.DecodingParams{
		Temperature: cfg.Endpoint.Temperature,
		MaxTokens:   cfg.Endpoint.MaxTokens,
		Seed:        cfg.Endpoint.SamplingSeed,
	}
	runService := app.NewRunService(client, queryLog, cfg.Orchestrator, decoding, logger)

	runID := core.RunID(core.NewID())
	stats, err := runService.Execute(ctx, runID, manifest, modelIDs)
	if err != nil {
		return err
	}
	logger.Info("run complete: %d queried, %d tokens", stats.Queried, stats.TokensUsed)

	// 3. Score the log.
	scoringService, err := app.NewScoringService(queryLog, cfg.Registration.AttemptPolicy, logger)
	if err != nil {
		return err
	}
	outcomes, err := scoringService.ScoreRun(ctx, runID, manifest)
	if err != nil {
		return err
	}

	// 4. Analyze and export the tables.
	analysisService := app.NewAnalysisService(cfg.Registration, logger)
	report, err := analysisService.Report(runID, manifest, outcomes,
		[]string{"model", "system", "category"}, defaultFamilies(manifest))
	if err != nil {
		return err
	}

	writer := excel.NewReportWriter(logger)
	return writer.Write(ctx, report, reportPath)
}

func initDatabase(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func parseModels(list string) ([]core.ModelID, error) {
	var out []core.ModelID
	for _, raw := range strings.Split(list, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := core.ParseModelID(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, errors.ConfigInvalid("at least one model is required (-models)")
	}
	return out, nil
}

// defaultConditions are the registered prompt conditions. Worked-example
// years stay outside every target stratum; the generator verifies this
// before freezing the corpus.
func defaultConditions() []corpus.PromptCondition {
	return []corpus.PromptCondition{
		{TemplateID: "tpl-minimal", Category: corpus.ConditionMinimal},
		{TemplateID: "tpl-cot", Category: corpus.ConditionChainOfThought},
		{TemplateID: "tpl-worked", Category: corpus.ConditionWorkedExample, ExampleYears: []int{2011}},
		{TemplateID: "tpl-resolver", Category: corpus.ConditionResolverTool},
		{TemplateID: "tpl-table", Category: corpus.ConditionTableICL},
	}
}

// defaultFamilies are the pre-registered hypothesis families, hashed
// against the frozen corpus before any result is observed.
func defaultFamilies(manifest *corpus.Manifest) []domainanalysis.Family {
	return []domainanalysis.Family{
		app.NewFamily(manifest.Hash, "prompt_conditions", []domainanalysis.Hypothesis{
			{TestID: "cot_vs_minimal", Mode: domainanalysis.ModeSuperiority,
				Factor: "category", LevelA: "chain_of_thought", LevelB: "minimal"},
			{TestID: "worked_vs_minimal", Mode: domainanalysis.ModeSuperiority,
				Factor: "category", LevelA: "worked_example", LevelB: "minimal"},
			{TestID: "table_vs_minimal", Mode: domainanalysis.ModeSuperiority,
				Factor: "category", LevelA: "table_icl", LevelB: "minimal"},
		}),
		app.NewFamily(manifest.Hash, "calendar_systems", []domainanalysis.Hypothesis{
			{TestID: "fixed_vs_lunisolar", Mode: domainanalysis.ModeSuperiority,
				Factor: "system", LevelA: "gregorian_fixed", LevelB: "chinese_lunisolar"},
			{TestID: "fixed_vs_hijri", Mode: domainanalysis.ModeSuperiority,
				Factor: "system", LevelA: "gregorian_fixed", LevelB: "hijri_islamic"},
			{TestID: "lunisolar_vs_hijri_equiv", Mode: domainanalysis.ModeEquivalence,
				Factor: "system", LevelA: "chinese_lunisolar", LevelB: "hijri_islamic"},
		}),
		app.NewFamily(manifest.Hash, "languages", []domainanalysis.Hypothesis{
			{TestID: "native_vs_english", Mode: domainanalysis.ModeSuperiority,
				Factor: "language", LevelA: "zh", LevelB: "en"},
		}),
	}
}
