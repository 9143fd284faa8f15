package app

import (
	"context"
	"fmt"
	"strings"

	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
	"feastbench/internal/scoring"
	"feastbench/ports"
)

// ScoringService turns raw query records into scored outcomes. It is a pure
// function of the frozen log and manifest: re-running it on the same inputs
// reproduces every verdict.
type ScoringService struct {
	queryLog ports.QueryLog
	policy   record.AttemptPolicy
	logger   *internal.Logger
}

func NewScoringService(queryLog ports.QueryLog, policy record.AttemptPolicy, logger *internal.Logger) (*ScoringService, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("invalid attempt policy %q", policy)
	}
	return &ScoringService{
		queryLog: queryLog,
		policy:   policy,
		logger:   logger.With("Scorer"),
	}, nil
}

// ScoreRun scores every record of a run against the manifest. Each record
// gets a verdict; on each composite (item, model, template) exactly one
// attempt is flagged primary per the pre-registered policy.
func (s *ScoringService) ScoreRun(ctx context.Context, runID core.RunID, manifest *corpus.Manifest) ([]record.ScoredOutcome, error) {
	if err := manifest.Verify(); err != nil {
		return nil, err
	}

	records, err := s.queryLog.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, core.ErrInsufficientData
	}

	// Group attempts per task so the primary flag can be assigned.
	type taskKey struct {
		item     core.ItemID
		model    core.ModelID
		template core.TemplateID
	}
	primaryAttempt := map[taskKey]int{}
	for _, rec := range records {
		k := taskKey{rec.Key.ItemID, rec.Key.ModelID, rec.Key.TemplateID}
		current, seen := primaryAttempt[k]
		switch {
		case !seen:
			primaryAttempt[k] = rec.Key.Attempt
		case s.policy == record.AttemptFirst && rec.Key.Attempt < current:
			primaryAttempt[k] = rec.Key.Attempt
		case s.policy == record.AttemptFinal && rec.Key.Attempt > current:
			primaryAttempt[k] = rec.Key.Attempt
		}
	}

	outcomes := make([]record.ScoredOutcome, 0, len(records))
	for _, rec := range records {
		item, err := manifest.Item(rec.Key.ItemID)
		if err != nil {
			return nil, fmt.Errorf("record %s references unknown item: %w", rec.Key, err)
		}

		verdict := scoring.Classify(item, rec.RawResponse, rec.Truncated)
		k := taskKey{rec.Key.ItemID, rec.Key.ModelID, rec.Key.TemplateID}
		outcome := record.ScoredOutcome{
			Key:         rec.Key,
			Class:       verdict.Class,
			Method:      verdict.Method,
			MatchedHits: verdict.Matched,
			Primary:     rec.Key.Attempt == primaryAttempt[k],
		}
		if rec.TimedOut {
			outcome.Detail = "endpoint timeout"
		}
		outcomes = append(outcomes, outcome)
	}

	s.logger.Info("scored run %s: %d records, %d tasks (%s attempt primary)",
		runID, len(outcomes), len(primaryAttempt), strings.ToLower(string(s.policy)))
	return outcomes, nil
}
