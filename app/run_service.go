package app

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/domain/record"
	"feastbench/internal"
	"feastbench/internal/config"
	"feastbench/internal/errors"
	"feastbench/internal/scoring"
	"feastbench/ports"
)

// RunStats summarizes one querying run
type RunStats struct {
	Queried    int
	Skipped    int
	Retried    int
	Failed     int
	TokensUsed int
}

// RunService is the thin query orchestrator: it fans the frozen corpus out
// to model endpoints under a bounded worker pool, logs every raw response
// append-only, and never interprets results beyond the single bounded
// schema-parse retry.
type RunService struct {
	client   ports.ModelClient
	queryLog ports.QueryLog
	cfg      config.OrchestratorConfig
	decoding ports.DecodingParams
	logger   *internal.Logger
}

func NewRunService(client ports.ModelClient, queryLog ports.QueryLog, cfg config.OrchestratorConfig, decoding ports.DecodingParams, logger *internal.Logger) *RunService {
	return &RunService{
		client:   client,
		queryLog: queryLog,
		cfg:      cfg,
		decoding: decoding,
		logger:   logger.With("Orchestrator"),
	}
}

type task struct {
	item  corpus.TestItem
	cond  corpus.PromptCondition
	model core.ModelID
}

// Execute runs the full item x condition x model grid for a frozen manifest.
// Reruns are cheap: keys already present in the log are skipped, so an
// interrupted run resumes by filling gaps only.
func (s *RunService) Execute(ctx context.Context, runID core.RunID, manifest *corpus.Manifest, models []core.ModelID) (*RunStats, error) {
	// 1. The manifest must verify before a single query is issued.
	if err := manifest.Verify(); err != nil {
		return nil, err
	}

	var tasks []task
	for _, item := range manifest.Items {
		for _, cond := range manifest.Conditions {
			for _, model := range models {
				tasks = append(tasks, task{item: item, cond: cond, model: model})
			}
		}
	}
	s.logger.Info("run %s: %d tasks across %d models, %d workers", runID, len(tasks), len(models), s.cfg.Workers)

	var queried, skipped, retried, failed int64
	var tokensUsed int64

	sem := semaphore.NewWeighted(int64(s.cfg.Workers))
	g, gctx := errgroup.WithContext(ctx)

	for _, t := range tasks {
		t := t
		key := record.Key{
			ItemID:     t.item.ID,
			ModelID:    t.model,
			TemplateID: t.cond.TemplateID,
			Attempt:    1,
		}

		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)

			// 2. Gap filling: a settled first attempt means the whole task
			// was handled by a previous run. A schema-invalid first attempt
			// whose re-query never landed still owes exactly the second
			// attempt.
			startAttempt := 1
			exists, err := s.queryLog.Exists(gctx, key)
			if err != nil {
				return err
			}
			if exists {
				prev, err := s.queryLog.Get(gctx, key)
				if err != nil {
					return err
				}
				if settled(prev) {
					atomic.AddInt64(&skipped, 1)
					return nil
				}
				second := key
				second.Attempt = 2
				secondExists, err := s.queryLog.Exists(gctx, second)
				if err != nil {
					return err
				}
				if secondExists {
					atomic.AddInt64(&skipped, 1)
					return nil
				}
				startAttempt = 2
			}

			// 3. Budget cap, checked before issuing.
			if used := atomic.LoadInt64(&tokensUsed); used >= int64(s.cfg.BudgetTokens) {
				atomic.AddInt64(&skipped, 1)
				return errors.BudgetExceeded(int(used), s.cfg.BudgetTokens)
			}

			prompt := BuildPrompt(t.item, t.cond)
			n, r, f, tokens := s.queryAndLog(gctx, runID, key, t, prompt, startAttempt)
			atomic.AddInt64(&queried, int64(n))
			atomic.AddInt64(&retried, int64(r))
			atomic.AddInt64(&failed, int64(f))
			atomic.AddInt64(&tokensUsed, int64(tokens))
			return nil
		})
	}

	err := g.Wait()
	stats := &RunStats{
		Queried:    int(queried),
		Skipped:    int(skipped),
		Retried:    int(retried),
		Failed:     int(failed),
		TokensUsed: int(atomic.LoadInt64(&tokensUsed)),
	}
	s.logger.Info("run %s done: %d queried, %d skipped, %d failed, %d tokens", runID, stats.Queried, stats.Skipped, stats.Failed, stats.TokensUsed)
	return stats, err
}

// settled reports whether a logged first attempt ends its task. Transport
// failures are permanent empty records; only a schema-invalid non-refusal
// response earns the single re-query.
func settled(rec record.QueryRecord) bool {
	if rec.RawResponse == "" {
		return true
	}
	_, parseErr := scoring.ParseHolidays(rec.RawResponse)
	if parseErr == nil || !core.IsParse(parseErr) {
		return true
	}
	return scoring.IsRefusal(rec.RawResponse)
}

// queryAndLog performs one task from startAttempt on: on a schema-parse
// failure the second attempt follows, never a third. All attempts are
// logged; which one counts is the scorer's pre-registered policy, not a
// decision made here.
func (s *RunService) queryAndLog(ctx context.Context, runID core.RunID, key record.Key, t task, prompt string, startAttempt int) (queried, retried, failed, tokens int) {
	for attempt := startAttempt; attempt <= 2; attempt++ {
		key.Attempt = attempt
		resp, err := s.queryWithRetry(ctx, string(t.model), prompt)

		rec := record.QueryRecord{
			Key:       key,
			RunID:     runID,
			CreatedAt: core.Now(),
		}
		if err != nil {
			// Exhausted transport retries: a permanent empty record, scored
			// Malformed downstream. Never fatal to the run.
			rec.TimedOut = errors.IsTimeout(err)
			failed++
			s.logger.Warn("task %s failed after retries: %v", key, err)
		} else {
			rec.RawResponse = resp.Content
			rec.TotalTokens = resp.TotalTokens
			rec.Truncated = resp.Truncated
			queried++
			tokens += resp.TotalTokens
		}
		if appendErr := s.queryLog.Append(ctx, rec); appendErr != nil {
			s.logger.Error("append %s: %v", key, appendErr)
			failed++
			return queried, retried, failed, tokens
		}

		if err != nil {
			return queried, retried, failed, tokens
		}
		_, parseErr := scoring.ParseHolidays(resp.Content)
		if parseErr == nil || !core.IsParse(parseErr) || scoring.IsRefusal(resp.Content) {
			return queried, retried, failed, tokens
		}
		if attempt == 2 {
			s.logger.Info("task %s: %v, final response stands", key, core.ErrAttemptBudget)
			return queried, retried, failed, tokens
		}
		// Schema-invalid and not a refusal: one bounded re-query.
		retried++
	}
	return queried, retried, failed, tokens
}

// queryWithRetry handles transport-level faults with exponential backoff.
// Schema-level retries are handled one level up and are bounded separately.
func (s *RunService) queryWithRetry(ctx context.Context, model, prompt string) (*ports.ModelResponse, error) {
	delay := time.Duration(s.cfg.RetryDelayMs) * time.Millisecond
	var lastErr error

	for try := 0; try <= s.cfg.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := s.client.Query(ctx, model, prompt, s.decoding)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
