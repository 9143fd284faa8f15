package ports

import (
	"context"

	"feastbench/domain/core"
	"feastbench/domain/record"
)

// QueryLog is the append-only artifact store for raw query records, keyed by
// the composite (item, model, template, attempt).
//
// Append must be idempotent on the composite key: re-running a batch against
// an existing log only fills gaps. Records are never updated or deleted.
type QueryLog interface {
	// Append stores a record; appending an existing key is a silent no-op
	Append(ctx context.Context, rec record.QueryRecord) error

	// Get fetches one record; core.ErrRecordNotFound when absent
	Get(ctx context.Context, key record.Key) (record.QueryRecord, error)

	// Exists reports whether the composite key is already logged
	Exists(ctx context.Context, key record.Key) (bool, error)

	// ListByRun returns all records of a run in deterministic key order
	ListByRun(ctx context.Context, runID core.RunID) ([]record.QueryRecord, error)
}
