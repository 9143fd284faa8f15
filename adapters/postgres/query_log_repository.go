// Package postgres implements the append-only query log over PostgreSQL.
// Idempotency of the composite key is pushed down to the database with
// ON CONFLICT DO NOTHING, so concurrent writers and reruns never race in
// application code.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"feastbench/domain/core"
	"feastbench/domain/record"
	"feastbench/internal/errors"
	"feastbench/ports"
)

// queryLogRepository implements ports.QueryLog
type queryLogRepository struct {
	db *sqlx.DB
}

// NewQueryLogRepository creates a query log backed by PostgreSQL
func NewQueryLogRepository(db *sqlx.DB) ports.QueryLog {
	return &queryLogRepository{db: db}
}

// Schema is the query-log table definition. The composite primary key is
// the idempotency key: a replayed append hits the conflict clause and
// changes nothing.
const Schema = `
CREATE TABLE IF NOT EXISTS query_records (
	item_id      TEXT NOT NULL,
	model_id     TEXT NOT NULL,
	template_id  TEXT NOT NULL,
	attempt      INTEGER NOT NULL,
	run_id       TEXT NOT NULL,
	raw_response TEXT NOT NULL DEFAULT '',
	timed_out    BOOLEAN NOT NULL DEFAULT FALSE,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	truncated    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (item_id, model_id, template_id, attempt)
);
CREATE INDEX IF NOT EXISTS idx_query_records_run ON query_records (run_id);
`

// EnsureSchema creates the query-log table when absent
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return errors.StorageError("failed to ensure query log schema", err)
	}
	return nil
}

// Append stores a record; an existing composite key is a silent no-op
func (r *queryLogRepository) Append(ctx context.Context, rec record.QueryRecord) error {
	query := `INSERT INTO query_records (
		item_id, model_id, template_id, attempt, run_id,
		raw_response, timed_out, total_tokens, truncated, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (item_id, model_id, template_id, attempt) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		rec.Key.ItemID, rec.Key.ModelID, rec.Key.TemplateID, rec.Key.Attempt, rec.RunID,
		rec.RawResponse, rec.TimedOut, rec.TotalTokens, rec.Truncated, rec.CreatedAt.Time(),
	)
	if err != nil {
		return errors.StorageError(fmt.Sprintf("failed to append record %s", rec.Key), err)
	}
	return nil
}

const selectColumns = `item_id, model_id, template_id, attempt, run_id,
	raw_response, timed_out, total_tokens, truncated, created_at`

// Get fetches one record by composite key
func (r *queryLogRepository) Get(ctx context.Context, key record.Key) (record.QueryRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM query_records
	WHERE item_id = $1 AND model_id = $2 AND template_id = $3 AND attempt = $4`

	rec, err := scanRecord(r.db.QueryRowxContext(ctx, query, key.ItemID, key.ModelID, key.TemplateID, key.Attempt))
	if err != nil {
		if err == sql.ErrNoRows {
			return record.QueryRecord{}, core.ErrRecordNotFound
		}
		return record.QueryRecord{}, errors.StorageError(fmt.Sprintf("failed to get record %s", key), err)
	}
	return rec, nil
}

// Exists reports whether the composite key is already logged
func (r *queryLogRepository) Exists(ctx context.Context, key record.Key) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM query_records
	WHERE item_id = $1 AND model_id = $2 AND template_id = $3 AND attempt = $4)`

	if err := r.db.QueryRowContext(ctx, query, key.ItemID, key.ModelID, key.TemplateID, key.Attempt).Scan(&exists); err != nil {
		return false, errors.StorageError(fmt.Sprintf("failed to check record %s", key), err)
	}
	return exists, nil
}

// ListByRun returns all records of a run in deterministic key order
func (r *queryLogRepository) ListByRun(ctx context.Context, runID core.RunID) ([]record.QueryRecord, error) {
	query := `SELECT ` + selectColumns + ` FROM query_records
	WHERE run_id = $1
	ORDER BY item_id, model_id, template_id, attempt`

	rows, err := r.db.QueryxContext(ctx, query, runID)
	if err != nil {
		return nil, errors.StorageError("failed to list run records", err)
	}
	defer rows.Close()

	var out []record.QueryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, errors.StorageError("failed to scan run record", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.StorageError("failed to iterate run records", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord reads one row, validating the stored identifiers on the way
// back into domain types.
func scanRecord(row rowScanner) (record.QueryRecord, error) {
	var rec record.QueryRecord
	var itemID, modelID, templateID, runID string
	var createdAt sql.NullTime
	err := row.Scan(
		&itemID, &modelID, &templateID, &rec.Key.Attempt, &runID,
		&rec.RawResponse, &rec.TimedOut, &rec.TotalTokens, &rec.Truncated, &createdAt,
	)
	if err != nil {
		return record.QueryRecord{}, err
	}
	if rec.Key.ItemID, err = core.ParseItemID(itemID); err != nil {
		return record.QueryRecord{}, err
	}
	if rec.Key.ModelID, err = core.ParseModelID(modelID); err != nil {
		return record.QueryRecord{}, err
	}
	if rec.Key.TemplateID, err = core.ParseTemplateID(templateID); err != nil {
		return record.QueryRecord{}, err
	}
	if rec.RunID, err = core.ParseRunID(runID); err != nil {
		return record.QueryRecord{}, err
	}
	if createdAt.Valid {
		rec.CreatedAt = core.NewTimestamp(createdAt.Time)
	}
	return rec, nil
}
