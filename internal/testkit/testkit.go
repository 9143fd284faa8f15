// Package testkit provides in-memory doubles for the ports, used by service
// tests. The doubles honor the same contracts as the production adapters:
// idempotent append, deterministic list order, scripted responses.
package testkit

import (
	"context"
	"sort"
	"sync"

	"feastbench/domain/core"
	"feastbench/domain/record"
)

// MemoryQueryLog is an in-memory QueryLog safe for concurrent appends.
type MemoryQueryLog struct {
	mu      sync.Mutex
	records map[record.Key]record.QueryRecord

	// Appends counts Append calls that actually stored a record, so tests
	// can assert that reruns only fill gaps.
	Appends int
}

func NewMemoryQueryLog() *MemoryQueryLog {
	return &MemoryQueryLog{records: make(map[record.Key]record.QueryRecord)}
}

func (l *MemoryQueryLog) Append(_ context.Context, rec record.QueryRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[rec.Key]; ok {
		return nil
	}
	l.records[rec.Key] = rec
	l.Appends++
	return nil
}

func (l *MemoryQueryLog) Get(_ context.Context, key record.Key) (record.QueryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[key]
	if !ok {
		return record.QueryRecord{}, core.ErrRecordNotFound
	}
	return rec, nil
}

func (l *MemoryQueryLog) Exists(_ context.Context, key record.Key) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[key]
	return ok, nil
}

func (l *MemoryQueryLog) ListByRun(_ context.Context, runID core.RunID) ([]record.QueryRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []record.QueryRecord
	for _, rec := range l.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key.String() < out[b].Key.String() })
	return out, nil
}

// Len returns the number of stored records
func (l *MemoryQueryLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
