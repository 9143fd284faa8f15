// Package record defines the append-only querying artifacts: raw query
// records and the deterministic outcomes scored from them.
package record

import (
	"fmt"

	"feastbench/domain/core"
)

// Key is the composite identity of one query attempt. Concurrent writers
// never collide on distinct keys, and a rerun that replays an existing key is
// a no-op, which makes batch runs idempotently resumable.
type Key struct {
	ItemID     core.ItemID     `json:"item_id" db:"item_id"`
	ModelID    core.ModelID    `json:"model_id" db:"model_id"`
	TemplateID core.TemplateID `json:"template_id" db:"template_id"`
	Attempt    int             `json:"attempt" db:"attempt"`
}

// String renders the key for logs and map indexing
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.ItemID, k.ModelID, k.TemplateID, k.Attempt)
}

// QueryRecord is one raw model response, append-only once written
type QueryRecord struct {
	Key         Key            `json:"key"`
	RunID       core.RunID     `json:"run_id" db:"run_id"`
	RawResponse string         `json:"raw_response" db:"raw_response"`
	TimedOut    bool           `json:"timed_out" db:"timed_out"`
	TotalTokens int            `json:"total_tokens" db:"total_tokens"`
	Truncated   bool           `json:"truncated" db:"truncated"`
	CreatedAt   core.Timestamp `json:"created_at" db:"created_at"`
}

// OutcomeClass is the scored classification of a query record
type OutcomeClass string

const (
	OutcomeCorrect   OutcomeClass = "correct"
	OutcomeIncorrect OutcomeClass = "incorrect"
	OutcomeRefusal   OutcomeClass = "refusal"
	OutcomeMalformed OutcomeClass = "malformed"
)

// Success reports the primary binary endpoint. Refusal and Malformed count
// as failures here; they are additionally reported as standalone secondary
// rates and never silently dropped.
func (c OutcomeClass) Success() bool {
	return c == OutcomeCorrect
}

// ParseMethod records how the response was interpreted
type ParseMethod string

const (
	ParseJSON    ParseMethod = "json"
	ParseKeyword ParseMethod = "keyword"
	ParseNone    ParseMethod = "none"
)

// ScoredOutcome is the deterministic classification of a QueryRecord against
// its TestItem. Recomputable at any time from the frozen record log.
type ScoredOutcome struct {
	Key         Key          `json:"key"`
	Class       OutcomeClass `json:"class"`
	Method      ParseMethod  `json:"method"`
	MatchedHits []string     `json:"matched_hits,omitempty"`
	// Primary marks the single pre-registered attempt that the binary
	// endpoint counts; the policy (first or final) is fixed before any data
	// is seen.
	Primary bool   `json:"primary"`
	Detail  string `json:"detail,omitempty"`
}

// AttemptPolicy selects which attempt is the pre-registered primary one
type AttemptPolicy string

const (
	AttemptFirst AttemptPolicy = "first"
	AttemptFinal AttemptPolicy = "final"
)

// Valid reports whether the policy is one of the registered choices
func (p AttemptPolicy) Valid() bool {
	return p == AttemptFirst || p == AttemptFinal
}
