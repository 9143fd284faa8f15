package corpus

import (
	"encoding/json"
	"fmt"
	"sort"

	"feastbench/domain/core"
)

// Manifest is the frozen, content-addressed record of a generated corpus.
// It is the truth source for re-scoring and replay: it must exist before any
// query record, and its hash must match on every reload.
type Manifest struct {
	CorpusID   core.CorpusID     `json:"corpus_id"`
	Version    string            `json:"version"`
	Seed       int64             `json:"seed"`
	Items      []TestItem        `json:"items"`
	Conditions []PromptCondition `json:"conditions"`
	Hash       core.CorpusHash   `json:"hash"`
	CreatedAt  core.Timestamp    `json:"created_at"`
}

// NewManifest freezes a generated corpus and stamps its content hash
func NewManifest(version string, seed int64, items []TestItem, conditions []PromptCondition) (*Manifest, error) {
	m := &Manifest{
		CorpusID:   core.CorpusID(core.NewID()),
		Version:    version,
		Seed:       seed,
		Items:      items,
		Conditions: conditions,
		CreatedAt:  core.Now(),
	}
	hash, err := m.contentHash()
	if err != nil {
		return nil, err
	}
	m.Hash = hash
	return m, nil
}

// contentHash hashes only the frozen content, not identity or timestamps, so
// identical seed + identical universe yields an identical hash across builds.
func (m *Manifest) contentHash() (core.CorpusHash, error) {
	type frozen struct {
		Version    string            `json:"version"`
		Seed       int64             `json:"seed"`
		Items      []TestItem        `json:"items"`
		Conditions []PromptCondition `json:"conditions"`
	}
	items := make([]TestItem, len(m.Items))
	copy(items, m.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	conditions := make([]PromptCondition, len(m.Conditions))
	copy(conditions, m.Conditions)
	sort.Slice(conditions, func(i, j int) bool { return conditions[i].TemplateID < conditions[j].TemplateID })

	data, err := json.Marshal(frozen{
		Version:    m.Version,
		Seed:       m.Seed,
		Items:      items,
		Conditions: conditions,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest content: %w", err)
	}
	return core.NewCorpusHash(data), nil
}

// Verify recomputes the content hash and compares it against the stamped one
func (m *Manifest) Verify() error {
	hash, err := m.contentHash()
	if err != nil {
		return err
	}
	if hash != m.Hash {
		return fmt.Errorf("%w: manifest %s", core.ErrHashMismatch, m.CorpusID)
	}
	return nil
}

// Item returns the item with the given content identity
func (m *Manifest) Item(id core.ItemID) (TestItem, error) {
	for _, item := range m.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return TestItem{}, fmt.Errorf("%w: %s", core.ErrItemNotFound, id)
}

// PrimaryItems returns the items participating in primary inference
func (m *Manifest) PrimaryItems() []TestItem {
	out := make([]TestItem, 0, len(m.Items))
	for _, item := range m.Items {
		if item.Primary() {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks manifest completeness, item identity uniqueness, and the
// one-truth invariant: at most one positive ground truth per
// (holiday, year, convention).
func (m *Manifest) Validate() error {
	if core.ID(m.CorpusID).IsEmpty() {
		return fmt.Errorf("manifest validation: corpus_id cannot be empty")
	}
	if m.Hash.String() == "" {
		return fmt.Errorf("manifest validation: hash cannot be empty")
	}
	if len(m.Items) == 0 {
		return fmt.Errorf("manifest validation: corpus has no items")
	}
	ids := make(map[core.ItemID]bool, len(m.Items))
	for _, item := range m.Items {
		if ids[item.ID] {
			return fmt.Errorf("manifest validation: duplicate item identity %s", item.ID)
		}
		ids[item.ID] = true
	}
	seen := make(map[string]core.ItemID)
	for _, item := range m.Items {
		if item.Type != ItemPositive {
			continue
		}
		key := fmt.Sprintf("%s|%d|%s|%s", item.Holiday, item.Year, item.Convention, item.Language)
		if prev, dup := seen[key]; dup && prev != item.ID {
			return fmt.Errorf("manifest validation: duplicate ground truth for %s (items %s, %s)", key, prev, item.ID)
		}
		seen[key] = item.ID
	}
	return nil
}
