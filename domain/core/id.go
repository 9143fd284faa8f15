package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// ItemID is the content identity of a test item. It is content-addressed,
	// derived from the item's frozen fields rather than random, so it stays
	// stable across every prompt condition applied to the item.
	ItemID ID

	// TemplateID identifies a prompt template, independent of content identity.
	TemplateID ID

	// ModelID identifies a model endpoint under evaluation.
	ModelID ID

	// RunID identifies one querying run against a frozen corpus.
	RunID ID

	// CorpusID identifies a frozen, pre-registered corpus.
	CorpusID ID
)

// String conversions for domain IDs
func (id ItemID) String() string     { return ID(id).String() }
func (id TemplateID) String() string { return ID(id).String() }
func (id ModelID) String() string    { return ID(id).String() }
func (id RunID) String() string      { return ID(id).String() }
func (id CorpusID) String() string   { return ID(id).String() }

// ParseItemID parses a string into ItemID
func ParseItemID(s string) (ItemID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("item ID cannot be empty")
	}
	return ItemID(s), nil
}

// ParseTemplateID parses a string into TemplateID
func ParseTemplateID(s string) (TemplateID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("template ID cannot be empty")
	}
	return TemplateID(s), nil
}

// ParseModelID parses a string into ModelID
func ParseModelID(s string) (ModelID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("model ID cannot be empty")
	}
	return ModelID(s), nil
}

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}
