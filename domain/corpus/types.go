// Package corpus defines the frozen test-case corpus: items, prompt
// conditions, and the content-addressed manifest that pins a pre-registration.
package corpus

import (
	"feastbench/domain/calendar"
	"feastbench/domain/core"
)

// Language is the prompt language of an item
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
	LanguageArabic  Language = "ar"
)

// ItemType classifies an item as the positive cell or one of the three
// pre-registered negative categories
type ItemType string

const (
	ItemPositive           ItemType = "positive"
	ItemNegativeNearMiss   ItemType = "negative_near_miss"
	ItemNegativeRandom     ItemType = "negative_random"
	ItemNegativeImpossible ItemType = "negative_impossible"
)

// IsNegative reports whether the item type expects an empty holiday set
func (t ItemType) IsNegative() bool {
	return t != ItemPositive
}

// ConditionCategory groups prompt templates by the prompting strategy they
// realize. Categories belong to templates, never to content: the same item
// identity is queried under every category.
type ConditionCategory string

const (
	ConditionMinimal        ConditionCategory = "minimal"
	ConditionChainOfThought ConditionCategory = "chain_of_thought"
	ConditionWorkedExample  ConditionCategory = "worked_example"
	ConditionResolverTool   ConditionCategory = "resolver_tool"
	ConditionTableICL       ConditionCategory = "table_icl"
)

// PromptCondition is a template identity plus its category
type PromptCondition struct {
	TemplateID core.TemplateID   `json:"template_id"`
	Category   ConditionCategory `json:"category"`
	// ExampleYears are the years referenced by any worked-example content in
	// the template. They must be disjoint from every target item's year; the
	// generator enforces this with a fatal overlap check.
	ExampleYears []int `json:"example_years,omitempty"`
}

// ExclusionReason is a machine-readable reason code attached to any item that
// is dropped from primary analysis. Exclusions are never silent.
type ExclusionReason string

const (
	ExclusionNone                 ExclusionReason = ""
	ExclusionConventionAmbiguous  ExclusionReason = "convention_ambiguous"
	ExclusionComputationAmbiguous ExclusionReason = "computation_ambiguous"
	ExclusionUnderpowered         ExclusionReason = "underpowered"
)

// TestItem is one frozen test case. Exactly one ground truth exists per
// (holiday, year, convention); the item carries it along with the scoring
// tolerance so the scorer never re-derives either.
type TestItem struct {
	ID          core.ItemID         `json:"id"`
	Holiday     calendar.Holiday    `json:"holiday"`
	Year        int                 `json:"year"`
	YearStratum string              `json:"year_stratum"`
	Language    Language            `json:"language"`
	Convention  calendar.Convention `json:"convention"`
	Type        ItemType            `json:"type"`

	// Ordinal distinguishes siblings of the same negative category derived
	// from one positive. It is part of the content identity: two negatives
	// drawing the same prompt date under a ratio > 1 must still be distinct
	// items, or the registered ratio silently shrinks.
	Ordinal int `json:"ordinal,omitempty"`

	// PromptDate is the Gregorian date presented to the model. For positives
	// it equals GroundTruth.Date; for negatives it deliberately does not.
	PromptDate core.CivilDate `json:"prompt_date"`

	// GroundTruth is the oracle resolution the item was generated from.
	// Negatives keep it so near-miss offsets stay auditable.
	GroundTruth calendar.Resolution `json:"ground_truth"`

	// AcceptedLabels is the frozen per-language synonym set for a Correct
	// verdict on a positive item.
	AcceptedLabels []string `json:"accepted_labels"`

	// ToleranceDays mirrors the oracle's declared band (0 for pinned items).
	ToleranceDays int `json:"tolerance_days"`

	Excluded ExclusionReason `json:"excluded,omitempty"`
}

// Primary reports whether the item participates in primary inference
func (i TestItem) Primary() bool {
	return i.Excluded == ExclusionNone
}
