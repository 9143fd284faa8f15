// Package calendar defines the ground-truth vocabulary of the harness:
// holidays, the calendar systems that move them, and the civil conventions
// that disambiguate them. The oracle adapters compute against these types;
// nothing here performs calendrical arithmetic.
package calendar

import (
	"feastbench/domain/core"
)

// Holiday is a movable (or fixed control) holiday under evaluation
type Holiday string

const (
	HolidayLunarNewYear Holiday = "lunar_new_year"
	HolidayDragonBoat   Holiday = "dragon_boat"
	HolidayMidAutumn    Holiday = "mid_autumn"
	HolidayEidAlFitr    Holiday = "eid_al_fitr"
	HolidayEidAlAdha    Holiday = "eid_al_adha"
	HolidayRamadanStart Holiday = "ramadan_start"
	HolidayEaster       Holiday = "easter"
	HolidayChristmas    Holiday = "christmas"
)

// System is the calendar system variant that produces a holiday's date
type System string

const (
	SystemGregorianFixed   System = "gregorian_fixed"
	SystemChineseLunisolar System = "chinese_lunisolar"
	SystemHijriIslamic     System = "hijri_islamic"
	SystemComputusEaster   System = "computus_easter"
)

// Convention pins the civil jurisdiction convention for multi-convention
// holidays. ConventionUnpinned is a legitimate declared state for Hijri
// items (sighting-based divergence is absorbed into a tolerance band), but
// it is an error for Easter, which must be Western or Orthodox.
type Convention string

const (
	ConventionUnpinned  Convention = ""
	ConventionWestern   Convention = "western"
	ConventionOrthodox  Convention = "orthodox"
	ConventionUmmAlQura Convention = "umm_al_qura"
	ConventionSighting  Convention = "sighting"
)

// Definition describes one holiday: its system and the conventions it admits
type Definition struct {
	Holiday     Holiday      `json:"holiday"`
	System      System       `json:"system"`
	Conventions []Convention `json:"conventions,omitempty"`
	// LabelKey selects the synonym-table entry used when scoring responses
	LabelKey string `json:"label_key"`
}

// MultiConvention reports whether the holiday needs a pinned convention to
// resolve to a single civil date
func (d Definition) MultiConvention() bool {
	return len(d.Conventions) > 1
}

// Supports reports whether the definition admits the given convention
func (d Definition) Supports(c Convention) bool {
	if c == ConventionUnpinned {
		return true
	}
	for _, known := range d.Conventions {
		if known == c {
			return true
		}
	}
	return false
}

// Resolution is the oracle's canonical answer for (holiday, year, convention)
type Resolution struct {
	Holiday    Holiday        `json:"holiday"`
	Year       int            `json:"year"`
	Convention Convention     `json:"convention"`
	Date       core.CivilDate `json:"date"`
	// Label is the canonical holiday name used as the scoring key
	Label string `json:"label"`
	// Representation is the native-calendar form, e.g. "正月初一" or "1 Shawwal 1446"
	Representation string `json:"representation,omitempty"`
	// ToleranceDays is the accepted deviation band. It is 0 for pinned
	// conventions and 1 for unpinned Hijri items; the scorer consumes it
	// from the item, never decides it.
	ToleranceDays int `json:"tolerance_days"`
	// Ambiguous marks known calendrical anomaly years. Ambiguous resolutions
	// are excluded from primary analysis but retained for exploratory reports.
	Ambiguous       bool   `json:"ambiguous,omitempty"`
	AmbiguityReason string `json:"ambiguity_reason,omitempty"`
}

// Registry is the frozen set of holiday definitions for a pre-registration
type Registry map[Holiday]Definition

// DefaultRegistry returns the holiday universe used by the benchmark studies.
// The returned map is built fresh per call; callers must treat it as frozen
// after corpus generation.
func DefaultRegistry() Registry {
	return Registry{
		HolidayLunarNewYear: {
			Holiday:  HolidayLunarNewYear,
			System:   SystemChineseLunisolar,
			LabelKey: "lunar_new_year",
		},
		HolidayDragonBoat: {
			Holiday:  HolidayDragonBoat,
			System:   SystemChineseLunisolar,
			LabelKey: "dragon_boat",
		},
		HolidayMidAutumn: {
			Holiday:  HolidayMidAutumn,
			System:   SystemChineseLunisolar,
			LabelKey: "mid_autumn",
		},
		HolidayEidAlFitr: {
			Holiday:     HolidayEidAlFitr,
			System:      SystemHijriIslamic,
			Conventions: []Convention{ConventionUmmAlQura, ConventionSighting},
			LabelKey:    "eid_al_fitr",
		},
		HolidayEidAlAdha: {
			Holiday:     HolidayEidAlAdha,
			System:      SystemHijriIslamic,
			Conventions: []Convention{ConventionUmmAlQura, ConventionSighting},
			LabelKey:    "eid_al_adha",
		},
		HolidayRamadanStart: {
			Holiday:     HolidayRamadanStart,
			System:      SystemHijriIslamic,
			Conventions: []Convention{ConventionUmmAlQura, ConventionSighting},
			LabelKey:    "ramadan_start",
		},
		HolidayEaster: {
			Holiday:     HolidayEaster,
			System:      SystemComputusEaster,
			Conventions: []Convention{ConventionWestern, ConventionOrthodox},
			LabelKey:    "easter",
		},
		HolidayChristmas: {
			Holiday:  HolidayChristmas,
			System:   SystemGregorianFixed,
			LabelKey: "christmas",
		},
	}
}
