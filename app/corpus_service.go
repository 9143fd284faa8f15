package app

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"feastbench/domain/calendar"
	"feastbench/domain/core"
	"feastbench/domain/corpus"
	"feastbench/internal"
	"feastbench/internal/config"
	"feastbench/internal/scoring"
	"feastbench/ports"
)

// Universe fixes the cross product a corpus is generated over. It is part of
// the pre-registration: the same universe and seed must reproduce the same
// manifest hash.
type Universe struct {
	Version string
	// Strata maps a year-stratum name to the target years it contains
	Strata map[string][]int
	// Languages lists the prompt languages generated per holiday
	Languages map[calendar.Holiday][]corpus.Language
	// Conventions lists the declared convention(s) generated per holiday.
	// Multi-convention holidays enumerate each pinned convention here; a
	// single ConventionUnpinned entry declares the tolerance-banded state.
	Conventions map[calendar.Holiday][]calendar.Convention
	// Conditions are the prompt conditions the corpus will be queried under
	Conditions []corpus.PromptCondition
}

// DefaultUniverse returns the benchmark's registered universe: three year
// strata, native plus English prompts per tradition, and Hijri declared
// under the Umm al-Qura pin alongside an unpinned tolerance-band cell.
func DefaultUniverse(conditions []corpus.PromptCondition) Universe {
	return Universe{
		Version: "v1",
		Strata: map[string][]int{
			"historical": {2016, 2018, 2020},
			"recent":     {2023, 2024, 2025},
			"future":     {2027, 2029, 2031},
		},
		Languages: map[calendar.Holiday][]corpus.Language{
			calendar.HolidayLunarNewYear: {corpus.LanguageEnglish, corpus.LanguageChinese},
			calendar.HolidayDragonBoat:   {corpus.LanguageEnglish, corpus.LanguageChinese},
			calendar.HolidayMidAutumn:    {corpus.LanguageEnglish, corpus.LanguageChinese},
			calendar.HolidayEidAlFitr:    {corpus.LanguageEnglish, corpus.LanguageArabic},
			calendar.HolidayEidAlAdha:    {corpus.LanguageEnglish, corpus.LanguageArabic},
			calendar.HolidayRamadanStart: {corpus.LanguageEnglish, corpus.LanguageArabic},
			calendar.HolidayEaster:       {corpus.LanguageEnglish},
			calendar.HolidayChristmas:    {corpus.LanguageEnglish},
		},
		Conventions: map[calendar.Holiday][]calendar.Convention{
			calendar.HolidayEaster: {calendar.ConventionWestern, calendar.ConventionOrthodox},
			calendar.HolidayEidAlFitr: {
				calendar.ConventionUmmAlQura, calendar.ConventionUnpinned,
			},
			calendar.HolidayEidAlAdha: {
				calendar.ConventionUmmAlQura, calendar.ConventionUnpinned,
			},
			calendar.HolidayRamadanStart: {
				calendar.ConventionUmmAlQura, calendar.ConventionUnpinned,
			},
		},
		Conditions: conditions,
	}
}

// CorpusService generates frozen, content-addressed test corpora.
type CorpusService struct {
	oracle ports.Oracle
	rng    ports.RNG
	cfg    config.RegistrationConfig
	logger *internal.Logger
}

func NewCorpusService(oracle ports.Oracle, rng ports.RNG, cfg config.RegistrationConfig, logger *internal.Logger) *CorpusService {
	return &CorpusService{
		oracle: oracle,
		rng:    rng,
		cfg:    cfg,
		logger: logger.With("Corpus"),
	}
}

// Generate builds the stratified corpus for a universe and freezes it into a
// manifest. Generation is fully deterministic: the seed comes from config,
// every random choice draws from a named stream, and enumeration order is
// sorted, so the manifest hash is byte-identical across rebuilds.
func (s *CorpusService) Generate(universe Universe) (*corpus.Manifest, error) {
	// 1. Leakage guard before anything else. A worked example sharing a
	// year with any target is fatal: no corpus, no querying.
	if err := s.checkExampleOverlap(universe); err != nil {
		return nil, err
	}

	registry := s.oracle.Definitions()
	holidays := sortedHolidays(registry)
	strata := sortedStrata(universe.Strata)

	// Collect every positive ground-truth date first so random negatives can
	// be checked against the full holiday date set.
	type positive struct {
		item corpus.TestItem
		def  calendar.Definition
	}
	var positives []positive
	holidayDates := map[core.CivilDate]bool{}

	for _, h := range holidays {
		// A holiday with no configured prompt languages is outside this
		// universe entirely.
		if len(universe.Languages[h]) == 0 {
			continue
		}
		def := registry[h]
		conventions := universe.Conventions[h]
		if len(conventions) == 0 {
			conventions = []calendar.Convention{calendar.ConventionUnpinned}
		}
		for _, stratum := range strata {
			for _, year := range universe.Strata[stratum] {
				for _, conv := range conventions {
					res, err := s.oracle.Resolve(h, year, conv)
					if err != nil {
						if core.IsConventionAmbiguous(err) && def.MultiConvention() {
							// Pin or exclude: an unpinned multi-convention
							// cell is kept for exploratory reporting under
							// the first supported convention, never in
							// primary analysis.
							res, err = s.oracle.Resolve(h, year, def.Conventions[0])
							if err != nil {
								return nil, fmt.Errorf("resolving %s %d fallback pin: %w", h, year, err)
							}
							holidayDates[res.Date] = true
							for _, lang := range universe.Languages[h] {
								item := s.buildPositive(def, res, conv, stratum, lang)
								item.Excluded = corpus.ExclusionConventionAmbiguous
								positives = append(positives, positive{item: item, def: def})
							}
							continue
						}
						if core.IsOracleError(err) {
							return nil, fmt.Errorf("resolving %s %d (%s): %w", h, year, conv, err)
						}
						return nil, err
					}
					holidayDates[res.Date] = true

					for _, lang := range universe.Languages[h] {
						item := s.buildPositive(def, res, conv, stratum, lang)
						positives = append(positives, positive{item: item, def: def})
					}
				}
			}
		}
	}

	// 2. Negatives per positive, per the registered ratios. Offsets and
	// random dates draw from a stream named by the positive's identity, so
	// item content never depends on enumeration order.
	var items []corpus.TestItem
	for _, p := range positives {
		items = append(items, p.item)
		items = append(items, s.buildNegatives(p.item, p.def, holidayDates)...)
	}

	// 3. Freeze and validate.
	manifest, err := corpus.NewManifest(universe.Version, s.cfg.Seed, items, universe.Conditions)
	if err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	excluded := 0
	for _, it := range items {
		if !it.Primary() {
			excluded++
		}
	}
	s.logger.Info("generated corpus %s: %d items (%d excluded), hash %s",
		manifest.CorpusID, len(items), excluded, core.ShortHash(core.Hash(manifest.Hash)))
	return manifest, nil
}

// checkExampleOverlap enforces the few-shot leakage guard across the whole
// universe: every example year of every condition must be disjoint from
// every target year.
func (s *CorpusService) checkExampleOverlap(universe Universe) error {
	targets := map[int]bool{}
	for _, years := range universe.Strata {
		for _, y := range years {
			targets[y] = true
		}
	}
	for _, cond := range universe.Conditions {
		for _, ey := range cond.ExampleYears {
			if targets[ey] {
				return core.NewOverlapError(string(cond.TemplateID), ey, ey)
			}
		}
	}
	return nil
}

// buildPositive freezes one ground-truth item. The item keeps the declared
// convention, not the oracle's resolved one: an unpinned Hijri cell and its
// pinned sibling are distinct content identities even though both resolve
// through the civil tabulation.
func (s *CorpusService) buildPositive(def calendar.Definition, res calendar.Resolution, declared calendar.Convention, stratum string, lang corpus.Language) corpus.TestItem {
	item := corpus.TestItem{
		Holiday:        def.Holiday,
		Year:           res.Year,
		YearStratum:    stratum,
		Language:       lang,
		Convention:     declared,
		Type:           corpus.ItemPositive,
		PromptDate:     res.Date,
		GroundTruth:    res,
		AcceptedLabels: scoring.AcceptedLabels(def.LabelKey, lang),
		ToleranceDays:  res.ToleranceDays,
	}
	if res.Ambiguous {
		item.Excluded = corpus.ExclusionComputationAmbiguous
	}
	item.ID = itemIdentity(item)
	return item
}

// buildNegatives derives the three registered negative categories from a
// positive. All of them inherit the positive's stratum, language, and
// declared convention so cells stay balanced. Dates are drawn without
// replacement within a category, and every sibling carries its ordinal in
// the content identity, so ratios above one never collapse items.
func (s *CorpusService) buildNegatives(pos corpus.TestItem, def calendar.Definition, holidayDates map[core.CivilDate]bool) []corpus.TestItem {
	stream := s.rng.Stream("negatives/" + string(pos.ID))
	var out []corpus.TestItem

	derive := func(t corpus.ItemType, date core.CivilDate, ordinal int) corpus.TestItem {
		n := pos
		n.Type = t
		n.PromptDate = date
		n.Ordinal = ordinal
		n.Excluded = pos.Excluded
		n.ID = itemIdentity(n)
		return n
	}

	// Near misses land just outside the tolerance band; only two such dates
	// exist, so the sign alternates from a random start.
	sign := 1
	if stream.Intn(2) == 1 {
		sign = -1
	}
	for i := 0; i < s.cfg.NearMissPerPositive; i++ {
		offset := (pos.ToleranceDays + 1) * sign
		out = append(out, derive(corpus.ItemNegativeNearMiss, pos.GroundTruth.Date.AddDays(offset), i))
		sign = -sign
	}

	used := map[core.CivilDate]bool{}
	for i := 0; i < s.cfg.RandomPerPositive; i++ {
		date := s.randomNegativeDate(stream, pos, holidayDates, used)
		used[date] = true
		out = append(out, derive(corpus.ItemNegativeRandom, date, i))
	}

	impossible := impossibleDates(stream, pos.Year)
	for i := 0; i < s.cfg.ImpossiblePerPositive; i++ {
		out = append(out, derive(corpus.ItemNegativeImpossible, impossible[i%len(impossible)], i))
	}
	return out
}

// randomNegativeDate picks a weekday-matched baseline date: same year and
// weekday as the ground truth, never any holiday date in the universe, at
// least a week away from the ground truth itself, and not already used by a
// sibling negative.
func (s *CorpusService) randomNegativeDate(stream *rand.Rand, pos corpus.TestItem, holidayDates, used map[core.CivilDate]bool) core.CivilDate {
	gt := pos.GroundTruth.Date
	for tries := 0; tries < 64; tries++ {
		weeks := stream.Intn(50) + 2 // 2..51 weeks after Jan 1's first matching weekday
		candidate := firstWeekdayOfYear(pos.Year, gt.Weekday()).AddDays(weeks * 7)
		if candidate.Year != pos.Year || holidayDates[candidate] || used[candidate] {
			continue
		}
		if d := gt.DaysBetween(candidate); d > -7 && d < 7 {
			continue
		}
		return candidate
	}
	// Degenerate universes only; shift half a year keeping the weekday.
	return gt.AddDays(26 * 7)
}

func firstWeekdayOfYear(year int, wd time.Weekday) core.CivilDate {
	d := core.NewCivilDate(year, time.January, 1)
	for d.Weekday() != wd {
		d = d.AddDays(1)
	}
	return d
}

// impossibleDates returns the syntactically well-formed Gregorian dates that
// do not exist, in the item's own year, in a stream-shuffled order so draws
// within one positive never repeat until the pool is exhausted.
func impossibleDates(stream *rand.Rand, year int) []core.CivilDate {
	candidates := []core.CivilDate{
		core.NewCivilDate(year, time.February, 30),
		core.NewCivilDate(year, time.April, 31),
		core.NewCivilDate(year, time.June, 31),
		core.NewCivilDate(year, time.September, 31),
		core.NewCivilDate(year, time.November, 31),
	}
	stream.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates
}

// itemIdentity derives the content-addressed ItemID. Prompt conditions are
// excluded on purpose: one content identity across every condition.
func itemIdentity(item corpus.TestItem) core.ItemID {
	h := core.ComputeItemHash(
		string(item.Holiday),
		fmt.Sprintf("%d", item.Year),
		string(item.Convention),
		string(item.Language),
		string(item.Type),
		fmt.Sprintf("%d", item.Ordinal),
		item.PromptDate.String(),
	)
	return core.ItemID(h.String())
}

func sortedHolidays(registry calendar.Registry) []calendar.Holiday {
	out := make([]calendar.Holiday, 0, len(registry))
	for h := range registry {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedStrata(strata map[string][]int) []string {
	out := make([]string, 0, len(strata))
	for name := range strata {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
