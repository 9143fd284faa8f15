package calendar

import (
	"fmt"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

// chineseHolidayDates maps holiday -> Gregorian year -> civil date. Entries
// are astronomical new-moon results tabulated against the UTC+8 day boundary
// (China Standard Time), the convention used by the official calendar.
var chineseHolidayDates = map[domain.Holiday]map[int]core.CivilDate{
	domain.HolidayLunarNewYear: {
		2015: {Year: 2015, Month: time.February, Day: 19},
		2016: {Year: 2016, Month: time.February, Day: 8},
		2017: {Year: 2017, Month: time.January, Day: 28},
		2018: {Year: 2018, Month: time.February, Day: 16},
		2019: {Year: 2019, Month: time.February, Day: 5},
		2020: {Year: 2020, Month: time.January, Day: 25},
		2021: {Year: 2021, Month: time.February, Day: 12},
		2022: {Year: 2022, Month: time.February, Day: 1},
		2023: {Year: 2023, Month: time.January, Day: 22},
		2024: {Year: 2024, Month: time.February, Day: 10},
		2025: {Year: 2025, Month: time.January, Day: 29},
		2026: {Year: 2026, Month: time.February, Day: 17},
		2027: {Year: 2027, Month: time.February, Day: 6},
		2028: {Year: 2028, Month: time.January, Day: 26},
		2029: {Year: 2029, Month: time.February, Day: 13},
		2030: {Year: 2030, Month: time.February, Day: 3},
		2031: {Year: 2031, Month: time.January, Day: 23},
		2032: {Year: 2032, Month: time.February, Day: 11},
		2033: {Year: 2033, Month: time.January, Day: 31},
		2034: {Year: 2034, Month: time.February, Day: 19},
		2035: {Year: 2035, Month: time.February, Day: 8},
	},
	domain.HolidayDragonBoat: {
		2015: {Year: 2015, Month: time.June, Day: 20},
		2016: {Year: 2016, Month: time.June, Day: 9},
		2017: {Year: 2017, Month: time.May, Day: 30},
		2018: {Year: 2018, Month: time.June, Day: 18},
		2019: {Year: 2019, Month: time.June, Day: 7},
		2020: {Year: 2020, Month: time.June, Day: 25},
		2021: {Year: 2021, Month: time.June, Day: 14},
		2022: {Year: 2022, Month: time.June, Day: 3},
		2023: {Year: 2023, Month: time.June, Day: 22},
		2024: {Year: 2024, Month: time.June, Day: 10},
		2025: {Year: 2025, Month: time.May, Day: 31},
		2026: {Year: 2026, Month: time.June, Day: 19},
		2027: {Year: 2027, Month: time.June, Day: 9},
		2028: {Year: 2028, Month: time.May, Day: 28},
		2029: {Year: 2029, Month: time.June, Day: 16},
		2030: {Year: 2030, Month: time.June, Day: 5},
		2031: {Year: 2031, Month: time.June, Day: 24},
		2032: {Year: 2032, Month: time.June, Day: 12},
	},
	domain.HolidayMidAutumn: {
		2015: {Year: 2015, Month: time.September, Day: 27},
		2016: {Year: 2016, Month: time.September, Day: 15},
		2017: {Year: 2017, Month: time.October, Day: 4},
		2018: {Year: 2018, Month: time.September, Day: 24},
		2019: {Year: 2019, Month: time.September, Day: 13},
		2020: {Year: 2020, Month: time.October, Day: 1},
		2021: {Year: 2021, Month: time.September, Day: 21},
		2022: {Year: 2022, Month: time.September, Day: 10},
		2023: {Year: 2023, Month: time.September, Day: 29},
		2024: {Year: 2024, Month: time.September, Day: 17},
		2025: {Year: 2025, Month: time.October, Day: 6},
		2026: {Year: 2026, Month: time.September, Day: 25},
		2027: {Year: 2027, Month: time.September, Day: 15},
		2028: {Year: 2028, Month: time.October, Day: 3},
		2029: {Year: 2029, Month: time.September, Day: 22},
		2030: {Year: 2030, Month: time.September, Day: 12},
		2031: {Year: 2031, Month: time.October, Day: 1},
		2032: {Year: 2032, Month: time.September, Day: 19},
	},
}

// anomalyYears are Gregorian years whose lunisolar structure is contested
// (the 2033-2034 adjacent intercalary-month problem: published almanacs
// disagree on the leap-month placement). The oracle flags these instead of
// silently picking a side.
var anomalyYears = map[int]string{
	2033: "adjacent intercalary month placement disputed (leap 11th month)",
	2034: "adjacent intercalary month placement disputed (leap 11th month)",
}

var chineseRepresentations = map[domain.Holiday]string{
	domain.HolidayLunarNewYear: "正月初一",
	domain.HolidayDragonBoat:   "五月初五",
	domain.HolidayMidAutumn:    "八月十五",
}

// LunisolarOracle resolves Chinese lunisolar holidays from a frozen date
// table. The day boundary zone is pinned to UTC+8 at construction with no
// per-call override, guaranteeing reproducible day boundaries.
type LunisolarOracle struct {
	zone  *time.Location
	table map[domain.Holiday]map[int]core.CivilDate
}

// NewLunisolarOracle creates a lunisolar oracle pinned to UTC+8.
// The table is shared and read-only; concurrent callers are safe.
func NewLunisolarOracle() *LunisolarOracle {
	return &LunisolarOracle{
		// Fixed offset rather than a tzdata lookup: China has no DST and the
		// oracle must not depend on the host zone database.
		zone:  time.FixedZone("CST", 8*60*60),
		table: chineseHolidayDates,
	}
}

// Zone returns the pinned day-boundary zone
func (o *LunisolarOracle) Zone() *time.Location {
	return o.zone
}

// Resolve returns the holiday's civil date for the Gregorian year. Known
// anomaly years come back flagged Ambiguous rather than as a best guess.
func (o *LunisolarOracle) Resolve(holiday domain.Holiday, year int) (domain.Resolution, error) {
	years, ok := o.table[holiday]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("%w: %s", core.ErrHolidayNotFound, holiday)
	}
	date, ok := years[year]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("%w: %s in %d", core.ErrYearOutOfRange, holiday, year)
	}

	res := domain.Resolution{
		Holiday:        holiday,
		Year:           year,
		Convention:     domain.ConventionUnpinned,
		Date:           date,
		Label:          string(holiday),
		Representation: chineseRepresentations[holiday],
	}
	if reason, anomalous := anomalyYears[year]; anomalous {
		res.Ambiguous = true
		res.AmbiguityReason = reason
	}
	return res, nil
}
