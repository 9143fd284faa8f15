package calendar

import (
	"fmt"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

// hijriDate is a date on the civil Islamic calendar
type hijriDate struct {
	Year  int
	Month int // 1..12, 9 = Ramadan, 10 = Shawwal, 12 = Dhu al-Hijjah
	Day   int
}

const (
	monthRamadan   = 9
	monthShawwal   = 10
	monthDhuAlHijj = 12

	// Julian day number of 1 Muharram 1 AH on the civil (Friday) epoch
	hijriCivilEpochJDN = 1948440
)

// hijriHolidayDates maps each Hijri holiday to its calendar position
var hijriHolidayDates = map[domain.Holiday]hijriDate{
	domain.HolidayRamadanStart: {Month: monthRamadan, Day: 1},
	domain.HolidayEidAlFitr:    {Month: monthShawwal, Day: 1},
	domain.HolidayEidAlAdha:    {Month: monthDhuAlHijj, Day: 10},
}

var hijriMonthNames = [13]string{"", "Muharram", "Safar", "Rabi al-Awwal", "Rabi al-Thani",
	"Jumada al-Awwal", "Jumada al-Thani", "Rajab", "Shaban", "Ramadan", "Shawwal",
	"Dhu al-Qadah", "Dhu al-Hijjah"}

// ummAlQuraOverrides corrects month starts where the published Umm al-Qura
// calendar deviates from the arithmetic tabulation. Key is year*100+month.
var ummAlQuraOverrides = map[int]core.CivilDate{
	144512: {Year: 2024, Month: time.June, Day: 7},  // Dhu al-Hijjah 1445
	144610: {Year: 2025, Month: time.March, Day: 30}, // Shawwal 1446
	144612: {Year: 2025, Month: time.May, Day: 28},   // Dhu al-Hijjah 1446
}

// HijriOracle resolves Islamic holidays against the civil (Umm al-Qura)
// tabulation. When the convention is left unpinned, the resolution carries a
// ±1-day tolerance band reflecting sighting-based divergence; the band is
// recorded here, on the ground truth, and never decided ad hoc by the scorer.
type HijriOracle struct{}

// NewHijriOracle creates a Hijri oracle
func NewHijriOracle() *HijriOracle {
	return &HijriOracle{}
}

// Resolve returns the holiday's civil date within the given Gregorian year.
// A Gregorian year that contains the holiday twice (the Hijri year is ~11
// days shorter) resolves to the earlier occurrence.
func (o *HijriOracle) Resolve(holiday domain.Holiday, year int, convention domain.Convention) (domain.Resolution, error) {
	pos, ok := hijriHolidayDates[holiday]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("%w: %s", core.ErrHolidayNotFound, holiday)
	}

	tolerance := 0
	switch convention {
	case domain.ConventionUmmAlQura:
		// exact civil tabulation
	case domain.ConventionSighting:
		// sighting announcements trail or lead the civil calendar by a day
		tolerance = 1
	case domain.ConventionUnpinned:
		convention = domain.ConventionUmmAlQura
		tolerance = 1
	default:
		return domain.Resolution{}, fmt.Errorf("hijri: unsupported convention %q", convention)
	}

	// The Hijri year overlapping a Gregorian year g is roughly g-579; scan
	// the neighborhood and keep occurrences inside g.
	var found []struct {
		date  core.CivilDate
		hijri hijriDate
	}
	for hy := year - 581; hy <= year - 577; hy++ {
		d := hijriDate{Year: hy, Month: pos.Month, Day: pos.Day}
		g := hijriToGregorian(d)
		if g.Year == year {
			found = append(found, struct {
				date  core.CivilDate
				hijri hijriDate
			}{g, d})
		}
	}
	if len(found) == 0 {
		return domain.Resolution{}, fmt.Errorf("%w: %s in %d", core.ErrYearOutOfRange, holiday, year)
	}

	first := found[0]
	for _, f := range found[1:] {
		if f.date.Before(first.date) {
			first = f
		}
	}

	return domain.Resolution{
		Holiday:        holiday,
		Year:           year,
		Convention:     convention,
		Date:           first.date,
		Label:          string(holiday),
		Representation: fmt.Sprintf("%d %s %d AH", first.hijri.Day, hijriMonthNames[first.hijri.Month], first.hijri.Year),
		ToleranceDays:  tolerance,
	}, nil
}

// hijriToGregorian converts a civil Hijri date to its Gregorian civil date,
// applying Umm al-Qura month-start overrides where the tabulation deviates.
func hijriToGregorian(d hijriDate) core.CivilDate {
	if start, ok := ummAlQuraOverrides[d.Year*100+d.Month]; ok {
		return start.AddDays(d.Day - 1)
	}
	jdn := hijriCivilToJDN(d)
	return jdnToGregorian(jdn)
}

// hijriCivilToJDN is the arithmetic civil-calendar conversion (30-year cycle,
// 11 leap years, Friday epoch).
func hijriCivilToJDN(d hijriDate) int {
	y := d.Year
	m := d.Month
	return (11*y+3)/30 + 354*y + 30*m - (m-1)/2 + d.Day + hijriCivilEpochJDN - 385
}
