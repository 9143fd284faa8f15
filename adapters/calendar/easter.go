package calendar

import (
	"fmt"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

// EasterOracle resolves Easter Sunday under the Western or Orthodox civil
// convention. The two computations are independent: the Western date comes
// from the anonymous Gregorian computus, the Orthodox date from the Julian
// computus mapped onto the Gregorian calendar. They are never interchanged
// and never defaulted into each other.
type EasterOracle struct{}

// NewEasterOracle creates an Easter oracle
func NewEasterOracle() *EasterOracle {
	return &EasterOracle{}
}

// Resolve computes the Easter date for the pinned convention. An unpinned
// convention is a hard error: Easter has no tolerance band.
func (o *EasterOracle) Resolve(year int, convention domain.Convention) (domain.Resolution, error) {
	switch convention {
	case domain.ConventionWestern:
		return domain.Resolution{
			Holiday:        domain.HolidayEaster,
			Year:           year,
			Convention:     convention,
			Date:           westernEaster(year),
			Label:          "easter",
			Representation: fmt.Sprintf("Easter Sunday %d (Gregorian computus)", year),
		}, nil
	case domain.ConventionOrthodox:
		return domain.Resolution{
			Holiday:        domain.HolidayEaster,
			Year:           year,
			Convention:     convention,
			Date:           orthodoxEaster(year),
			Label:          "easter",
			Representation: fmt.Sprintf("Pascha %d (Julian computus)", year),
		}, nil
	case domain.ConventionUnpinned:
		return domain.Resolution{}, core.NewConventionAmbiguousError(
			string(domain.HolidayEaster), []string{string(domain.ConventionWestern), string(domain.ConventionOrthodox)})
	default:
		return domain.Resolution{}, fmt.Errorf("easter: unsupported convention %q", convention)
	}
}

// westernEaster is the anonymous Gregorian computus (Meeus/Jones/Butcher)
func westernEaster(year int) core.CivilDate {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return core.NewCivilDate(year, time.Month(month), day)
}

// orthodoxEaster computes the Julian-computus Easter and converts the Julian
// calendar date to its Gregorian equivalent (13-day offset in 1900-2099,
// handled exactly via Julian day numbers rather than a constant).
func orthodoxEaster(year int) core.CivilDate {
	a := year % 4
	b := year % 7
	c := year % 19
	d := (19*c + 15) % 30
	e := (2*a + 4*b - d + 34) % 7

	month := (d + e + 114) / 31
	day := (d+e+114)%31 + 1
	return julianToGregorian(year, time.Month(month), day)
}
