package calendar

import (
	"fmt"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

// gregorianFixedDates holds the fixed control holidays. These anchor the
// benchmark's calibration cells: a model that fails movable holidays but
// recognizes fixed ones isolates the mapping failure from general holiday
// knowledge.
var gregorianFixedDates = map[domain.Holiday]struct {
	Month time.Month
	Day   int
}{
	domain.HolidayChristmas: {Month: time.December, Day: 25},
}

// GregorianOracle resolves fixed-date holidays
type GregorianOracle struct{}

// NewGregorianOracle creates a Gregorian fixed-date oracle
func NewGregorianOracle() *GregorianOracle {
	return &GregorianOracle{}
}

// Resolve returns the fixed date for the year
func (o *GregorianOracle) Resolve(holiday domain.Holiday, year int) (domain.Resolution, error) {
	fixed, ok := gregorianFixedDates[holiday]
	if !ok {
		return domain.Resolution{}, fmt.Errorf("%w: %s", core.ErrHolidayNotFound, holiday)
	}
	return domain.Resolution{
		Holiday:    holiday,
		Year:       year,
		Convention: domain.ConventionUnpinned,
		Date:       core.NewCivilDate(year, fixed.Month, fixed.Day),
		Label:      string(holiday),
	}, nil
}
