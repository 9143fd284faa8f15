package calendar

import (
	"time"

	"feastbench/domain/core"
)

// Julian day number conversions shared by the computus and Hijri oracles.
// Fliegel-Van Flandern for the Gregorian calendar, the standard arithmetic
// form for the Julian calendar.

// gregorianToJDN converts a Gregorian calendar date to its Julian day number
func gregorianToJDN(year int, month time.Month, day int) int {
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045
}

// jdnToGregorian converts a Julian day number to a Gregorian civil date
func jdnToGregorian(jdn int) core.CivilDate {
	a := jdn + 32044
	b := (4*a + 3) / 146097
	c := a - 146097*b/4
	d := (4*c + 3) / 1461
	e := c - 1461*d/4
	m := (5*e + 2) / 153

	day := e - (153*m+2)/5 + 1
	month := m + 3 - 12*(m/10)
	year := 100*b + d - 4800 + m/10
	return core.NewCivilDate(year, time.Month(month), day)
}

// julianToJDN converts a Julian calendar date to its Julian day number
func julianToJDN(year int, month time.Month, day int) int {
	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	return day + (153*m+2)/5 + 365*y + y/4 - 32083
}

// julianToGregorian maps a Julian calendar date onto the Gregorian civil
// calendar. The Orthodox Easter computation relies on this being exact
// rather than a fixed 13-day shift.
func julianToGregorian(year int, month time.Month, day int) core.CivilDate {
	return jdnToGregorian(julianToJDN(year, month, day))
}
