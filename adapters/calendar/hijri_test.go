package calendar

import (
	"testing"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

func TestHijri_KnownDates(t *testing.T) {
	// Umm al-Qura civil dates, cross-checked against the published calendar
	cases := []struct {
		holiday domain.Holiday
		year    int
		month   time.Month
		day     int
	}{
		{domain.HolidayRamadanStart, 2024, time.March, 11},
		{domain.HolidayEidAlFitr, 2024, time.April, 10},
		{domain.HolidayEidAlAdha, 2024, time.June, 16},
		{domain.HolidayRamadanStart, 2025, time.March, 1},
		{domain.HolidayEidAlFitr, 2025, time.March, 30},
		{domain.HolidayEidAlAdha, 2025, time.June, 6},
	}

	oracle := NewHijriOracle()
	for _, tc := range cases {
		res, err := oracle.Resolve(tc.holiday, tc.year, domain.ConventionUmmAlQura)
		if err != nil {
			t.Fatalf("Resolve(%s, %d): %v", tc.holiday, tc.year, err)
		}
		want := core.NewCivilDate(tc.year, tc.month, tc.day)
		if res.Date != want {
			t.Errorf("%s %d = %s, want %s", tc.holiday, tc.year, res.Date, want)
		}
	}
}

func TestHijri_ToleranceBands(t *testing.T) {
	oracle := NewHijriOracle()

	pinned, err := oracle.Resolve(domain.HolidayEidAlFitr, 2024, domain.ConventionUmmAlQura)
	if err != nil {
		t.Fatalf("pinned resolve: %v", err)
	}
	if pinned.ToleranceDays != 0 {
		t.Errorf("pinned Umm al-Qura tolerance = %d, want 0", pinned.ToleranceDays)
	}

	sighting, err := oracle.Resolve(domain.HolidayEidAlFitr, 2024, domain.ConventionSighting)
	if err != nil {
		t.Fatalf("sighting resolve: %v", err)
	}
	if sighting.ToleranceDays != 1 {
		t.Errorf("sighting tolerance = %d, want 1", sighting.ToleranceDays)
	}

	// Unpinned items resolve against the civil tabulation but carry the
	// sighting divergence band; the band lives on the resolution, not in
	// scorer logic.
	unpinned, err := oracle.Resolve(domain.HolidayEidAlFitr, 2024, domain.ConventionUnpinned)
	if err != nil {
		t.Fatalf("unpinned resolve: %v", err)
	}
	if unpinned.ToleranceDays != 1 {
		t.Errorf("unpinned tolerance = %d, want 1", unpinned.ToleranceDays)
	}
	if unpinned.Convention != domain.ConventionUmmAlQura {
		t.Errorf("unpinned should resolve against civil tabulation, got %q", unpinned.Convention)
	}
	if unpinned.Date != pinned.Date {
		t.Errorf("unpinned date %s differs from civil date %s", unpinned.Date, pinned.Date)
	}
}

func TestHijri_Representation(t *testing.T) {
	oracle := NewHijriOracle()

	res, err := oracle.Resolve(domain.HolidayEidAlFitr, 2024, domain.ConventionUmmAlQura)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Representation != "1 Shawwal 1445 AH" {
		t.Errorf("representation = %q, want 1 Shawwal 1445 AH", res.Representation)
	}
}

func TestHijri_ArithmeticTabulationRoundTrip(t *testing.T) {
	// Epoch anchor: 1 Muharram 1 AH on the civil calendar is JDN 1948440,
	// i.e. 19 July 622 CE on the proleptic Gregorian calendar.
	jdn := hijriCivilToJDN(hijriDate{Year: 1, Month: 1, Day: 1})
	if jdn != hijriCivilEpochJDN {
		t.Fatalf("epoch JDN = %d, want %d", jdn, hijriCivilEpochJDN)
	}

	g := jdnToGregorian(jdn)
	want := core.NewCivilDate(622, time.July, 19)
	if g != want {
		t.Errorf("epoch Gregorian date = %s, want %s", g, want)
	}
}
