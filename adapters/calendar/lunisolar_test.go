package calendar

import (
	"errors"
	"testing"
	"time"

	domain "feastbench/domain/calendar"
	"feastbench/domain/core"
)

func TestLunisolar_KnownDates(t *testing.T) {
	cases := []struct {
		holiday domain.Holiday
		year    int
		month   time.Month
		day     int
	}{
		{domain.HolidayLunarNewYear, 2025, time.January, 29},
		{domain.HolidayLunarNewYear, 2024, time.February, 10},
		{domain.HolidayLunarNewYear, 2023, time.January, 22},
		{domain.HolidayLunarNewYear, 2020, time.January, 25},
		{domain.HolidayDragonBoat, 2024, time.June, 10},
		{domain.HolidayDragonBoat, 2025, time.May, 31},
		{domain.HolidayMidAutumn, 2024, time.September, 17},
		{domain.HolidayMidAutumn, 2025, time.October, 6},
	}

	oracle := NewLunisolarOracle()
	for _, tc := range cases {
		res, err := oracle.Resolve(tc.holiday, tc.year)
		if err != nil {
			t.Fatalf("Resolve(%s, %d): %v", tc.holiday, tc.year, err)
		}
		want := core.NewCivilDate(tc.year, tc.month, tc.day)
		if res.Date != want {
			t.Errorf("%s %d = %s, want %s", tc.holiday, tc.year, res.Date, want)
		}
		if res.Ambiguous {
			t.Errorf("%s %d unexpectedly flagged ambiguous", tc.holiday, tc.year)
		}
	}
}

func TestLunisolar_AnomalyYearsFlagged(t *testing.T) {
	oracle := NewLunisolarOracle()

	for _, year := range []int{2033, 2034} {
		res, err := oracle.Resolve(domain.HolidayLunarNewYear, year)
		if err != nil {
			t.Fatalf("Resolve(lny, %d): %v", year, err)
		}
		if !res.Ambiguous {
			t.Errorf("year %d should be flagged ambiguous, got silent result %s", year, res.Date)
		}
		if res.AmbiguityReason == "" {
			t.Errorf("year %d missing ambiguity reason", year)
		}
	}
}

func TestLunisolar_YearOutOfRange(t *testing.T) {
	oracle := NewLunisolarOracle()

	_, err := oracle.Resolve(domain.HolidayLunarNewYear, 1900)
	if !errors.Is(err, core.ErrYearOutOfRange) {
		t.Errorf("expected ErrYearOutOfRange, got %v", err)
	}
}

func TestLunisolar_ZonePinnedAtInit(t *testing.T) {
	oracle := NewLunisolarOracle()

	_, offset := time.Now().In(oracle.Zone()).Zone()
	if offset != 8*60*60 {
		t.Errorf("day boundary zone offset = %d, want UTC+8", offset)
	}
}

func TestLunisolar_Representation(t *testing.T) {
	oracle := NewLunisolarOracle()

	res, err := oracle.Resolve(domain.HolidayLunarNewYear, 2025)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Representation != "正月初一" {
		t.Errorf("representation = %q, want 正月初一", res.Representation)
	}
}
