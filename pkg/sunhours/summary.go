package sunhours

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
	"github.com/solarsim/solarsim/pkg/solar"
)

// Summary aggregates daily sun hours over a date range.
type Summary struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Days            int       `json:"days"`
	MeanSunHours    float64   `json:"meanSunHours"`
	MinSunHours     float64   `json:"minSunHours"`
	MaxSunHours     float64   `json:"maxSunHours"`
	MidnightSunDays int       `json:"midnightSunDays"`
	PolarNightDays  int       `json:"polarNightDays"`
}

// ShadedSummary extends Summary with the mean effective hours after shading.
type ShadedSummary struct {
	Summary
	MeanEffectiveHours float64 `json:"meanEffectiveHours"`
}

// RangeSummary aggregates Daily over every day in [start, end] inclusive.
func RangeSummary(coords geo.Coordinates, start, end time.Time) Summary {
	start = solar.MidnightUTC(start)
	end = solar.MidnightUTC(end)

	s := Summary{Start: start, End: end}
	var hours []float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		daily := Daily(coords, d)
		hours = append(hours, daily.SunHours)
		switch daily.Polar {
		case solar.PolarMidnightSun:
			s.MidnightSunDays++
		case solar.PolarNight:
			s.PolarNightDays++
		}
	}
	s.Days = len(hours)
	if s.Days > 0 {
		s.MeanSunHours = stat.Mean(hours, nil)
		s.MinSunHours = floats.Min(hours)
		s.MaxSunHours = floats.Max(hours)
	}
	return s
}

// RangeSummaryWithShade is RangeSummary weighted by obstacle shading.
// Results are memoized by a fingerprint of (coords, range, obstacles) so
// interactive recomputation after obstacle edits stays cheap.
func RangeSummaryWithShade(coords geo.Coordinates, start, end time.Time, obstacles []shade.Obstacle) ShadedSummary {
	start = solar.MidnightUTC(start)
	end = solar.MidnightUTC(end)

	key := fingerprint(coords, start, end, obstacles)
	if cached, ok := summaryMemo.Get(key); ok {
		return cached.(ShadedSummary)
	}

	s := ShadedSummary{Summary: Summary{Start: start, End: end}}
	var hours, effective []float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		daily := DailyWithShade(coords, d, obstacles)
		hours = append(hours, daily.SunHours)
		effective = append(effective, daily.EffectiveHours)
		switch daily.Polar {
		case solar.PolarMidnightSun:
			s.MidnightSunDays++
		case solar.PolarNight:
			s.PolarNightDays++
		}
	}
	s.Days = len(hours)
	if s.Days > 0 {
		s.MeanSunHours = stat.Mean(hours, nil)
		s.MinSunHours = floats.Min(hours)
		s.MaxSunHours = floats.Max(hours)
		s.MeanEffectiveHours = stat.Mean(effective, nil)
	}

	summaryMemo.Set(key, s, gocache.DefaultExpiration)
	return s
}

// MonthlySummary aggregates one calendar month.
func MonthlySummary(coords geo.Coordinates, year int, month time.Month) Summary {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	return RangeSummary(coords, start, end)
}

// Season identifies a meteorological season (northern-hemisphere naming).
type Season int

const (
	Spring Season = iota
	Summer
	Autumn
	Winter
)

func (s Season) String() string {
	switch s {
	case Spring:
		return "spring"
	case Summer:
		return "summer"
	case Autumn:
		return "autumn"
	default:
		return "winter"
	}
}

// seasonRange returns the meteorological date range for a season of a year.
// Winter spans the year boundary (Dec 1 through end of February).
func seasonRange(year int, season Season) (time.Time, time.Time) {
	switch season {
	case Spring:
		return time.Date(year, time.March, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.May, 31, 0, 0, 0, 0, time.UTC)
	case Summer:
		return time.Date(year, time.June, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.August, 31, 0, 0, 0, 0, time.UTC)
	case Autumn:
		return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.November, 30, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year+1, time.March, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}
}

// SeasonalSummary aggregates one meteorological season.
func SeasonalSummary(coords geo.Coordinates, year int, season Season) Summary {
	start, end := seasonRange(year, season)
	return RangeSummary(coords, start, end)
}

// SeasonalSummaryWithShade aggregates one season weighted by shading.
func SeasonalSummaryWithShade(coords geo.Coordinates, year int, season Season, obstacles []shade.Obstacle) ShadedSummary {
	start, end := seasonRange(year, season)
	return RangeSummaryWithShade(coords, start, end, obstacles)
}

// YearlySummary aggregates a full calendar year.
func YearlySummary(coords geo.Coordinates, year int) Summary {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return RangeSummary(coords, start, end)
}
