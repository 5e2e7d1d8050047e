// Package sunhours integrates sun position over time to produce daily and
// seasonal sun-hour totals, with and without obstacle shading. Both
// integrators sample the identical instants so theoretical vs. effective
// totals are directly comparable.
package sunhours

import (
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
	"github.com/solarsim/solarsim/pkg/solar"
)

// Sampling cadence: 5-minute steps, 288 samples per UTC day.
const (
	sampleStep    = 5 * time.Minute
	samplesPerDay = 288
	stepHours     = 1.0 / 12.0
)

// DailySunData is the theoretical sun exposure for one UTC day.
type DailySunData struct {
	Date     time.Time            `json:"date"`
	SunHours float64              `json:"sunHours"`
	Times    solar.Times          `json:"sunTimes"`
	Polar    solar.PolarCondition `json:"polarCondition"`
}

// ShadedSunData extends DailySunData with the effective hours remaining
// after obstacle shading.
type ShadedSunData struct {
	DailySunData
	EffectiveHours float64 `json:"effectiveHours"`
}

// Daily computes the theoretical sun hours for the UTC day containing date.
// The date is normalized to midnight first, so repeated calls with any
// instant of the same day return the same result.
func Daily(coords geo.Coordinates, date time.Time) DailySunData {
	day := solar.MidnightUTC(date)
	times := solar.CalcTimes(coords, day)

	hours := 0.0
	t := day
	for i := 0; i < samplesPerDay; i++ {
		if solar.CalcPosition(coords, t).Altitude > 0 {
			hours += stepHours
		}
		t = t.Add(sampleStep)
	}

	polar := solar.PolarNormal
	if times.Sunrise == nil || times.Sunset == nil {
		if times.DayLength > 0 {
			polar = solar.PolarMidnightSun
		} else {
			polar = solar.PolarNight
		}
	}

	// Pin the polar extremes so the 24h/0h invariants hold exactly, and
	// keep a normal day strictly under a full 24 hours.
	switch polar {
	case solar.PolarMidnightSun:
		hours = 24
	case solar.PolarNight:
		hours = 0
	default:
		if hours > 24-stepHours {
			hours = 24 - stepHours
		}
	}

	return DailySunData{Date: day, SunHours: hours, Times: times, Polar: polar}
}

// DailyWithShade runs the same sampling loop as Daily but weights each
// sample interval by the effective sun fraction across the given obstacles.
func DailyWithShade(coords geo.Coordinates, date time.Time, obstacles []shade.Obstacle) ShadedSunData {
	day := solar.MidnightUTC(date)
	base := Daily(coords, day)

	effective := 0.0
	t := day
	for i := 0; i < samplesPerDay; i++ {
		pos := solar.CalcPosition(coords, t)
		if pos.Altitude > 0 {
			effective += stepHours * shade.EffectiveSunFraction(pos, obstacles)
		}
		t = t.Add(sampleStep)
	}
	if effective > base.SunHours {
		effective = base.SunHours
	}

	return ShadedSunData{DailySunData: base, EffectiveHours: effective}
}
