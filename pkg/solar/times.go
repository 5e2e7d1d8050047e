package solar

import (
	"math"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

// PolarCondition describes whether a day at a location has a normal
// sunrise/sunset cycle or a polar extreme.
type PolarCondition int

const (
	// PolarNormal means the sun rises and sets on this day.
	PolarNormal PolarCondition = iota
	// PolarMidnightSun means the sun never drops below the horizon.
	PolarMidnightSun
	// PolarNight means the sun never rises above the horizon.
	PolarNight
)

func (p PolarCondition) String() string {
	switch p {
	case PolarMidnightSun:
		return "midnight-sun"
	case PolarNight:
		return "polar-night"
	default:
		return "normal"
	}
}

// Times holds the sun event times for one UTC day. Sunrise and Sunset are
// nil under polar conditions.
type Times struct {
	Sunrise   *time.Time    `json:"sunrise"`
	Sunset    *time.Time    `json:"sunset"`
	SolarNoon *time.Time    `json:"solarNoon"`
	DayLength time.Duration `json:"dayLength"`
}

// crossing refinement runs a few bisection steps inside one scan interval,
// which lands within about a second.
const (
	timesScanStep  = 5 * time.Minute
	bisectionSteps = 9
)

// CalcTimes finds the sunrise and sunset as altitude-zero crossings across
// the UTC day containing date. When no crossing exists, Sunrise and Sunset
// are nil and the caller distinguishes midnight sun from polar night via
// the noon altitude (see Condition).
func CalcTimes(coords geo.Coordinates, date time.Time) Times {
	dayStart := MidnightUTC(date)
	noon := dayStart.Add(12 * time.Hour)

	var sunrise, sunset *time.Time
	prev := CalcPosition(coords, dayStart).Altitude
	minAlt := prev
	for t := dayStart.Add(timesScanStep); !t.After(dayStart.Add(24 * time.Hour)); t = t.Add(timesScanStep) {
		alt := CalcPosition(coords, t).Altitude
		if alt < minAlt {
			minAlt = alt
		}
		if prev <= 0 && alt > 0 && sunrise == nil {
			c := refineCrossing(coords, t.Add(-timesScanStep), t, true)
			sunrise = &c
		}
		if prev > 0 && alt <= 0 && sunset == nil {
			c := refineCrossing(coords, t.Add(-timesScanStep), t, false)
			sunset = &c
		}
		prev = alt
	}

	// Solar noon from the equation of time: 720 min UTC shifted by
	// longitude (4 min/degree) and the day's equation-of-time offset.
	eph := computeEphemeris(noon)
	noonMin := 720.0 - 4*coords.Longitude - eph.eqOfTimeMin
	noonMin = math.Mod(noonMin+1440, 1440)
	solarNoon := dayStart.Add(time.Duration(noonMin * float64(time.Minute)))

	times := Times{Sunrise: sunrise, Sunset: sunset, SolarNoon: &solarNoon}
	switch {
	case sunrise != nil && sunset != nil:
		times.DayLength = sunset.Sub(*sunrise)
		if times.DayLength < 0 {
			times.DayLength += 24 * time.Hour
		}
	case sunrise == nil && sunset == nil:
		// No crossings in the scan. Midnight sun only when the sun
		// actually stayed up all day; otherwise the above-horizon
		// window, if any, fits between two samples and brackets solar
		// noon, so bisect each flank of the transit.
		if minAlt > 0 {
			times.DayLength = 24 * time.Hour
		} else if CalcPosition(coords, solarNoon).Altitude > 0 {
			r := refineCrossing(coords, solarNoon.Add(-timesScanStep), solarNoon, true)
			st := refineCrossing(coords, solarNoon, solarNoon.Add(timesScanStep), false)
			times.Sunrise, times.Sunset = &r, &st
			times.DayLength = st.Sub(r)
		}
	case CalcPosition(coords, solarNoon).Altitude > 0:
		times.DayLength = 24 * time.Hour
	default:
		times.DayLength = 0
	}
	return times
}

// Condition classifies the day: normal, midnight sun, or polar night.
func Condition(coords geo.Coordinates, date time.Time) PolarCondition {
	t := CalcTimes(coords, date)
	if t.Sunrise != nil && t.Sunset != nil {
		return PolarNormal
	}
	if t.DayLength > 0 {
		return PolarMidnightSun
	}
	return PolarNight
}

// refineCrossing bisects [lo, hi] down to the altitude-zero crossing.
// rising selects the upward crossing (sunrise) vs downward (sunset).
func refineCrossing(coords geo.Coordinates, lo, hi time.Time, rising bool) time.Time {
	for i := 0; i < bisectionSteps; i++ {
		mid := lo.Add(hi.Sub(lo) / 2)
		alt := CalcPosition(coords, mid).Altitude
		above := alt > 0
		if above == rising {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo.Add(hi.Sub(lo) / 2).Round(time.Second)
}

// MidnightUTC normalizes a time to 00:00 UTC of its calendar day.
func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
