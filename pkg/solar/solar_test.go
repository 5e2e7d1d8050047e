package solar

import (
	"math"
	"testing"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

var (
	portland  = geo.Coordinates{Latitude: 45.5152, Longitude: -122.6784}
	singapore = geo.Coordinates{Latitude: 1.3521, Longitude: 103.8198}
	svalbard  = geo.Coordinates{Latitude: 78.2232, Longitude: 15.6267}
)

func TestCalcPosition(t *testing.T) {
	tests := []struct {
		name        string
		coords      geo.Coordinates
		instant     time.Time
		wantUp      bool
		altApprox   float64 // expected altitude (±2 degrees), only when wantUp
		azApprox    float64 // expected azimuth (±15 degrees), only when wantUp
	}{
		{
			name:      "Portland summer solstice solar noon",
			coords:    portland,
			instant:   time.Date(2024, 6, 20, 20, 10, 0, 0, time.UTC), // ~13:10 PDT
			wantUp:    true,
			altApprox: 68.0, // 90 - lat + declination
			azApprox:  180.0,
		},
		{
			name:      "Portland winter solstice solar noon",
			coords:    portland,
			instant:   time.Date(2024, 12, 21, 20, 10, 0, 0, time.UTC),
			wantUp:    true,
			altApprox: 21.5,
			azApprox:  180.0,
		},
		{
			name:    "Portland midnight",
			coords:  portland,
			instant: time.Date(2024, 6, 20, 9, 0, 0, 0, time.UTC), // 2 AM PDT
			wantUp:  false,
		},
		{
			name:      "Singapore equinox noon nearly overhead",
			coords:    singapore,
			instant:   time.Date(2024, 3, 20, 5, 10, 0, 0, time.UTC), // ~13:10 SGT
			wantUp:    true,
			altApprox: 87.0,
			azApprox:  190.0, // nearly overhead, azimuth poorly conditioned
		},
		{
			name:    "Svalbard polar night noon",
			coords:  svalbard,
			instant: time.Date(2024, 12, 21, 11, 0, 0, 0, time.UTC),
			wantUp:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := CalcPosition(tt.coords, tt.instant)

			if got := pos.Altitude > 0; got != tt.wantUp {
				t.Fatalf("altitude = %.2f, wanted above horizon = %v", pos.Altitude, tt.wantUp)
			}
			if !tt.wantUp {
				return
			}
			if math.Abs(pos.Altitude-tt.altApprox) > 2.0 {
				t.Errorf("altitude = %.2f, expected ~%.1f", pos.Altitude, tt.altApprox)
			}
			if diff := math.Abs(pos.Azimuth - tt.azApprox); diff > 15 && diff < 345 {
				t.Errorf("azimuth = %.2f, expected ~%.1f", pos.Azimuth, tt.azApprox)
			}
		})
	}
}

func TestCalcPositionDeterministic(t *testing.T) {
	instant := time.Date(2024, 6, 20, 18, 30, 0, 0, time.UTC)
	a := CalcPosition(portland, instant)
	b := CalcPosition(portland, instant)
	if a != b {
		t.Errorf("repeated calls differ: %+v vs %+v", a, b)
	}
}

func TestCalcPositionMorningEastEveningWest(t *testing.T) {
	morning := CalcPosition(portland, time.Date(2024, 6, 20, 15, 0, 0, 0, time.UTC)) // 8 AM PDT
	evening := CalcPosition(portland, time.Date(2024, 6, 21, 2, 0, 0, 0, time.UTC))  // 7 PM PDT

	if morning.Azimuth >= 180 {
		t.Errorf("morning azimuth = %.1f, expected east of south", morning.Azimuth)
	}
	if evening.Azimuth <= 180 {
		t.Errorf("evening azimuth = %.1f, expected west of south", evening.Azimuth)
	}
}

func TestCalcTimes(t *testing.T) {
	tests := []struct {
		name          string
		coords        geo.Coordinates
		date          time.Time
		wantCrossings bool
		dayLenApprox  time.Duration // ±30 min, only when crossings exist
	}{
		{
			name:          "Portland summer solstice",
			coords:        portland,
			date:          time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
			wantCrossings: true,
			dayLenApprox:  15*time.Hour + 41*time.Minute,
		},
		{
			name:          "Portland winter solstice",
			coords:        portland,
			date:          time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC),
			wantCrossings: true,
			dayLenApprox:  8*time.Hour + 42*time.Minute,
		},
		{
			name:          "Svalbard midnight sun",
			coords:        svalbard,
			date:          time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC),
			wantCrossings: false,
			dayLenApprox:  24 * time.Hour,
		},
		{
			name:          "Svalbard polar night",
			coords:        svalbard,
			date:          time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC),
			wantCrossings: false,
			dayLenApprox:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			times := CalcTimes(tt.coords, tt.date)

			hasCrossings := times.Sunrise != nil && times.Sunset != nil
			if hasCrossings != tt.wantCrossings {
				t.Fatalf("crossings = %v, expected %v", hasCrossings, tt.wantCrossings)
			}
			tolerance := 30 * time.Minute
			if diff := times.DayLength - tt.dayLenApprox; diff > tolerance || diff < -tolerance {
				t.Errorf("day length = %v, expected ~%v", times.DayLength, tt.dayLenApprox)
			}
			if times.SolarNoon == nil {
				t.Error("solar noon should always be set")
			}
		})
	}
}

func TestCalcTimesPolarNightBoundary(t *testing.T) {
	// Just inside the December polar-night edge the sun can peek above the
	// horizon for less than one scan step around solar noon. Such a day is
	// a short normal day, never midnight sun.
	date := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)
	for lat := 67.55; lat <= 67.65; lat += 0.0002 {
		coords := geo.Coordinates{Latitude: lat, Longitude: 0}
		times := CalcTimes(coords, date)
		if times.DayLength == 24*time.Hour {
			t.Fatalf("lat %.4f: 24h day length in December at altitude minimum %.2f",
				lat, CalcPosition(coords, date).Altitude)
		}
		if times.Sunrise == nil && times.Sunset == nil && times.DayLength > 0 {
			t.Fatalf("lat %.4f: day length %v with no crossings", lat, times.DayLength)
		}
	}

	coords := geo.Coordinates{Latitude: 67.5920, Longitude: 0}
	if cond := Condition(coords, date); cond == PolarMidnightSun {
		t.Errorf("lat 67.5920 on 2024-12-10 classified %v", cond)
	}
	if times := CalcTimes(coords, date); times.DayLength >= time.Hour {
		t.Errorf("day length %v, expected a sliver of daylight at most", times.DayLength)
	}
}

func TestCondition(t *testing.T) {
	tests := []struct {
		name   string
		coords geo.Coordinates
		date   time.Time
		want   PolarCondition
	}{
		{"Portland June", portland, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), PolarNormal},
		{"Svalbard June", svalbard, time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC), PolarMidnightSun},
		{"Svalbard December", svalbard, time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC), PolarNight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Condition(tt.coords, tt.date); got != tt.want {
				t.Errorf("Condition() = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestMidnightUTC(t *testing.T) {
	in := time.Date(2024, 6, 20, 17, 45, 12, 999, time.UTC)
	got := MidnightUTC(in)
	want := time.Date(2024, 6, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("MidnightUTC(%v) = %v, expected %v", in, got, want)
	}
	if !MidnightUTC(got).Equal(got) {
		t.Error("MidnightUTC should be idempotent")
	}
}
