package sunhours

import (
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
	"github.com/solarsim/solarsim/pkg/solar"
)

// DailyEnergyData is the clear-sky insolation for one UTC day, in kWh/m2.
// EffectiveKWh discounts each sample by obstacle shading; it equals
// EnergyKWh when no obstacles are given.
type DailyEnergyData struct {
	Date         time.Time `json:"date"`
	EnergyKWh    float64   `json:"energyKwh"`
	EffectiveKWh float64   `json:"effectiveKwh"`
}

// DailyEnergy integrates the clear-sky global horizontal irradiance over the
// UTC day containing date, at the same 5-minute cadence as Daily. elevationM
// is the site elevation above sea level.
func DailyEnergy(coords geo.Coordinates, date time.Time, elevationM float64, obstacles []shade.Obstacle) DailyEnergyData {
	day := solar.MidnightUTC(date)

	total := 0.0
	effective := 0.0
	t := day
	for i := 0; i < samplesPerDay; i++ {
		ghi := solar.ClearSkyGHI(coords, t, elevationM)
		if ghi > 0 {
			total += ghi * stepHours
			fraction := 1.0
			if len(obstacles) > 0 {
				fraction = shade.EffectiveSunFraction(solar.CalcPosition(coords, t), obstacles)
			}
			effective += ghi * fraction * stepHours
		}
		t = t.Add(sampleStep)
	}

	return DailyEnergyData{
		Date:         day,
		EnergyKWh:    total / 1000.0,
		EffectiveKWh: effective / 1000.0,
	}
}
