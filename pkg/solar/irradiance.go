package solar

import (
	"math"
	"time"

	"github.com/solarsim/solarsim/pkg/geo"
)

// Mean solar energy at the top of the atmosphere, W/m2.
const solarConstantWm2 = 1361.0

// Linke turbidity factor for clear skies. Typical clear-sky values run 2-6;
// 2 models a clean dry atmosphere.
const linkeTurbidity = 2.0

// ClearSkyGHI returns the clear-sky global horizontal irradiance in W/m2 at
// the given instant, using the Ineichen-Perez model. elevationM is the site
// elevation above sea level. Zero when the sun is below the horizon.
func ClearSkyGHI(coords geo.Coordinates, t time.Time, elevationM float64) float64 {
	pos := CalcPosition(coords, t)
	if pos.Altitude <= 0 {
		return 0
	}
	zenith := 90 - pos.Altitude
	zenRad := degToRad(zenith)
	day := float64(t.UTC().YearDay())

	// Extraterrestrial radiation, corrected for Earth-Sun distance.
	g0 := solarConstantWm2 * (1 + 0.033*math.Cos(degToRad(360*(day-3)/365)))

	// Kasten-Young relative air mass.
	airMass := 1.0 / (math.Cos(zenRad) + 0.50572*math.Pow(96.07995-zenith, -1.6364))

	// Direct beam attenuated by air mass and turbidity; the elevation term
	// thins the atmosphere above high sites.
	dni := g0 * 0.7 * math.Exp(-0.027*airMass*linkeTurbidity*math.Exp(-elevationM/8000.0))

	// Diffuse component with a mild seasonal variation.
	diffuseFraction := 0.1 + 0.05*math.Sin(math.Pi*(day-100)/365)
	dhi := diffuseFraction * g0 * math.Sin(zenRad)

	return dni*math.Cos(zenRad) + dhi
}
