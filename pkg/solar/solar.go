// Package solar computes sun position and sun event times for a geographic
// point. Calculations follow the NOAA solar ephemeris (mean longitude, mean
// anomaly, equation of center, obliquity, declination, equation of time,
// hour angle) referenced to UTC. All functions are pure and deterministic.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/solarsim/solarsim/pkg/geo"
)

// Standard atmospheric refraction correction at the horizon, degrees.
const refractionDeg = 0.5667

// Position is the apparent position of the sun at one instant.
// Altitude <= 0 means the sun is below the horizon. Azimuth is a compass
// bearing in degrees (0 = north, 90 = east).
type Position struct {
	Altitude float64 `json:"altitude"`
	Azimuth  float64 `json:"azimuth"`
}

// ephemeris holds the intermediate solar quantities for one instant.
type ephemeris struct {
	declinationRad float64
	eqOfTimeMin    float64
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
func fixAngle(a float64) float64   { return a - 360.0*math.Floor(a/360.0) }

// computeEphemeris evaluates the NOAA series for the given instant.
func computeEphemeris(t time.Time) ephemeris {
	jd := julian.TimeToJD(t.UTC())
	T := (jd - 2451545.0) / 36525.0

	L0 := fixAngle(280.46646 + T*(36000.76983+T*0.0003032))
	M := fixAngle(357.52911 + T*(35999.05029-T*0.0001537))
	e := 0.016708634 - T*(0.000042037+T*0.0000001267)
	C := math.Sin(degToRad(M))*(1.914602-T*(0.004817+T*0.000014)) +
		math.Sin(degToRad(2*M))*(0.019993-T*0.000101) +
		math.Sin(degToRad(3*M))*0.000289
	sunLong := L0 + C
	omega := 125.04 - 1934.136*T
	lambda := sunLong - 0.00569 - 0.00478*math.Sin(degToRad(omega))
	eps0 := 23 + (26+(21.448-T*(46.815+T*(0.00059-T*0.001813)))/60)/60
	declRad := math.Asin(math.Sin(degToRad(eps0)) * math.Sin(degToRad(lambda)))

	y := math.Tan(degToRad(eps0)/2) * math.Tan(degToRad(eps0)/2)
	eqTimeMin := radToDeg(y*math.Sin(degToRad(2*L0))-
		2*e*math.Sin(degToRad(M))+
		4*e*y*math.Sin(degToRad(M))*math.Cos(degToRad(2*L0))-
		0.5*y*y*math.Sin(degToRad(4*L0))-
		1.25*e*e*math.Sin(degToRad(2*M))) * 4

	return ephemeris{declinationRad: declRad, eqOfTimeMin: eqTimeMin}
}

// CalcPosition returns the sun's altitude and azimuth for the given
// coordinates and instant.
func CalcPosition(coords geo.Coordinates, t time.Time) Position {
	t = t.UTC()
	eph := computeEphemeris(t)

	utcMin := float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60.0
	timeOffset := 4*coords.Longitude + eph.eqOfTimeMin
	trueSolarTime := math.Mod(utcMin+timeOffset+1440, 1440)
	haDeg := trueSolarTime/4 - 180
	haRad := degToRad(haDeg)

	latRad := degToRad(coords.Latitude)
	cosZen := math.Sin(latRad)*math.Sin(eph.declinationRad) +
		math.Cos(latRad)*math.Cos(eph.declinationRad)*math.Cos(haRad)
	cosZen = math.Max(-1, math.Min(1, cosZen))
	zenRad := math.Acos(cosZen)
	altitude := 90 - radToDeg(zenRad) + refractionDeg

	// Azimuth from the zenith triangle, folded east/west by hour angle sign.
	azDeg := 0.0
	azDen := math.Cos(latRad) * math.Sin(zenRad)
	if azDen != 0 {
		azCos := (math.Sin(eph.declinationRad) - math.Sin(latRad)*cosZen) / azDen
		azCos = math.Max(-1, math.Min(1, azCos))
		azDeg = radToDeg(math.Acos(azCos))
		if haDeg > 0 {
			azDeg = 360 - azDeg
		}
	}

	return Position{Altitude: altitude, Azimuth: azDeg}
}
