// Package shadow projects obstacle silhouettes onto the ground plane as
// polygons for map rendering. This is visualization support; its precision
// requirements are looser than the blocking model in pkg/shade.
package shadow

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
	"github.com/solarsim/solarsim/pkg/solar"
)

// Shadow lengths explode as the sun approaches the horizon; cap them so
// rendered polygons stay sane.
const maxShadowFactor = 20.0

const ellipseSegments = 24

// Options adjusts the projection for sloped ground. SlopeDeg is the ground
// tilt and AspectDeg the downhill compass bearing. Zero values mean flat.
type Options struct {
	SlopeDeg  float64
	AspectDeg float64
}

// Project returns the obstacle's ground shadow as a closed ring of local
// east/north meter offsets relative to the observer. The ring is empty when
// the sun is at or below the horizon.
func Project(o shade.Obstacle, sun solar.Position, opts Options) orb.Ring {
	if sun.Altitude <= 0 {
		return nil
	}

	length := shadowLength(o.Height, sun, opts)

	// Shadow falls opposite the sun.
	shadowDir := math.Mod(sun.Azimuth+180, 360)
	ux, uy := bearingVector(shadowDir)

	// Obstacle base position relative to the observer.
	bx, by := bearingVector(o.Direction)
	baseX := bx * o.Distance
	baseY := by * o.Distance

	switch o.Type {
	case shade.TreeDeciduous, shade.TreeEvergreen:
		return canopyEllipse(baseX, baseY, ux, uy, o.Width/2, length, sun)
	default:
		// Buildings, fences and hedges cast the shadow of a wall: the
		// footprint segment swept along the shadow direction.
		return wallShadow(baseX, baseY, ux, uy, o.Direction, o.Width, length)
	}
}

// ProjectGeographic projects the shadow and converts the local offsets to
// geographic coordinates around the observer.
func ProjectGeographic(origin geo.Coordinates, o shade.Obstacle, sun solar.Position, opts Options) orb.Ring {
	local := Project(o, sun, opts)
	if local == nil {
		return nil
	}
	cosLat := math.Cos(origin.Latitude * math.Pi / 180)
	ring := make(orb.Ring, len(local))
	for i, p := range local {
		ring[i] = orb.Point{
			origin.Longitude + p[0]/(111320.0*cosLat),
			origin.Latitude + p[1]/111320.0,
		}
	}
	return ring
}

// shadowLength computes the cast length of a vertical height, adjusted for
// the slope component along the shadow direction. Positive downhill slope
// lengthens the shadow, uphill shortens it.
func shadowLength(height float64, sun solar.Position, opts Options) float64 {
	tanAlt := math.Tan(sun.Altitude * math.Pi / 180)
	denom := tanAlt
	if opts.SlopeDeg != 0 {
		shadowDir := sun.Azimuth + 180
		along := math.Cos((shadowDir - opts.AspectDeg) * math.Pi / 180)
		denom = tanAlt - math.Tan(opts.SlopeDeg*math.Pi/180)*along
	}
	if denom < 1.0/maxShadowFactor {
		denom = 1.0 / maxShadowFactor
	}
	return height / denom
}

// canopyEllipse approximates the shadow of a circular canopy: an ellipse
// with the canopy radius across the shadow axis and a stretched semi-major
// axis along it, centered at the displaced canopy shadow position.
func canopyEllipse(baseX, baseY, ux, uy, radius, length float64, sun solar.Position) orb.Ring {
	sinAlt := math.Sin(sun.Altitude * math.Pi / 180)
	semiMajor := radius / sinAlt
	if semiMajor > radius*maxShadowFactor {
		semiMajor = radius * maxShadowFactor
	}

	cx := baseX + ux*length
	cy := baseY + uy*length

	// Perpendicular to the shadow axis.
	px, py := -uy, ux

	ring := make(orb.Ring, 0, ellipseSegments+1)
	for i := 0; i < ellipseSegments; i++ {
		theta := 2 * math.Pi * float64(i) / ellipseSegments
		a := semiMajor * math.Cos(theta)
		b := radius * math.Sin(theta)
		ring = append(ring, orb.Point{cx + ux*a + px*b, cy + uy*a + py*b})
	}
	ring = append(ring, ring[0])
	return ring
}

// wallShadow sweeps the obstacle footprint segment along the shadow
// direction, producing a parallelogram (quadrilateral for buildings).
func wallShadow(baseX, baseY, ux, uy float64, facing, width, length float64) orb.Ring {
	// The footprint segment runs perpendicular to the bearing from the
	// observer, centered on the base point.
	px, py := bearingVector(facing + 90)
	half := width / 2

	p1 := orb.Point{baseX - px*half, baseY - py*half}
	p2 := orb.Point{baseX + px*half, baseY + py*half}
	p3 := orb.Point{p2[0] + ux*length, p2[1] + uy*length}
	p4 := orb.Point{p1[0] + ux*length, p1[1] + uy*length}

	return orb.Ring{p1, p2, p3, p4, p1}
}

// bearingVector converts a compass bearing to a unit east/north vector.
func bearingVector(bearing float64) (x, y float64) {
	rad := bearing * math.Pi / 180
	return math.Sin(rad), math.Cos(rad)
}
