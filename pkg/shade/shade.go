// Package shade models how discrete obstacles (trees, buildings, fences,
// hedges) block direct sunlight at a point. Obstacles are treated as angular
// silhouettes: an angular height from their physical height and distance,
// an angular half-width from their width, centered on a compass bearing.
package shade

import (
	"fmt"
	"math"

	"github.com/solarsim/solarsim/pkg/solar"
)

// ObstacleType identifies the kind of light-blocking obstacle.
type ObstacleType int

const (
	TreeDeciduous ObstacleType = iota
	TreeEvergreen
	Building
	Fence
	Hedge
)

func (t ObstacleType) String() string {
	switch t {
	case TreeDeciduous:
		return "tree-deciduous"
	case TreeEvergreen:
		return "tree-evergreen"
	case Building:
		return "building"
	case Fence:
		return "fence"
	case Hedge:
		return "hedge"
	default:
		return fmt.Sprintf("ObstacleType(%d)", int(t))
	}
}

// ParseObstacleType converts the serialized name back to its enum value.
func ParseObstacleType(s string) (ObstacleType, error) {
	switch s {
	case "tree-deciduous":
		return TreeDeciduous, nil
	case "tree-evergreen":
		return TreeEvergreen, nil
	case "building":
		return Building, nil
	case "fence":
		return Fence, nil
	case "hedge":
		return Hedge, nil
	}
	return 0, fmt.Errorf("unknown obstacle type %q", s)
}

// Transparency is the fraction of light passing through the obstacle.
// Solid structures are fully opaque; tree canopies and hedges leak light.
func (t ObstacleType) Transparency() float64 {
	switch t {
	case Building, Fence:
		return 0.0
	case TreeDeciduous, TreeEvergreen:
		return 0.4
	case Hedge:
		return 0.3
	default:
		return 0.0
	}
}

// Obstacle is a light-blocking object described relative to the observer:
// a compass bearing, a distance, and physical height/width in meters.
type Obstacle struct {
	Type      ObstacleType `json:"type"`
	Direction float64      `json:"direction"` // compass bearing, degrees
	Distance  float64      `json:"distance"`  // meters, > 0
	Height    float64      `json:"height"`    // meters, > 0
	Width     float64      `json:"width"`     // meters, > 0
}

// Validate checks the physical dimensions.
func (o Obstacle) Validate() error {
	if o.Distance <= 0 {
		return fmt.Errorf("obstacle distance must be positive, got %v", o.Distance)
	}
	if o.Height <= 0 {
		return fmt.Errorf("obstacle height must be positive, got %v", o.Height)
	}
	if o.Width <= 0 {
		return fmt.Errorf("obstacle width must be positive, got %v", o.Width)
	}
	return nil
}

// AngularHeight is the elevation angle subtended by the obstacle, degrees.
func (o Obstacle) AngularHeight() float64 {
	return math.Atan(o.Height/o.Distance) * 180.0 / math.Pi
}

// AngularHalfWidth is half the azimuthal angle subtended, degrees.
func (o Obstacle) AngularHalfWidth() float64 {
	return math.Atan((o.Width/2)/o.Distance) * 180.0 / math.Pi
}

// BlockingResult reports whether an obstacle occludes the sun and how much
// light it removes. ShadeIntensity is 1 - transparency when occluding.
type BlockingResult struct {
	Blocked        bool    `json:"blocked"`
	ShadeIntensity float64 `json:"shadeIntensity"`
}

// IsBlocked determines whether the obstacle occludes the sun at the given
// position. The sun must be above the horizon, below the obstacle's angular
// height, and within its angular half-width of the obstacle bearing.
func IsBlocked(sun solar.Position, o Obstacle) BlockingResult {
	if sun.Altitude <= 0 {
		return BlockingResult{}
	}
	if sun.Altitude > o.AngularHeight() {
		return BlockingResult{}
	}
	if azimuthDelta(sun.Azimuth, o.Direction) > o.AngularHalfWidth() {
		return BlockingResult{}
	}
	intensity := 1 - o.Type.Transparency()
	return BlockingResult{Blocked: intensity > 0, ShadeIntensity: intensity}
}

// EffectiveSunFraction is the fraction of direct sunlight reaching the
// observer: 1 minus the strongest shade across all obstacles. Obstacles do
// not sum; the most-blocking one wins. Zero when the sun is down.
func EffectiveSunFraction(sun solar.Position, obstacles []Obstacle) float64 {
	if sun.Altitude <= 0 {
		return 0
	}
	maxShade := 0.0
	for _, o := range obstacles {
		if r := IsBlocked(sun, o); r.ShadeIntensity > maxShade {
			maxShade = r.ShadeIntensity
		}
	}
	return 1 - maxShade
}

// azimuthDelta returns the shortest angular difference between two compass
// bearings, wraparound-safe, in [0, 180].
func azimuthDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}
