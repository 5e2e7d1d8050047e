package trees

import (
	"github.com/solarsim/solarsim/pkg/geo"
	"github.com/solarsim/solarsim/pkg/shade"
)

// ToObstacle converts a detected tree into a shading obstacle relative to
// an observer point. Detected trees are typed deciduous; users reclassify
// evergreens in the editor.
func (t DetectedTree) ToObstacle(observer geo.Coordinates) shade.Obstacle {
	pos := geo.Coordinates{Latitude: t.Lat, Longitude: t.Lng}
	return shade.Obstacle{
		Type:      shade.TreeDeciduous,
		Direction: geo.Bearing(observer, pos),
		Distance:  geo.Distance(observer, pos),
		Height:    t.Height,
		Width:     t.CanopyRadius * 2,
	}
}

// ToObstacles converts a batch of detected trees for one observer.
func ToObstacles(observer geo.Coordinates, detected []DetectedTree) []shade.Obstacle {
	obstacles := make([]shade.Obstacle, len(detected))
	for i, t := range detected {
		obstacles[i] = t.ToObstacle(observer)
	}
	return obstacles
}
