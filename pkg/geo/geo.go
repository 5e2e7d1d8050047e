// Package geo provides geographic primitives shared across the solar and
// canopy pipelines: coordinates, bounding boxes, and Web-Mercator tile
// addressing at a fixed zoom level.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Coordinates is an immutable geographic point in WGS84 degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Validate checks that the coordinates are within valid WGS84 ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// Point returns the coordinates as an orb.Point (lng, lat order).
func (c Coordinates) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// Bounds is a geographic bounding box in degrees.
type Bounds struct {
	South float64 `json:"south" yaml:"south"`
	North float64 `json:"north" yaml:"north"`
	West  float64 `json:"west" yaml:"west"`
	East  float64 `json:"east" yaml:"east"`
}

// Validate checks the bounding box invariants (north > south, east > west).
func (b Bounds) Validate() error {
	if b.North <= b.South {
		return fmt.Errorf("invalid bounds: north (%v) must be greater than south (%v)", b.North, b.South)
	}
	if b.East <= b.West {
		return fmt.Errorf("invalid bounds: east (%v) must be greater than west (%v)", b.East, b.West)
	}
	return nil
}

// Contains reports whether the point lies within the bounds, inclusive.
func (b Bounds) Contains(c Coordinates) bool {
	return c.Latitude >= b.South && c.Latitude <= b.North &&
		c.Longitude >= b.West && c.Longitude <= b.East
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Coordinates {
	return Coordinates{
		Latitude:  (b.South + b.North) / 2,
		Longitude: (b.West + b.East) / 2,
	}
}

// Intersects reports whether two bounding boxes overlap.
func (b Bounds) Intersects(other Bounds) bool {
	return b.West < other.East && b.East > other.West &&
		b.South < other.North && b.North > other.South
}

// Bound returns the bounds as an orb.Bound.
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}
