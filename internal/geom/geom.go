// Package geom holds the small amount of plane geometry the editor needs:
// integer surface points and pointer proximity checks.
package geom

import (
	"fmt"
	"math"
)

const (
	// HitRadius is how close a pointer must be to grab a point. It is also
	// the visual radius of the point markers.
	HitRadius = 6.0
	// ConnectRadius is how close a released endpoint must be to another
	// curve's endpoint to connect to it.
	ConnectRadius = 10.0
)

// Point is a position in surface-pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Pt returns the point (x, y).
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Truncate converts pointer coordinates to a Point, dropping any fractional
// part toward zero.
func Truncate(x, y float64) Point {
	return Point{X: int(math.Trunc(x)), Y: int(math.Trunc(y))}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Distance returns the euclidean distance between two points.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(float64(p.X-o.X), float64(p.Y-o.Y))
}

// DistanceTo returns the euclidean distance from p to the pointer position (x, y).
func (p Point) DistanceTo(x, y float64) float64 {
	return math.Hypot(float64(p.X)-x, float64(p.Y)-y)
}

// Hit reports whether the pointer at (x, y) lies on or inside the hit radius of p.
func (p Point) Hit(x, y float64) bool {
	return p.DistanceTo(x, y) <= HitRadius
}

// Near reports whether o lies on or inside the connect radius of p.
func (p Point) Near(o Point) bool {
	return p.Distance(o) <= ConnectRadius
}
