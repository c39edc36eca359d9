// Package geometry measures oriented 2D rectangles: overlap and minimum separation
// between two vehicle footprints.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	// ErrInvalidRectangle marks a vertex list that is not a usable rectangle
	ErrInvalidRectangle = errors.New("invalid rectangle")
)

// Rectangle is an oriented rectangle given by its 4 ordered corners.
// Either winding is accepted.
type Rectangle [4]r2.Vec

// NewRectangle builds a rectangle from exactly 4 ordered, finite vertices
// enclosing a non-zero area.
func NewRectangle(vertices []r2.Vec) (Rectangle, error) {
	var r Rectangle
	if len(vertices) != 4 {
		return r, fmt.Errorf("%w: expected 4 vertices, got %d", ErrInvalidRectangle, len(vertices))
	}
	for i, v := range vertices {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsInf(v.X, 0) || math.IsInf(v.Y, 0) {
			return r, fmt.Errorf("%w: vertex %d is not finite", ErrInvalidRectangle, i)
		}
		r[i] = v
	}
	if r.Area() == 0 {
		return r, fmt.Errorf("%w: vertices enclose no area", ErrInvalidRectangle)
	}
	return r, nil
}

// Pose is a planar position and heading (radians, counter-clockwise from +x).
type Pose struct {
	X   float64
	Y   float64
	Yaw float64
}

// Extent holds the half-lengths of a bounding box along its local axes.
type Extent struct {
	X float64
	Y float64
}

// Footprint returns the bounding box of a body with the given extent placed at pose.
// Corners are ordered (+x,+y), (-x,+y), (-x,-y), (+x,-y) in the body frame.
func Footprint(pose Pose, extent Extent) Rectangle {
	local := [4]r2.Vec{
		{X: extent.X, Y: extent.Y},
		{X: -extent.X, Y: extent.Y},
		{X: -extent.X, Y: -extent.Y},
		{X: extent.X, Y: -extent.Y},
	}
	center := r2.Vec{X: pose.X, Y: pose.Y}
	var r Rectangle
	for i, c := range local {
		r[i] = r2.Add(r2.Rotate(c, pose.Yaw, r2.Vec{}), center)
	}
	return r
}

// Vertices returns the corners as a slice
func (r Rectangle) Vertices() []r2.Vec {
	return r[:]
}

// Edge returns the i-th edge, wrapping from the last vertex back to the first.
func (r Rectangle) Edge(i int) (r2.Vec, r2.Vec) {
	return r[i%4], r[(i+1)%4]
}

// Area returns the enclosed area
func (r Rectangle) Area() float64 {
	return math.Abs(signedArea(r[:]))
}

// ccw returns the corners in counter-clockwise order.
func (r Rectangle) ccw() []r2.Vec {
	out := make([]r2.Vec, 4)
	copy(out, r[:])
	if signedArea(out) < 0 {
		out[1], out[3] = out[3], out[1]
	}
	return out
}

// signedArea is the shoelace area, positive for counter-clockwise polygons.
// Vertices are taken relative to the first one so large map coordinates do not
// cancel out the area of a small polygon.
func signedArea(poly []r2.Vec) float64 {
	if len(poly) < 3 {
		return 0
	}
	origin := poly[0]
	sum := 0.0
	for i := 1; i < len(poly)-1; i++ {
		sum += r2.Cross(r2.Sub(poly[i], origin), r2.Sub(poly[i+1], origin))
	}
	return sum / 2
}
