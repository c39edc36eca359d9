package geometry

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// overlapUlps bounds the rounding error of the clipped area in units of
// machine epsilon times coordinate magnitude times edge length.
const overlapUlps = 64

// IntersectionArea returns the area of the overlap of a and b.
func IntersectionArea(a, b Rectangle) float64 {
	poly := clip(a.ccw(), b.ccw())
	if len(poly) < 3 {
		return 0
	}
	return math.Abs(signedArea(poly))
}

// Collides reports whether a and b overlap with strictly positive area.
// Touching edges or corners do not count, however far from the origin the
// rectangles lie.
func Collides(a, b Rectangle) bool {
	return IntersectionArea(a, b) > overlapTolerance(a, b)
}

// overlapTolerance is the largest area rounding alone can produce when
// clipping a against b. It grows with the distance from the origin and with the
// longest edge.
func overlapTolerance(a, b Rectangle) float64 {
	magnitude, edge := 0.0, 0.0
	for _, r := range [2]Rectangle{a, b} {
		for i, v := range r {
			magnitude = math.Max(magnitude, math.Max(math.Abs(v.X), math.Abs(v.Y)))
			s, e := r.Edge(i)
			edge = math.Max(edge, r2.Norm(r2.Sub(e, s)))
		}
	}
	magnitude = math.Max(magnitude, edge)
	return overlapUlps * epsilon * magnitude * edge
}

// epsilon is the float64 machine epsilon.
const epsilon = 0x1p-52

// Separation returns the minimum distance between a and b, or 0 and true when they collide.
//
// The distance is the smallest of the vertex-to-vertex distances and the
// perpendicular vertex-to-edge distances in both directions. A perpendicular
// candidate only counts when its foot lies on the edge segment.
func Separation(a, b Rectangle) (float64, bool) {
	if Collides(a, b) {
		return 0, true
	}
	d := math.Min(VertexDistance(a, b), EdgeDistance(a, b))
	return math.Min(d, EdgeDistance(b, a)), false
}

// VertexDistance returns the minimum distance over all pairs of corners.
func VertexDistance(a, b Rectangle) float64 {
	best := math.Inf(1)
	for _, p := range a {
		for _, q := range b {
			best = math.Min(best, r2.Norm(r2.Sub(p, q)))
		}
	}
	return best
}

// EdgeDistance returns the minimum perpendicular distance from a corner of a to
// an edge of b, considering only feet that fall within the edge. It is +Inf
// when no corner projects onto any edge.
func EdgeDistance(a, b Rectangle) float64 {
	best := math.Inf(1)
	for _, p := range a {
		for i := range b {
			s, e := b.Edge(i)
			if d, ok := perpendicular(p, s, e); ok {
				best = math.Min(best, d)
			}
		}
	}
	return best
}

// perpendicular returns the distance from p to the line through (s, e) when
// the angles at both endpoints are at most 90 degrees.
func perpendicular(p, s, e r2.Vec) (float64, bool) {
	edge := r2.Sub(e, s)
	length := r2.Norm(edge)
	if length == 0 {
		return 0, false
	}
	if r2.Dot(r2.Sub(p, s), edge) < 0 || r2.Dot(r2.Sub(p, e), r2.Scale(-1, edge)) < 0 {
		return 0, false
	}
	return math.Abs(r2.Cross(edge, r2.Sub(p, s))) / length, true
}

// clip intersects the convex counter-clockwise polygon subject with the convex
// counter-clockwise polygon clipper.
func clip(subject, clipper []r2.Vec) []r2.Vec {
	out := subject
	for i := range clipper {
		if len(out) == 0 {
			return nil
		}
		s, e := clipper[i], clipper[(i+1)%len(clipper)]
		in := out
		out = make([]r2.Vec, 0, len(in)+1)
		for j := range in {
			cur, next := in[j], in[(j+1)%len(in)]
			curInside, nextInside := inside(cur, s, e), inside(next, s, e)
			switch {
			case curInside && nextInside:
				out = append(out, next)
			case curInside && !nextInside:
				out = append(out, intersect(cur, next, s, e))
			case !curInside && nextInside:
				out = append(out, intersect(cur, next, s, e), next)
			}
		}
	}
	return out
}

func inside(p, s, e r2.Vec) bool {
	return r2.Cross(r2.Sub(e, s), r2.Sub(p, s)) >= 0
}

// intersect returns where segment (p, q) crosses the line through (s, e).
func intersect(p, q, s, e r2.Vec) r2.Vec {
	dir := r2.Sub(e, s)
	dp := r2.Cross(dir, r2.Sub(p, s))
	dq := r2.Cross(dir, r2.Sub(q, s))
	t := dp / (dp - dq)
	return r2.Add(p, r2.Scale(t, r2.Sub(q, p)))
}
