package geometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func unitSquare(x, y float64) Rectangle {
	return Footprint(Pose{X: x, Y: y}, Extent{X: 0.5, Y: 0.5})
}

func TestIdenticalSquaresCollide(t *testing.T) {
	d, colliding := Separation(unitSquare(0, 0), unitSquare(0, 0))
	if !colliding || d != 0 {
		t.Fatalf("expected collision at distance 0, got %v %v", d, colliding)
	}
	if area := IntersectionArea(unitSquare(0, 0), unitSquare(0, 0)); math.Abs(area-1) > 1e-9 {
		t.Fatalf("expected overlap area 1, got %v", area)
	}
}

func TestAlignedSquaresSeparation(t *testing.T) {
	d, colliding := Separation(unitSquare(0, 0), unitSquare(3, 0))
	if colliding {
		t.Fatalf("squares must not collide")
	}
	if math.Abs(d-2) > 1e-9 {
		t.Fatalf("expected distance 2, got %v", d)
	}
}

func TestPartialOverlap(t *testing.T) {
	area := IntersectionArea(unitSquare(0, 0), unitSquare(0.5, 0.5))
	if math.Abs(area-0.25) > 1e-9 {
		t.Fatalf("expected overlap 0.25, got %v", area)
	}
	if _, colliding := Separation(unitSquare(0, 0), unitSquare(0.5, 0.5)); !colliding {
		t.Fatalf("expected collision")
	}
}

func TestTouchingSquaresDoNotCollide(t *testing.T) {
	d, colliding := Separation(unitSquare(0, 0), unitSquare(1, 0))
	if colliding {
		t.Fatalf("touching squares have zero overlap area")
	}
	if d > 1e-9 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}

func TestRotatedSeparation(t *testing.T) {
	a := unitSquare(0, 0)
	b := Footprint(Pose{X: 3, Y: 0, Yaw: math.Pi / 4}, Extent{X: 0.5, Y: 0.5})

	d, colliding := Separation(a, b)
	if colliding {
		t.Fatalf("rectangles must not collide")
	}
	// the diamond's left corner projects onto the square's right edge
	want := 3 - 0.5*math.Sqrt2 - 0.5
	if math.Abs(d-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, d)
	}
	if d >= VertexDistance(a, b) {
		t.Fatalf("edge distance should beat vertex distance here")
	}
}

func TestDiagonalUsesVertexDistance(t *testing.T) {
	a := unitSquare(0, 0)
	b := unitSquare(3, 3)
	if e := EdgeDistance(a, b); !math.IsInf(e, 1) {
		t.Fatalf("no foot falls on an edge, expected +Inf, got %v", e)
	}
	d, _ := Separation(a, b)
	if want := 2 * math.Sqrt2; math.Abs(d-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, d)
	}
}

func TestWindingDoesNotMatter(t *testing.T) {
	cw, err := NewRectangle([]r2.Vec{{X: 0.5, Y: 0.5}, {X: 0.5, Y: -0.5}, {X: -0.5, Y: -0.5}, {X: -0.5, Y: 0.5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !Collides(cw, unitSquare(0.2, 0)) {
		t.Fatalf("expected collision with clockwise rectangle")
	}
	d, _ := Separation(cw, unitSquare(3, 0))
	if math.Abs(d-2) > 1e-9 {
		t.Fatalf("expected 2, got %v", d)
	}
}

func TestFootprintCorners(t *testing.T) {
	r := Footprint(Pose{X: 10, Y: 5, Yaw: math.Pi / 2}, Extent{X: 2, Y: 1})
	want := []r2.Vec{{X: 9, Y: 7}, {X: 9, Y: 3}, {X: 11, Y: 3}, {X: 11, Y: 7}}
	for i, v := range r.Vertices() {
		if math.Abs(v.X-want[i].X) > 1e-9 || math.Abs(v.Y-want[i].Y) > 1e-9 {
			t.Fatalf("corner %d: expected %v, got %v", i, want[i], v)
		}
	}
	if math.Abs(r.Area()-8) > 1e-9 {
		t.Fatalf("expected area 8, got %v", r.Area())
	}
}

func TestNewRectangleValidation(t *testing.T) {
	if _, err := NewRectangle([]r2.Vec{{X: 0, Y: 0}}); !errors.Is(err, ErrInvalidRectangle) {
		t.Fatalf("expected ErrInvalidRectangle, got %v", err)
	}
	if _, err := NewRectangle([]r2.Vec{{}, {}, {}, {}}); !errors.Is(err, ErrInvalidRectangle) {
		t.Fatalf("expected ErrInvalidRectangle for degenerate rectangle, got %v", err)
	}
	if _, err := NewRectangle([]r2.Vec{{X: math.NaN()}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}); !errors.Is(err, ErrInvalidRectangle) {
		t.Fatalf("expected ErrInvalidRectangle for NaN, got %v", err)
	}
}

func TestTinyOverlapCollides(t *testing.T) {
	a := unitSquare(0, 0)
	b := unitSquare(1-1e-7, 1-1e-6)

	if area := IntersectionArea(a, b); math.Abs(area-1e-13) > 1e-16 {
		t.Fatalf("expected overlap area 1e-13, got %v", area)
	}
	d, colliding := Separation(a, b)
	if !colliding || d != 0 {
		t.Fatalf("a real overlap must collide, got distance %v colliding %v", d, colliding)
	}
}

func TestTouchingVehiclesFarFromOrigin(t *testing.T) {
	extent := Extent{X: 2.4, Y: 1.1}
	const steps = 2000
	for i := 0; i < steps; i++ {
		yaw := 2 * math.Pi * float64(i) / steps
		pose := Pose{X: 3000 + float64(i), Y: -4000 + 0.5*float64(i), Yaw: yaw}
		offset := r2.Rotate(r2.Vec{Y: 2 * extent.Y}, yaw, r2.Vec{})

		a := Footprint(pose, extent)
		side := Footprint(Pose{X: pose.X + offset.X, Y: pose.Y + offset.Y, Yaw: yaw}, extent)
		if Collides(a, side) {
			t.Fatalf("step %d: side-by-side vehicles at (%v, %v) yaw %v reported colliding, area %v",
				i, pose.X, pose.Y, yaw, IntersectionArea(a, side))
		}

		// a millimetre of real overlap is still a collision
		closer := r2.Rotate(r2.Vec{Y: 2*extent.Y - 1e-3}, yaw, r2.Vec{})
		overlapping := Footprint(Pose{X: pose.X + closer.X, Y: pose.Y + closer.Y, Yaw: yaw}, extent)
		if !Collides(a, overlapping) {
			t.Fatalf("step %d: overlapping vehicles at (%v, %v) yaw %v not reported colliding",
				i, pose.X, pose.Y, yaw)
		}
	}
}
