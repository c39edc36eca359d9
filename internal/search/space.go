package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/GoSim-25-26J-441/scenario-search/pkg/utils"
)

// Parameter is one named, bounded search dimension.
type Parameter struct {
	Name string
	Min  float64
	Max  float64
}

// Width returns Max - Min
func (p Parameter) Width() float64 {
	return p.Max - p.Min
}

// Sample is a point in the search space, one coordinate per parameter.
type Sample []float64

// Clone returns a copy of the sample
func (s Sample) Clone() Sample {
	return Sample(utils.CopyFloat64s(s))
}

func (s Sample) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Space is an immutable axis-aligned box of named parameters.
type Space struct {
	params []Parameter
	index  map[string]int
}

// NewSpace builds a search space from an ordered list of named ranges.
// Every dimension must be finite with Min < Max.
func NewSpace(params ...Parameter) (*Space, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: at least one parameter is required", ErrInvalidSpace)
	}
	s := &Space{
		params: make([]Parameter, len(params)),
		index:  make(map[string]int, len(params)),
	}
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrInvalidSpace, i)
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %s", ErrInvalidSpace, p.Name)
		}
		if !utils.IsFinite(p.Min) || !utils.IsFinite(p.Max) {
			return nil, fmt.Errorf("%w: parameter %s has non-finite bounds [%v, %v]", ErrInvalidSpace, p.Name, p.Min, p.Max)
		}
		if !(p.Min < p.Max) {
			return nil, fmt.Errorf("%w: parameter %s needs min < max, got [%v, %v]", ErrInvalidSpace, p.Name, p.Min, p.Max)
		}
		if !utils.IsFinite(p.Width()) {
			return nil, fmt.Errorf("%w: parameter %s has unrepresentable width", ErrInvalidSpace, p.Name)
		}
		s.params[i] = p
		s.index[p.Name] = i
	}
	return s, nil
}

// NewSpaceFromRanges builds a space from unnamed (min, max) pairs; dimensions are named x0, x1, ...
func NewSpaceFromRanges(ranges [][2]float64) (*Space, error) {
	params := make([]Parameter, len(ranges))
	for i, r := range ranges {
		params[i] = Parameter{Name: fmt.Sprintf("x%d", i), Min: r[0], Max: r[1]}
	}
	return NewSpace(params...)
}

// Dim returns the number of dimensions
func (s *Space) Dim() int {
	return len(s.params)
}

// Parameter returns dimension i
func (s *Space) Parameter(i int) Parameter {
	return s.params[i]
}

// Parameters returns a copy of all dimensions in order
func (s *Space) Parameters() []Parameter {
	out := make([]Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Names returns the parameter names in order
func (s *Space) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.Name
	}
	return names
}

// Index returns the position of the named parameter
func (s *Space) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Validate checks dimension, finiteness and bounds (inclusive) of x.
func (s *Space) Validate(x Sample) error {
	if len(x) != len(s.params) {
		return fmt.Errorf("%w: expected %d coordinates, got %d", ErrInvalidSample, len(s.params), len(x))
	}
	for i, v := range x {
		p := s.params[i]
		if !utils.IsFinite(v) {
			return fmt.Errorf("%w: %s=%v is not finite", ErrInvalidSample, p.Name, v)
		}
		if v < p.Min || v > p.Max {
			return fmt.Errorf("%w: %s=%v outside [%v, %v]", ErrSampleOutOfBounds, p.Name, v, p.Min, p.Max)
		}
	}
	return nil
}

// Contains reports whether x is a valid point of the space
func (s *Space) Contains(x Sample) bool {
	return s.Validate(x) == nil
}

// Normalize maps x into the unit hypercube
func (s *Space) Normalize(x Sample) []float64 {
	u := make([]float64, len(x))
	for i, v := range x {
		p := s.params[i]
		u[i] = (v - p.Min) / p.Width()
	}
	return u
}

// Denormalize maps a unit-hypercube point back into the space. Coordinates are
// clamped to the bounds to absorb rounding at the faces.
func (s *Space) Denormalize(u []float64) Sample {
	x := make(Sample, len(u))
	for i, v := range u {
		p := s.params[i]
		x[i] = utils.ClampFloat64(v*p.Width()+p.Min, p.Min, p.Max)
	}
	return x
}

// Center returns the midpoint of the box
func (s *Space) Center() Sample {
	x := make(Sample, len(s.params))
	for i, p := range s.params {
		x[i] = p.Min + p.Width()/2
	}
	return x
}

// inf is used for unconstrained step bounds
var inf = math.Inf(1)
