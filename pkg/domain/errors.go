package domain

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r2"
)

// Input errors. They are raised before any geometry runs.
var (
	// ErrInsufficientPoints is returned when fewer than three points are given.
	ErrInsufficientPoints = errors.New("insufficient points")
	// ErrInvalidCoordinate is returned when a coordinate is NaN or infinite.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrDegenerateInput is returned when the distinct points are all collinear.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrInvalidPointSetID is returned for identifiers that are not UUIDs.
	ErrInvalidPointSetID = errors.New("invalid point set id")
)

// Upstream errors, raised while fetching a point set.
var (
	// ErrPointSetNotFound is returned when the point-set manager has no such set.
	ErrPointSetNotFound = errors.New("point set not found")
	// ErrUpstream is returned when the point-set manager is unreachable or
	// answers with something that is not a well-formed point set.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamTimeout is returned when the fetch exceeds its deadline.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// ErrNumericalInstability is returned when the triangulation fails to settle.
var ErrNumericalInstability = errors.New("numerical instability")

// ErrCacheMiss is returned by caches for unknown keys.
var ErrCacheMiss = errors.New("cache miss")

// InsufficientPointsError carries the number of points received.
type InsufficientPointsError struct {
	Count int
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("%s: need at least 3 points, got %d", ErrInsufficientPoints, e.Count)
}

func (e *InsufficientPointsError) Unwrap() error { return ErrInsufficientPoints }

// InvalidCoordinateError identifies the first point with a non-finite coordinate.
type InvalidCoordinateError struct {
	Index int
	X, Y  float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("%s: point %d is (%v, %v)", ErrInvalidCoordinate, e.Index, e.X, e.Y)
}

func (e *InvalidCoordinateError) Unwrap() error { return ErrInvalidCoordinate }

// DegenerateInputError describes an input without a two-dimensional extent.
// Direction is the unit vector of the common line, or zero when fewer than two
// distinct points remain.
type DegenerateInputError struct {
	Distinct  int
	Direction r2.Point
}

func (e *DegenerateInputError) Error() string {
	if e.Distinct < 2 {
		return fmt.Sprintf("%s: only %d distinct point(s)", ErrDegenerateInput, e.Distinct)
	}
	return fmt.Sprintf("%s: %d distinct points are collinear along (%g, %g)",
		ErrDegenerateInput, e.Distinct, e.Direction.X, e.Direction.Y)
}

func (e *DegenerateInputError) Unwrap() error { return ErrDegenerateInput }

// InstabilityError reports the vertex whose insertion did not converge.
type InstabilityError struct {
	Vertex int
	Flips  int
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("%s: inserting vertex %d exceeded %d flips", ErrNumericalInstability, e.Vertex, e.Flips)
}

func (e *InstabilityError) Unwrap() error { return ErrNumericalInstability }
