// Package geom holds the robust planar predicates and the small amount of
// coordinate geometry shared by the validator and the triangulation.
package geom

import (
	"cmp"
	"math"

	"github.com/golang/geo/r2"
)

// Compare orders points lexicographically by x, then y.
func Compare(a, b r2.Point) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	return cmp.Compare(a.Y, b.Y)
}

// IsFinite reports whether both coordinates are neither NaN nor infinite.
func IsFinite(p r2.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Bounds returns the smallest rectangle containing every point.
func Bounds(points []r2.Point) r2.Rect {
	return r2.RectFromPoints(points...)
}

// Diagonal is the length of the rectangle's diagonal, or zero when it is empty.
func Diagonal(r r2.Rect) float64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Size().Norm()
}
