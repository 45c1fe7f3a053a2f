package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
)

func TestOrient(t *testing.T) {
	a, b := r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 0}

	assert.Equal(t, CounterClockwise, Orient(a, b, r2.Point{X: 0.5, Y: 1}))
	assert.Equal(t, Clockwise, Orient(a, b, r2.Point{X: 0.5, Y: -1}))
	assert.Equal(t, Collinear, Orient(a, b, r2.Point{X: 2, Y: 0}))
	assert.Equal(t, Collinear, Orient(a, a, b))
}

func TestOrient_NearlyCollinear(t *testing.T) {
	// Points on y = x nudged by one ulp; the naive determinant is dominated by
	// rounding error at this scale.
	a := r2.Point{X: 0.5, Y: 0.5}
	b := r2.Point{X: 12, Y: 12}
	c := r2.Point{X: 24, Y: 24}
	assert.Equal(t, Collinear, Orient(a, b, c))

	up := r2.Point{X: 24, Y: math.Nextafter(24, 25)}
	down := r2.Point{X: 24, Y: math.Nextafter(24, 23)}
	assert.Equal(t, CounterClockwise, Orient(a, b, up))
	assert.Equal(t, Clockwise, Orient(a, b, down))
}

func TestOrient_GridAroundLine(t *testing.T) {
	// Walk a 64x64 grid of ulp perturbations around the point (0.5, 0.5) on the
	// line through (12, 12) and (24, 24). The exact answer follows from the
	// sign of dy - dx because every perturbation is one ulp step.
	b := r2.Point{X: 12, Y: 12}
	c := r2.Point{X: 24, Y: 24}
	ulp := math.Nextafter(0.5, 1) - 0.5
	for i := 0; i < 64; i++ {
		for j := 0; j < 64; j++ {
			a := r2.Point{X: 0.5 + float64(i)*ulp, Y: 0.5 + float64(j)*ulp}
			got := Orient(a, b, c)
			switch {
			case j > i:
				assert.Equal(t, CounterClockwise, got, "i=%d j=%d", i, j)
			case j < i:
				assert.Equal(t, Clockwise, got, "i=%d j=%d", i, j)
			default:
				assert.Equal(t, Collinear, got, "i=%d j=%d", i, j)
			}
		}
	}
}

func TestOrient_TinyAndHugeCoordinates(t *testing.T) {
	tiny := r2.Point{X: 1e-300, Y: 1e-300}
	assert.Equal(t, CounterClockwise, Orient(r2.Point{}, r2.Point{X: 1e-300}, tiny))

	huge := 1e300
	assert.Equal(t, Clockwise, Orient(r2.Point{X: -huge}, r2.Point{X: huge}, r2.Point{Y: -huge}))
}

func TestInCircle(t *testing.T) {
	a := r2.Point{X: 0, Y: 0}
	b := r2.Point{X: 1, Y: 0}
	c := r2.Point{X: 0, Y: 1}

	assert.Equal(t, Inside, InCircle(a, b, c, r2.Point{X: 0.5, Y: 0.5}))
	assert.Equal(t, Outside, InCircle(a, b, c, r2.Point{X: 2, Y: 2}))
	assert.Equal(t, OnCircle, InCircle(a, b, c, r2.Point{X: 1, Y: 1}))
}

func TestInCircle_NearlyCocircular(t *testing.T) {
	a := r2.Point{X: 0, Y: 0}
	b := r2.Point{X: 1, Y: 0}
	c := r2.Point{X: 1, Y: 1}

	assert.Equal(t, OnCircle, InCircle(a, b, c, r2.Point{X: 0, Y: 1}))
	assert.Equal(t, Inside, InCircle(a, b, c, r2.Point{X: math.Nextafter(0, 1), Y: 1}))
	assert.Equal(t, Outside, InCircle(a, b, c, r2.Point{X: math.Nextafter(0, -1), Y: 1}))
}

func TestInCircle_LargeOffset(t *testing.T) {
	// The unit square shifted far from the origin is still exactly co-circular.
	off := 1e9
	a := r2.Point{X: off, Y: off}
	b := r2.Point{X: off + 1, Y: off}
	c := r2.Point{X: off + 1, Y: off + 1}
	d := r2.Point{X: off, Y: off + 1}
	assert.Equal(t, OnCircle, InCircle(a, b, c, d))
}

func TestInCircle_ClockwiseIsMirrored(t *testing.T) {
	a := r2.Point{X: 0, Y: 0}
	b := r2.Point{X: 0, Y: 1}
	c := r2.Point{X: 1, Y: 0}
	assert.Equal(t, Outside, InCircle(a, b, c, r2.Point{X: 0.25, Y: 0.25}))
}

func TestCompare(t *testing.T) {
	assert.Negative(t, Compare(r2.Point{X: 0, Y: 5}, r2.Point{X: 1, Y: 0}))
	assert.Negative(t, Compare(r2.Point{X: 1, Y: 0}, r2.Point{X: 1, Y: 1}))
	assert.Zero(t, Compare(r2.Point{X: 1, Y: 1}, r2.Point{X: 1, Y: 1}))
	assert.Positive(t, Compare(r2.Point{X: 2, Y: 0}, r2.Point{X: 1, Y: 9}))
}

func TestDiagonal(t *testing.T) {
	r := Bounds([]r2.Point{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 1, Y: 1}})
	assert.InDelta(t, 5.0, Diagonal(r), 1e-12)
	assert.Zero(t, Diagonal(r2.EmptyRect()))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(r2.Point{X: 1, Y: -1}))
	assert.False(t, IsFinite(r2.Point{X: math.NaN()}))
	assert.False(t, IsFinite(r2.Point{Y: math.Inf(-1)}))
}
