package geom

import (
	"math"
	"math/big"

	"github.com/golang/geo/r2"
)

// Orientation is the turn direction of an ordered triple of points.
type Orientation int

const (
	Clockwise        Orientation = -1
	Collinear        Orientation = 0
	CounterClockwise Orientation = 1
)

func (o Orientation) String() string {
	switch o {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return "collinear"
	}
}

// CirclePosition locates a point relative to the circumcircle of a triangle.
type CirclePosition int

const (
	Outside  CirclePosition = -1
	OnCircle CirclePosition = 0
	Inside   CirclePosition = 1
)

func (c CirclePosition) String() string {
	switch c {
	case Inside:
		return "inside"
	case Outside:
		return "outside"
	default:
		return "on-circle"
	}
}

const (
	// epsilon is half an ulp of 1.0 in float64 arithmetic.
	epsilon = 0x1p-53

	ccwErrBoundA = (3.0 + 16.0*epsilon) * epsilon
	iccErrBoundA = (10.0 + 96.0*epsilon) * epsilon

	// Below this magnitude intermediate products may be subnormal and the
	// relative error bounds no longer hold.
	underflowGuard = 0x1p-900
)

// Orient reports whether c lies to the left of (CounterClockwise), to the
// right of (Clockwise) or on (Collinear) the directed line through a and b.
//
// The floating point determinant is trusted only when it clears a static
// error bound; otherwise the sign is recomputed in exact rational arithmetic.
// Coordinates must be finite.
func Orient(a, b, c r2.Point) Orientation {
	detLeft := (a.X - c.X) * (b.Y - c.Y)
	detRight := (a.Y - c.Y) * (b.X - c.X)
	det := detLeft - detRight

	detSum := math.Abs(detLeft) + math.Abs(detRight)
	if detSum >= underflowGuard {
		errBound := ccwErrBoundA * detSum
		if det > errBound {
			return CounterClockwise
		}
		if -det > errBound {
			return Clockwise
		}
	}
	return orientExact(a, b, c)
}

// InCircle reports the position of d relative to the circle through a, b
// and c, which must be in counter-clockwise order. For a clockwise triple the
// answer is mirrored. Coordinates must be finite.
func InCircle(a, b, c, d r2.Point) CirclePosition {
	adx, ady := a.X-d.X, a.Y-d.Y
	bdx, bdy := b.X-d.X, b.Y-d.Y
	cdx, cdy := c.X-d.X, c.Y-d.Y

	bdxcdy, cdxbdy := bdx*cdy, cdx*bdy
	alift := adx*adx + ady*ady

	cdxady, adxcdy := cdx*ady, adx*cdy
	blift := bdx*bdx + bdy*bdy

	adxbdy, bdxady := adx*bdy, bdx*ady
	clift := cdx*cdx + cdy*cdy

	det := alift*(bdxcdy-cdxbdy) + blift*(cdxady-adxcdy) + clift*(adxbdy-bdxady)

	permanent := (math.Abs(bdxcdy)+math.Abs(cdxbdy))*alift +
		(math.Abs(cdxady)+math.Abs(adxcdy))*blift +
		(math.Abs(adxbdy)+math.Abs(bdxady))*clift
	if permanent >= underflowGuard {
		errBound := iccErrBoundA * permanent
		if det > errBound {
			return Inside
		}
		if -det > errBound {
			return Outside
		}
	}
	return inCircleExact(a, b, c, d)
}

func orientExact(a, b, c r2.Point) Orientation {
	ax, ay, okA := ratPoint(a)
	bx, by, okB := ratPoint(b)
	cx, cy, okC := ratPoint(c)
	if !okA || !okB || !okC {
		return Collinear
	}

	acx := new(big.Rat).Sub(ax, cx)
	bcy := new(big.Rat).Sub(by, cy)
	acy := new(big.Rat).Sub(ay, cy)
	bcx := new(big.Rat).Sub(bx, cx)

	left := new(big.Rat).Mul(acx, bcy)
	right := new(big.Rat).Mul(acy, bcx)
	return Orientation(left.Cmp(right))
}

func inCircleExact(a, b, c, d r2.Point) CirclePosition {
	ax, ay, okA := ratPoint(a)
	bx, by, okB := ratPoint(b)
	cx, cy, okC := ratPoint(c)
	dx, dy, okD := ratPoint(d)
	if !okA || !okB || !okC || !okD {
		return OnCircle
	}

	adx, ady := new(big.Rat).Sub(ax, dx), new(big.Rat).Sub(ay, dy)
	bdx, bdy := new(big.Rat).Sub(bx, dx), new(big.Rat).Sub(by, dy)
	cdx, cdy := new(big.Rat).Sub(cx, dx), new(big.Rat).Sub(cy, dy)

	alift := lift(adx, ady)
	blift := lift(bdx, bdy)
	clift := lift(cdx, cdy)

	det := new(big.Rat).Mul(alift, cross(bdx, bdy, cdx, cdy))
	det.Add(det, new(big.Rat).Mul(blift, cross(cdx, cdy, adx, ady)))
	det.Add(det, new(big.Rat).Mul(clift, cross(adx, ady, bdx, bdy)))
	return CirclePosition(det.Sign())
}

// cross returns ux*vy - vx*uy.
func cross(ux, uy, vx, vy *big.Rat) *big.Rat {
	l := new(big.Rat).Mul(ux, vy)
	return l.Sub(l, new(big.Rat).Mul(vx, uy))
}

func lift(x, y *big.Rat) *big.Rat {
	l := new(big.Rat).Mul(x, x)
	return l.Add(l, new(big.Rat).Mul(y, y))
}

func ratPoint(p r2.Point) (*big.Rat, *big.Rat, bool) {
	x := new(big.Rat).SetFloat64(p.X)
	y := new(big.Rat).SetFloat64(p.Y)
	return x, y, x != nil && y != nil
}
