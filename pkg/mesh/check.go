package mesh

import (
	"errors"
	"fmt"

	"github.com/aretw0/triangulator/pkg/geom"
)

// ErrInvariant is wrapped by every violation reported by Check.
var ErrInvariant = errors.New("mesh invariant violated")

// EdgeMultiplicityError reports an edge claimed by more than two triangles,
// or twice in the same direction.
type EdgeMultiplicityError struct {
	A, B int
}

func (e *EdgeMultiplicityError) Error() string {
	return fmt.Sprintf("%s: edge %d-%d is shared by too many triangles", ErrInvariant, e.A, e.B)
}

func (e *EdgeMultiplicityError) Unwrap() error { return ErrInvariant }

// ViolationError describes any other broken invariant.
type ViolationError struct {
	Invariant string
	Detail    string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvariant, e.Invariant, e.Detail)
}

func (e *ViolationError) Unwrap() error { return ErrInvariant }

func violation(invariant, format string, args ...any) error {
	return &ViolationError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}

// Check verifies the structural and Delaunay invariants of the mesh and
// returns the first violation found.
func (t *Triangulation) Check() error {
	if len(t.defects) > 0 {
		return t.defects[0]
	}
	pts := t.Points()

	for i, tri := range t.triangles {
		for _, v := range tri.V {
			if v < 0 || v >= len(pts) {
				return violation("vertex range", "triangle %d references vertex %d", i, v)
			}
		}
		if geom.Orient(pts[tri.V[0]], pts[tri.V[1]], pts[tri.V[2]]) != geom.CounterClockwise {
			return violation("positive area", "triangle %d %v is not counter-clockwise", i, tri.V)
		}
		for j := range 3 {
			left, right, _ := t.TriangleByEdge(tri.V[(j+1)%3], tri.V[(j+2)%3])
			other := right
			if left != i {
				other = left
			}
			if tri.N[j] != other {
				return violation("adjacency", "triangle %d neighbor %d is %d, edge says %d", i, j, tri.N[j], other)
			}
		}
	}

	if err := t.checkHull(); err != nil {
		return err
	}

	used := make([]bool, len(t.vertices))
	for _, tri := range t.triangles {
		for _, v := range tri.V {
			used[v] = true
		}
	}
	for v, ok := range used {
		if !ok {
			return violation("coverage", "vertex %d belongs to no triangle", v)
		}
	}

	if v, e, f := len(t.vertices), len(t.edges), len(t.triangles); v-e+f != 1 {
		return violation("euler", "V - E + F = %d - %d + %d != 1", v, e, f)
	}

	for _, e := range t.edges {
		if e.IsBoundary() {
			continue
		}
		tri := t.triangles[e.Left]
		opposite := t.triangles[e.Right]
		d := None
		for _, v := range opposite.V {
			if v != e.A && v != e.B {
				d = v
			}
		}
		if geom.InCircle(pts[tri.V[0]], pts[tri.V[1]], pts[tri.V[2]], pts[d]) == geom.Inside {
			return violation("empty circle", "vertex %d lies inside the circumcircle of triangle %d", d, e.Left)
		}
	}
	return nil
}

func (t *Triangulation) checkHull() error {
	n := len(t.hull)
	if n < 3 {
		return violation("hull", "hull has %d vertices", n)
	}
	pts := t.Points()
	boundary := 0
	for _, e := range t.edges {
		if e.IsBoundary() {
			boundary++
		}
	}
	if boundary != n {
		return violation("hull", "%d boundary edges but %d hull vertices", boundary, n)
	}
	for i := range n {
		prev, cur, next := t.hull[(i+n-1)%n], t.hull[i], t.hull[(i+1)%n]
		left, right, ok := t.TriangleByEdge(cur, next)
		if !ok || left == None || right != None {
			return violation("hull", "%d→%d is not a counter-clockwise boundary edge", cur, next)
		}
		if geom.Orient(pts[prev], pts[cur], pts[next]) == geom.Clockwise {
			return violation("hull", "reflex turn at vertex %d", cur)
		}
	}
	return nil
}
