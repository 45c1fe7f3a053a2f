// Package delaunay computes Delaunay triangulations of validated vertex sets.
//
// Vertices are inserted in a biased randomized order: each vertex is drawn
// into one of a few rounds of doubling size and every round follows a
// Hilbert curve over the bounding box, so consecutive insertions stay close
// and the expected work is O(n log n) whatever the input layout. A vertex is
// located by walking from the last triangle created. The hull is closed by
// ghost triangles that share a vertex at infinity, so a vertex outside the
// hull lands in a ghost and is handled like any other. Lawson flips restore
// the empty circle property around every new vertex. All geometric decisions
// go through the exact predicates in pkg/geom.
package delaunay

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"slices"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/geom"
	"github.com/aretw0/triangulator/pkg/mesh"
	"github.com/golang/geo/r2"
)

// infinite is the index of the vertex at infinity. Ghost triangles always
// hold it in their last slot.
const infinite = -1

const (
	// orderSeed fixes the round assignment, so equal inputs insert in the
	// same order.
	orderSeed = 0x7472696e67756c61

	// hilbertOrder is the number of bits per axis of the curve grid.
	hilbertOrder = 16
)

// Option configures a triangulation run.
type Option func(*config)

type config struct {
	maxFlips func(inserted int) int
}

// WithMaxFlips caps the number of edge flips a single insertion may perform.
func WithMaxFlips(n int) Option {
	return func(c *config) {
		c.maxFlips = func(int) int { return n }
	}
}

func defaultMaxFlips(inserted int) int {
	return 2*inserted + 64
}

// Triangulate builds the Delaunay triangulation of vertices, which must be
// distinct and not all collinear. The vertex order of the result follows
// (x, y); triangles reference positions in that order and are listed with
// their smallest vertex first, sorted.
//
// The context is checked before every insertion. A cancelled run returns the
// context's error and no mesh.
func Triangulate(ctx context.Context, vertices []mesh.Vertex, opts ...Option) (*mesh.Triangulation, error) {
	cfg := config{maxFlips: defaultMaxFlips}
	for _, opt := range opts {
		opt(&cfg)
	}
	if len(vertices) < 3 {
		return nil, &domain.InsufficientPointsError{Count: len(vertices)}
	}

	byPoint := func(a, b mesh.Vertex) int { return geom.Compare(a.Point, b.Point) }
	if !slices.IsSortedFunc(vertices, byPoint) {
		vertices = slices.Clone(vertices)
		slices.SortStableFunc(vertices, byPoint)
	}
	pts := make([]r2.Point, len(vertices))
	for i, v := range vertices {
		pts[i] = v.Point
		if i > 0 && pts[i] == pts[i-1] {
			return nil, fmt.Errorf("%w: vertices %d and %d coincide", domain.ErrDegenerateInput, vertices[i-1].ID, v.ID)
		}
	}

	b := newBuilder(pts)
	rest, err := b.seed(insertionOrder(pts))
	if err != nil {
		return nil, err
	}
	for inserted, v := range rest {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.insert(v, cfg.maxFlips(inserted+3)); err != nil {
			var inst *domain.InstabilityError
			if errors.As(err, &inst) {
				inst.Vertex = vertices[v].ID
			}
			return nil, err
		}
	}

	triangles, hull := b.finish()
	return mesh.New(slices.Clone(vertices), triangles, hull), nil
}

// insertionOrder returns the positions of pts in insertion order. Round r
// receives each vertex with probability 2^-(r+1) and rounds run from the
// rarest to the most common; inside a round vertices follow the Hilbert
// curve. The order depends only on the sorted points.
func insertionOrder(pts []r2.Point) []int {
	n := len(pts)
	rng := rand.New(rand.NewPCG(orderSeed, uint64(n)))
	bounds := geom.Bounds(pts)
	lo, size := bounds.Lo(), bounds.Size()

	round := make([]int, n)
	key := make([]uint64, n)
	order := make([]int, n)
	for i, p := range pts {
		round[i] = bits.LeadingZeros64(rng.Uint64() | 1)
		key[i] = hilbert(gridCoord(p.X, lo.X, size.X), gridCoord(p.Y, lo.Y, size.Y))
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if c := cmp.Compare(round[b], round[a]); c != 0 {
			return c
		}
		if c := cmp.Compare(key[a], key[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return order
}

// gridCoord maps v from [lo, lo+size] onto the curve grid.
func gridCoord(v, lo, size float64) uint32 {
	const top = 1<<hilbertOrder - 1
	if size <= 0 {
		return 0
	}
	g := math.Floor((v - lo) / size * top)
	return uint32(min(max(g, 0), top))
}

// hilbert returns the distance of grid cell (x, y) along the curve.
func hilbert(x, y uint32) uint64 {
	const n = 1 << hilbertOrder
	var d uint64
	for s := uint32(n / 2); s > 0; s /= 2 {
		var rx, ry uint32
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		d += uint64(s) * uint64(s) * uint64((3*rx)^ry)
		if ry == 0 {
			if rx == 1 {
				x, y = n-1-x, n-1-y
			}
			x, y = y, x
		}
	}
	return d
}

// builder is the triangle arena. Triangle t owns slots 3t..3t+2: tv holds
// its vertices in counter-clockwise order and tn[3t+i] the triangle across
// the edge opposite tv[3t+i].
type builder struct {
	pts []r2.Point
	tv  []int
	tn  []int

	// hint is a real triangle near the last insertion, where walks start.
	hint int
	// walk drives the edge order of the point location walk.
	walk uint64

	stack []int
}

func newBuilder(pts []r2.Point) *builder {
	n := len(pts)
	return &builder{
		pts:  pts,
		tv:   make([]int, 0, 6*n),
		tn:   make([]int, 0, 6*n),
		walk: orderSeed,
	}
}

func (b *builder) add(v0, v1, v2 int) int {
	t := len(b.tv) / 3
	b.tv = append(b.tv, v0, v1, v2)
	b.tn = append(b.tn, mesh.None, mesh.None, mesh.None)
	return t
}

// set overwrites triangle t, rotating it so that the vertex at infinity, if
// any, lands in the last slot.
func (b *builder) set(t int, v, n [3]int) {
	for v[0] == infinite || v[1] == infinite {
		v = [3]int{v[1], v[2], v[0]}
		n = [3]int{n[1], n[2], n[0]}
	}
	copy(b.tv[3*t:3*t+3], v[:])
	copy(b.tn[3*t:3*t+3], n[:])
}

func (b *builder) isGhost(t int) bool {
	return b.tv[3*t+2] == infinite
}

// slotOf returns the slot of vertex v in triangle t.
func (b *builder) slotOf(t, v int) int {
	for k := range 3 {
		if b.tv[3*t+k] == v {
			return 3*t + k
		}
	}
	panic(fmt.Sprintf("delaunay: vertex %d is not in triangle %d", v, t))
}

// A ghost (a, b, ∞) stands for the counter-clockwise hull edge b→a.
// next and prev walk the hull counter-clockwise and clockwise.
func (b *builder) next(g int) int { return b.tn[3*g+1] }
func (b *builder) prev(g int) int { return b.tn[3*g] }

// sees reports whether p lies strictly outside the hull edge of ghost g.
func (b *builder) sees(g int, p r2.Point) bool {
	return geom.Orient(b.pts[b.tv[3*g]], b.pts[b.tv[3*g+1]], p) == geom.CounterClockwise
}

// seed builds the first triangle from the leading vertices of order and
// closes it with ghosts. It returns the vertices left to insert.
func (b *builder) seed(order []int) ([]int, error) {
	a, c := order[0], order[1]
	k := 2
	for k < len(order) && geom.Orient(b.pts[a], b.pts[c], b.pts[order[k]]) == geom.Collinear {
		k++
	}
	if k == len(order) {
		dir := b.pts[c].Sub(b.pts[a]).Normalize()
		return nil, &domain.DegenerateInputError{Distinct: len(order), Direction: dir}
	}
	order[2], order[k] = order[k], order[2]
	d := order[2]
	if geom.Orient(b.pts[a], b.pts[c], b.pts[d]) == geom.Clockwise {
		c, d = d, c
	}

	t := b.add(a, c, d)
	ca := b.add(c, a, infinite)
	dc := b.add(d, c, infinite)
	ad := b.add(a, d, infinite)
	b.set(t, [3]int{a, c, d}, [3]int{dc, ad, ca})
	b.set(ca, [3]int{c, a, infinite}, [3]int{ad, dc, t})
	b.set(dc, [3]int{d, c, infinite}, [3]int{ca, ad, t})
	b.set(ad, [3]int{a, d, infinite}, [3]int{dc, ca, t})
	b.hint = t
	return order[3:], nil
}

// locate walks from the hint towards p. It returns the real triangle whose
// closure holds p, with the slot of the edge p lies on or -1, or a ghost
// whose hull edge p sees.
func (b *builder) locate(p int) (int, int, error) {
	pt := b.pts[p]
	limit := len(b.tv)/3 + 3
	t := b.hint
	for steps := 0; ; steps++ {
		if b.isGhost(t) {
			return t, -1, nil
		}
		if steps > limit {
			return 0, 0, &domain.InstabilityError{Vertex: p}
		}
		b.walk ^= b.walk << 13
		b.walk ^= b.walk >> 7
		b.walk ^= b.walk << 17
		off := int(b.walk % 3)

		edge, moved := -1, false
		for e := range 3 {
			k := (off + e) % 3
			u, v := b.tv[3*t+(k+1)%3], b.tv[3*t+(k+2)%3]
			switch geom.Orient(b.pts[u], b.pts[v], pt) {
			case geom.Clockwise:
				t, moved = b.tn[3*t+k], true
			case geom.Collinear:
				edge = k
			}
			if moved {
				break
			}
		}
		if !moved {
			return t, edge, nil
		}
	}
}

// insert adds vertex p to the triangulation.
func (b *builder) insert(p, maxFlips int) error {
	t, edge, err := b.locate(p)
	if err != nil {
		return err
	}
	b.stack = b.stack[:0]
	switch {
	case b.isGhost(t):
		err = b.insertOutside(p, t)
	case edge >= 0:
		b.splitEdge(p, t, edge)
	default:
		b.splitTriangle(p, t)
	}
	if err != nil {
		return err
	}
	return b.legalize(p, maxFlips)
}

// splitTriangle replaces t = (v0, v1, v2) with three triangles around p,
// which lies strictly inside it.
func (b *builder) splitTriangle(p, t int) {
	v0, v1, v2 := b.tv[3*t], b.tv[3*t+1], b.tv[3*t+2]
	n0, n1, n2 := b.tn[3*t], b.tn[3*t+1], b.tn[3*t+2]
	t1 := b.add(p, v2, v0)
	t2 := b.add(p, v0, v1)
	b.set(t, [3]int{p, v1, v2}, [3]int{n0, t1, t2})
	b.set(t1, [3]int{p, v2, v0}, [3]int{n1, t2, t})
	b.set(t2, [3]int{p, v0, v1}, [3]int{n2, t, t1})
	b.relink(n1, t, t1)
	b.relink(n2, t, t2)
	b.stack = append(b.stack, 3*t, 3*t1, 3*t2)
	b.hint = t
}

// splitEdge splits the edge opposite slot k of t, which holds p in its
// interior, together with the triangle across it. That triangle may be a
// ghost when the edge is on the hull.
func (b *builder) splitEdge(p, t, k int) {
	w, a, c := b.tv[3*t+k], b.tv[3*t+(k+1)%3], b.tv[3*t+(k+2)%3]
	tc, ta := b.tn[3*t+(k+1)%3], b.tn[3*t+(k+2)%3]
	o := b.tn[3*t+k]
	j := b.localNeighbor(o, t)
	z := b.tv[3*o+j]
	oa, oc := b.tn[3*o+(j+1)%3], b.tn[3*o+(j+2)%3]

	t2 := b.add(w, p, c)
	o2 := b.add(z, p, a)
	b.set(t, [3]int{w, a, p}, [3]int{o2, t2, ta})
	b.set(t2, [3]int{w, p, c}, [3]int{o, tc, t})
	b.set(o, [3]int{z, c, p}, [3]int{t2, o2, oc})
	b.set(o2, [3]int{z, p, a}, [3]int{t, oa, o})
	b.relink(tc, t, t2)
	b.relink(oa, o, o2)
	for _, x := range [...]int{t, t2, o, o2} {
		b.stack = append(b.stack, b.slotOf(x, p))
	}
	b.hint = t
}

// insertOutside connects p, which lies outside the hull, to every hull edge
// it sees. g is one of those edges.
func (b *builder) insertOutside(p, g int) error {
	pt := b.pts[p]
	limit := len(b.tv) / 3
	first, last := g, g
	for steps := 0; ; steps++ {
		pv := b.prev(first)
		if pv == last || !b.sees(pv, pt) {
			break
		}
		if steps > limit {
			return &domain.InstabilityError{Vertex: p}
		}
		first = pv
	}
	for steps := 0; ; steps++ {
		nx := b.next(last)
		if nx == first || !b.sees(nx, pt) {
			break
		}
		if steps > limit {
			return &domain.InstabilityError{Vertex: p}
		}
		last = nx
	}

	before, after := b.prev(first), b.next(last)
	u0 := b.tv[3*first+1]
	um := b.tv[3*last]

	for g := first; ; g = b.next(g) {
		b.tv[3*g+2] = p
		b.stack = append(b.stack, 3*g+2)
		if g == last {
			break
		}
	}

	left := b.add(p, u0, infinite)
	right := b.add(um, p, infinite)
	b.tn[3*left], b.tn[3*left+1], b.tn[3*left+2] = before, right, first
	b.tn[3*right], b.tn[3*right+1], b.tn[3*right+2] = left, after, last
	b.tn[3*first] = left
	b.tn[3*last+1] = right
	b.tn[3*before+1] = left
	b.tn[3*after] = right
	b.hint = first
	return nil
}

// legalize flips edges opposite p until every triangle around p satisfies
// the empty circle property. Co-circular configurations are left alone.
func (b *builder) legalize(p, maxFlips int) error {
	flips := 0
	for len(b.stack) > 0 {
		s := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]
		t, i := s/3, s%3
		if b.tv[s] != p {
			// t was flipped after s was queued; its replacements are queued too.
			continue
		}
		o := b.tn[s]
		if o == mesh.None || b.isGhost(o) {
			continue
		}
		j := b.localNeighbor(o, t)
		a, c := b.tv[3*t+(i+1)%3], b.tv[3*t+(i+2)%3]
		d := b.tv[3*o+j]
		if geom.InCircle(b.pts[p], b.pts[a], b.pts[c], b.pts[d]) != geom.Inside {
			continue
		}
		if flips++; flips > maxFlips {
			return &domain.InstabilityError{Vertex: p, Flips: maxFlips}
		}
		b.flip(t, i, o, j)
		b.stack = append(b.stack, 3*t, 3*o)
	}
	return nil
}

func (b *builder) localNeighbor(o, t int) int {
	for k := range 3 {
		if b.tn[3*o+k] == t {
			return k
		}
	}
	panic(fmt.Sprintf("delaunay: triangles %d and %d are not adjacent", t, o))
}

// flip replaces triangles t = (p, a, c) and o = (d, c, a), where p sits at
// slot i of t and d at slot j of o, with (p, a, d) and (p, d, c).
func (b *builder) flip(t, i, o, j int) {
	p, a, c := b.tv[3*t+i], b.tv[3*t+(i+1)%3], b.tv[3*t+(i+2)%3]
	d := b.tv[3*o+j]

	nPA := b.tn[3*t+(i+2)%3]
	nCP := b.tn[3*t+(i+1)%3]
	nAD := b.tn[3*o+(j+1)%3]
	nDC := b.tn[3*o+(j+2)%3]

	b.tv[3*t], b.tv[3*t+1], b.tv[3*t+2] = p, a, d
	b.tn[3*t], b.tn[3*t+1], b.tn[3*t+2] = nAD, o, nPA
	b.tv[3*o], b.tv[3*o+1], b.tv[3*o+2] = p, d, c
	b.tn[3*o], b.tn[3*o+1], b.tn[3*o+2] = nDC, nCP, t

	b.relink(nAD, o, t)
	b.relink(nCP, t, o)
}

func (b *builder) relink(x, from, to int) {
	if x == mesh.None {
		return
	}
	for k := range 3 {
		if b.tn[3*x+k] == from {
			b.tn[3*x+k] = to
			return
		}
	}
}

// finish drops the ghosts and returns the real triangles, each rotated to
// lead with its smallest vertex and sorted, plus the hull starting at
// vertex 0, which is always a hull vertex.
func (b *builder) finish() ([]mesh.Triangle, []int) {
	count := len(b.tv) / 3
	triangles := make([]mesh.Triangle, 0, count)
	owner := make([]int, 0, count)
	start := mesh.None
	for t := range count {
		if b.isGhost(t) {
			if b.tv[3*t] == 0 {
				start = t
			}
			continue
		}
		lead := 0
		for k := 1; k < 3; k++ {
			if b.tv[3*t+k] < b.tv[3*t+lead] {
				lead = k
			}
		}
		var tri mesh.Triangle
		for k := range 3 {
			tri.V[k] = b.tv[3*t+(lead+k)%3]
			tri.N[k] = b.tn[3*t+(lead+k)%3]
		}
		triangles = append(triangles, tri)
		owner = append(owner, t)
	}

	order := make([]int, len(triangles))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(x, y int) int {
		return slices.Compare(triangles[x].V[:], triangles[y].V[:])
	})
	index := make([]int, count)
	for t := range index {
		index[t] = mesh.None
	}
	sorted := make([]mesh.Triangle, len(triangles))
	for i, x := range order {
		index[owner[x]] = i
		sorted[i] = triangles[x]
	}
	for i := range sorted {
		for k := range 3 {
			sorted[i].N[k] = index[sorted[i].N[k]]
		}
	}

	var hull []int
	for g := start; ; {
		hull = append(hull, b.tv[3*g])
		g = b.next(g)
		if g == start {
			break
		}
	}
	return sorted, hull
}
