// Package mesh is the immutable result of a triangulation: vertices,
// counter-clockwise triangles with their adjacency, derived edges and the
// convex hull.
package mesh

import (
	"slices"

	"github.com/golang/geo/r2"
)

// None marks a missing neighbor across a hull edge.
const None = -1

// Vertex is a point accepted into the mesh.
type Vertex struct {
	// ID is the identifier of the representative input point.
	ID int `json:"id"`
	// Point holds the representative's coordinates.
	Point r2.Point `json:"point"`
	// Sources lists every input identifier merged into this vertex,
	// representative first.
	Sources []int `json:"sources,omitempty"`
}

// Triangle references three vertices in counter-clockwise order.
// N[i] is the triangle across the edge opposite V[i], or None on the hull.
type Triangle struct {
	V [3]int
	N [3]int
}

// Edge is an unordered vertex pair with A < B. Left is the triangle in which
// the edge runs A→B counter-clockwise and Right the one where it runs B→A;
// exactly one of them may be None for a hull edge.
type Edge struct {
	A, B        int
	Left, Right int
}

// IsBoundary reports whether the edge borders a single triangle.
func (e Edge) IsBoundary() bool {
	return e.Left == None || e.Right == None
}

type edgeKey struct{ a, b int }

func keyOf(a, b int) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Triangulation is a read-only planar triangulation.
type Triangulation struct {
	vertices  []Vertex
	triangles []Triangle
	hull      []int
	edges     []Edge
	edgeIndex map[edgeKey]int
	defects   []error
}

// New assembles a Triangulation and derives its edges. The slices are owned
// by the result afterwards. Structural inconsistencies found while deriving
// edges are reported by Check.
func New(vertices []Vertex, triangles []Triangle, hull []int) *Triangulation {
	t := &Triangulation{
		vertices:  vertices,
		triangles: triangles,
		hull:      hull,
		edgeIndex: make(map[edgeKey]int, len(triangles)*3/2+len(hull)),
	}
	t.deriveEdges()
	return t
}

func (t *Triangulation) deriveEdges() {
	t.edges = make([]Edge, 0, len(t.triangles)*3/2+len(t.hull))
	for ti, tri := range t.triangles {
		for i := range 3 {
			a, b := tri.V[(i+1)%3], tri.V[(i+2)%3]
			k := keyOf(a, b)
			idx, ok := t.edgeIndex[k]
			if !ok {
				idx = len(t.edges)
				t.edgeIndex[k] = idx
				t.edges = append(t.edges, Edge{A: k.a, B: k.b, Left: None, Right: None})
			}
			e := &t.edges[idx]
			slot := &e.Left
			if a != e.A {
				slot = &e.Right
			}
			if *slot != None {
				t.defects = append(t.defects, &EdgeMultiplicityError{A: e.A, B: e.B})
				continue
			}
			*slot = ti
		}
	}
}

// NumVertices returns the number of vertices.
func (t *Triangulation) NumVertices() int { return len(t.vertices) }

// NumTriangles returns the number of triangles.
func (t *Triangulation) NumTriangles() int { return len(t.triangles) }

// NumEdges returns the number of distinct edges.
func (t *Triangulation) NumEdges() int { return len(t.edges) }

// Vertex returns vertex v.
func (t *Triangulation) Vertex(v int) Vertex { return t.vertices[v] }

// Vertices returns a copy of all vertices.
func (t *Triangulation) Vertices() []Vertex { return slices.Clone(t.vertices) }

// Triangle returns triangle i.
func (t *Triangulation) Triangle(i int) Triangle { return t.triangles[i] }

// Triangles returns a copy of all triangles.
func (t *Triangulation) Triangles() []Triangle { return slices.Clone(t.triangles) }

// Edges returns a copy of all edges in discovery order.
func (t *Triangulation) Edges() []Edge { return slices.Clone(t.edges) }

// InteriorEdges returns the edges shared by two triangles.
func (t *Triangulation) InteriorEdges() []Edge {
	var out []Edge
	for _, e := range t.edges {
		if !e.IsBoundary() {
			out = append(out, e)
		}
	}
	return out
}

// Hull returns the convex hull as a counter-clockwise cycle of vertex indices
// starting at the lexicographically smallest vertex.
func (t *Triangulation) Hull() []int { return slices.Clone(t.hull) }

// VerticesOf returns the three vertices of triangle i in counter-clockwise order.
func (t *Triangulation) VerticesOf(i int) [3]Vertex {
	tri := t.triangles[i]
	return [3]Vertex{t.vertices[tri.V[0]], t.vertices[tri.V[1]], t.vertices[tri.V[2]]}
}

// Neighbors returns the triangles adjacent to triangle i, None across hull edges.
func (t *Triangulation) Neighbors(i int) [3]int { return t.triangles[i].N }

// Edge looks up the edge between vertices a and b.
func (t *Triangulation) Edge(a, b int) (Edge, bool) {
	idx, ok := t.edgeIndex[keyOf(a, b)]
	if !ok {
		return Edge{}, false
	}
	return t.edges[idx], true
}

// TriangleByEdge returns the triangle in which a→b runs counter-clockwise and
// the triangle on the other side of the edge. Either is None when absent.
func (t *Triangulation) TriangleByEdge(a, b int) (left, right int, ok bool) {
	e, ok := t.Edge(a, b)
	if !ok {
		return None, None, false
	}
	if a == e.A {
		return e.Left, e.Right, true
	}
	return e.Right, e.Left, true
}

// IsBoundaryEdge reports whether a-b is an edge on the convex hull.
func (t *Triangulation) IsBoundaryEdge(a, b int) bool {
	e, ok := t.Edge(a, b)
	return ok && e.IsBoundary()
}

// Points returns the coordinates of every vertex.
func (t *Triangulation) Points() []r2.Point {
	pts := make([]r2.Point, len(t.vertices))
	for i, v := range t.vertices {
		pts[i] = v.Point
	}
	return pts
}
