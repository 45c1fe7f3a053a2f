package delaunay

import (
	"context"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/aretw0/triangulator/internal/validator"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/geom"
	"github.com/aretw0/triangulator/pkg/mesh"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangulate(t *testing.T, coords [][2]float64, opts ...Option) *mesh.Triangulation {
	t.Helper()
	res, err := validator.New().Validate(context.Background(), domain.NewPointSet("", coords).Points)
	require.NoError(t, err)
	m, err := Triangulate(context.Background(), res.Vertices, opts...)
	require.NoError(t, err)
	return m
}

// bruteForceDelaunay checks the empty circle property against every vertex.
func bruteForceDelaunay(t *testing.T, m *mesh.Triangulation) {
	t.Helper()
	pts := m.Points()
	for i := range m.NumTriangles() {
		tri := m.Triangle(i)
		for v, p := range pts {
			if v == tri.V[0] || v == tri.V[1] || v == tri.V[2] {
				continue
			}
			pos := geom.InCircle(pts[tri.V[0]], pts[tri.V[1]], pts[tri.V[2]], p)
			require.NotEqual(t, geom.Inside, pos, "vertex %d inside triangle %d", v, i)
		}
	}
}

func coordinateTriangles(m *mesh.Triangulation) [][3]r2.Point {
	out := make([][3]r2.Point, m.NumTriangles())
	for i := range out {
		vs := m.VerticesOf(i)
		tri := [3]r2.Point{vs[0].Point, vs[1].Point, vs[2].Point}
		// Rotate so the smallest corner leads; winding is preserved.
		lead := 0
		for k := 1; k < 3; k++ {
			if geom.Compare(tri[k], tri[lead]) < 0 {
				lead = k
			}
		}
		out[i] = [3]r2.Point{tri[lead], tri[(lead+1)%3], tri[(lead+2)%3]}
	}
	slices.SortFunc(out, func(a, b [3]r2.Point) int {
		for k := range 3 {
			if c := geom.Compare(a[k], b[k]); c != 0 {
				return c
			}
		}
		return 0
	})
	return out
}

func randomCoords(seed uint64, n int) [][2]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coords := make([][2]float64, n)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 1000, rng.Float64() * 1000}
	}
	return coords
}

func TestTriangulate_UnitSquare(t *testing.T) {
	m := triangulate(t, [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}})

	require.NoError(t, m.Check())
	assert.Equal(t, 2, m.NumTriangles())
	assert.Equal(t, 5, m.NumEdges())
	assert.Len(t, m.InteriorEdges(), 1)

	var hull []r2.Point
	for _, v := range m.Hull() {
		hull = append(hull, m.Vertex(v).Point)
	}
	assert.Equal(t, []r2.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}, hull)
}

func TestTriangulate_SingleTriangle(t *testing.T) {
	m := triangulate(t, [][2]float64{{0, 0}, {4, 0}, {0, 3}})

	require.NoError(t, m.Check())
	require.Equal(t, 1, m.NumTriangles())
	assert.Equal(t, 3, m.NumEdges())
	assert.Len(t, m.Hull(), 3)
	assert.Equal(t, [3]int{mesh.None, mesh.None, mesh.None}, m.Neighbors(0))
}

func TestTriangulate_FlipsToDelaunay(t *testing.T) {
	m := triangulate(t, [][2]float64{{0, 0}, {1, -1}, {1, 1}, {1.5, 0}})

	require.NoError(t, m.Check())
	assert.Equal(t, 2, m.NumTriangles())
	// After the flip the diagonal joins (0,0) and (1.5,0).
	a, b := -1, -1
	for i, v := range m.Vertices() {
		switch v.Point {
		case r2.Point{X: 0, Y: 0}:
			a = i
		case r2.Point{X: 1.5, Y: 0}:
			b = i
		}
	}
	_, _, ok := m.TriangleByEdge(a, b)
	assert.True(t, ok)
	assert.False(t, m.IsBoundaryEdge(a, b))
}

func TestTriangulate_FlipBudget(t *testing.T) {
	res, err := validator.New().Validate(context.Background(), domain.NewPointSet("", randomCoords(5, 200)).Points)
	require.NoError(t, err)

	_, err = Triangulate(context.Background(), res.Vertices, WithMaxFlips(0))

	require.ErrorIs(t, err, domain.ErrNumericalInstability)
	var inst *domain.InstabilityError
	require.ErrorAs(t, err, &inst)
	assert.GreaterOrEqual(t, inst.Vertex, 0)
	assert.Less(t, inst.Vertex, 200)
	assert.Zero(t, inst.Flips)
}

func TestTriangulate_CollinearSeedRun(t *testing.T) {
	// Five points on the y axis followed by a single point off the line.
	coords := [][2]float64{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}, {3, 2}}
	m := triangulate(t, coords)

	require.NoError(t, m.Check())
	assert.Equal(t, 4, m.NumTriangles())
	assert.Len(t, m.Hull(), 6)
	bruteForceDelaunay(t, m)
}

func TestTriangulate_CollinearHullPoints(t *testing.T) {
	coords := [][2]float64{{0, 0}, {0.5, 0}, {1, 0}, {0, 1}, {1, 1}}
	m := triangulate(t, coords)

	require.NoError(t, m.Check())
	assert.Len(t, m.Hull(), 5)
	bruteForceDelaunay(t, m)
}

func TestTriangulate_Grid(t *testing.T) {
	var coords [][2]float64
	for x := range 10 {
		for y := range 10 {
			coords = append(coords, [2]float64{float64(x), float64(y)})
		}
	}
	m := triangulate(t, coords)

	require.NoError(t, m.Check())
	assert.Equal(t, 162, m.NumTriangles())
	assert.Len(t, m.Hull(), 36)
}

func TestTriangulate_Random(t *testing.T) {
	for seed := range uint64(8) {
		m := triangulate(t, randomCoords(seed, 300))
		require.NoError(t, m.Check(), "seed %d", seed)
	}
	m := triangulate(t, randomCoords(99, 60))
	bruteForceDelaunay(t, m)
}

func TestTriangulate_ModuloLattice(t *testing.T) {
	coords := make([][2]float64, 1000)
	for i := range coords {
		coords[i] = [2]float64{float64(i), float64(i % 100)}
	}
	m := triangulate(t, coords)
	require.NoError(t, m.Check())
}

func twoColumns(n int) [][2]float64 {
	coords := make([][2]float64, n)
	for i := range coords {
		coords[i] = [2]float64{float64(i % 2), float64(i / 2)}
	}
	return coords
}

func TestTriangulate_TwoColumns(t *testing.T) {
	m := triangulate(t, twoColumns(2000))

	require.NoError(t, m.Check())
	// Every vertex is on the hull.
	assert.Len(t, m.Hull(), 2000)
	assert.Equal(t, 1998, m.NumTriangles())
}

func TestTriangulate_TwoColumnsScale(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}
	coords := twoColumns(100_000)
	start := time.Now()
	m := triangulate(t, coords)
	elapsed := time.Since(start)

	require.NoError(t, m.Check())
	assert.Less(t, elapsed, 10*time.Second)
	assert.Equal(t, len(coords)-2, m.NumTriangles())
	t.Logf("triangulated %d points in two columns in %v", len(coords), elapsed)
}

func TestInsertionOrder(t *testing.T) {
	pts := make([]r2.Point, 0, 500)
	for _, c := range randomCoords(8, 500) {
		pts = append(pts, r2.Point{X: c[0], Y: c[1]})
	}
	slices.SortFunc(pts, geom.Compare)

	order := insertionOrder(pts)
	assert.Equal(t, order, insertionOrder(pts))

	seen := slices.Clone(order)
	slices.Sort(seen)
	for i, v := range seen {
		require.Equal(t, i, v)
	}
}

func TestHilbert(t *testing.T) {
	assert.Equal(t, uint64(0), hilbert(0, 0))
	assert.Equal(t, uint64(3), hilbert(0, 1))
	assert.Equal(t, uint64(2), hilbert(1, 1))
	assert.Equal(t, uint64(1), hilbert(1, 0))

	const top = 1<<hilbertOrder - 1
	assert.Equal(t, uint64(1)<<(2*hilbertOrder)-1, hilbert(top, 0))
	assert.Equal(t, uint32(0), gridCoord(5, 5, 0))
	assert.Equal(t, uint32(top), gridCoord(10, 0, 10))
}

func TestTriangulate_DeterministicUnderPermutation(t *testing.T) {
	coords := randomCoords(42, 200)
	// Add co-circular structure so tie-breaking matters.
	for x := range 4 {
		for y := range 4 {
			coords = append(coords, [2]float64{float64(x) * 10, float64(y) * 10})
		}
	}
	base := coordinateTriangles(triangulate(t, coords))

	rng := rand.New(rand.NewPCG(3, 5))
	for range 5 {
		shuffled := slices.Clone(coords)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, base, coordinateTriangles(triangulate(t, shuffled)))
	}
}

func TestTriangulate_RepeatedRunsAreIdentical(t *testing.T) {
	coords := randomCoords(11, 500)
	a := triangulate(t, coords)
	b := triangulate(t, coords)
	assert.Equal(t, a.Triangles(), b.Triangles())
	assert.Equal(t, a.Hull(), b.Hull())
}

func TestTriangulate_RejectsDegenerate(t *testing.T) {
	vs := []mesh.Vertex{
		{ID: 0, Point: r2.Point{X: 0, Y: 0}},
		{ID: 1, Point: r2.Point{X: 1, Y: 1}},
		{ID: 2, Point: r2.Point{X: 2, Y: 2}},
	}
	_, err := Triangulate(context.Background(), vs)
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)

	_, err = Triangulate(context.Background(), vs[:2])
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	dup := append(slices.Clone(vs[:2]), mesh.Vertex{ID: 5, Point: r2.Point{X: 1, Y: 1}})
	_, err = Triangulate(context.Background(), dup)
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)
}

func TestTriangulate_UnsortedInput(t *testing.T) {
	vs := []mesh.Vertex{
		{ID: 0, Point: r2.Point{X: 1, Y: 1}},
		{ID: 1, Point: r2.Point{X: 0, Y: 0}},
		{ID: 2, Point: r2.Point{X: 1, Y: 0}},
		{ID: 3, Point: r2.Point{X: 0, Y: 1}},
	}
	m, err := Triangulate(context.Background(), vs)
	require.NoError(t, err)
	require.NoError(t, m.Check())
	assert.Equal(t, 1, m.Vertex(0).ID)
	assert.Equal(t, r2.Point{X: 1, Y: 1}, vs[0].Point)
}

func TestTriangulate_Canceled(t *testing.T) {
	res, err := validator.New().Validate(context.Background(), domain.NewPointSet("", randomCoords(1, 100)).Points)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := Triangulate(ctx, res.Vertices)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, m)
}

func TestTriangulate_Performance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping performance test in short mode")
	}
	coords := randomCoords(2024, 100_000)
	start := time.Now()
	res, err := validator.New().Validate(context.Background(), domain.NewPointSet("", coords).Points)
	require.NoError(t, err)
	m, err := Triangulate(context.Background(), res.Vertices)
	require.NoError(t, err)
	elapsed := time.Since(start)

	assert.Less(t, elapsed, 10*time.Second)
	assert.Equal(t, 2*m.NumVertices()-len(m.Hull())-2, m.NumTriangles())
	t.Logf("triangulated %d points in %v", len(coords), elapsed)
}

func BenchmarkTriangulate(b *testing.B) {
	res, err := validator.New().Validate(context.Background(), domain.NewPointSet("", randomCoords(7, 10_000)).Points)
	require.NoError(b, err)
	b.ResetTimer()
	for range b.N {
		if _, err := Triangulate(context.Background(), res.Vertices); err != nil {
			b.Fatal(err)
		}
	}
}
