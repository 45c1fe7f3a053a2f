// Package validator normalizes raw point sets into the vertex sequence the
// triangulation consumes, rejecting inputs that cannot be triangulated.
package validator

import (
	"context"
	"math"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/geom"
	"github.com/aretw0/triangulator/pkg/mesh"
	"github.com/golang/geo/r2"
)

// DefaultRelativeTolerance scales the bounding-box diagonal into the default
// deduplication distance.
const DefaultRelativeTolerance = 1e-10

// cellFloor keeps the dedup grid finite when the tolerance is zero.
const cellFloor = 0x1p-40

// Validator checks and deduplicates point sets.
type Validator struct {
	relative float64
	absolute float64
}

// Option configures a Validator.
type Option func(*Validator)

// WithRelativeTolerance sets the dedup distance as a fraction of the
// bounding-box diagonal.
func WithRelativeTolerance(r float64) Option {
	return func(v *Validator) {
		v.relative = r
	}
}

// WithAbsoluteTolerance sets a fixed dedup distance. A positive value takes
// precedence over the relative tolerance.
func WithAbsoluteTolerance(eps float64) Option {
	return func(v *Validator) {
		v.absolute = eps
	}
}

// New creates a Validator with the default relative tolerance.
func New(opts ...Option) *Validator {
	v := &Validator{relative: DefaultRelativeTolerance}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Result is the outcome of a successful validation.
type Result struct {
	// Vertices are the distinct points sorted by (x, y, id).
	Vertices []mesh.Vertex
	// Dedup records the merged points.
	Dedup domain.DedupReport
	// Bounds is the bounding box of the input.
	Bounds r2.Rect
}

// Tolerance returns the dedup distance used for points spanning bounds.
func (v *Validator) Tolerance(bounds r2.Rect) float64 {
	if v.absolute > 0 {
		return v.absolute
	}
	return math.Max(v.relative, 0) * geom.Diagonal(bounds)
}

// Validate checks the points and returns the deduplicated vertices.
// The input slice is not modified.
func (v *Validator) Validate(ctx context.Context, points []domain.Point) (*Result, error) {
	if len(points) < 3 {
		return nil, &domain.InsufficientPointsError{Count: len(points)}
	}
	for i, p := range points {
		if !geom.IsFinite(p.Vec()) {
			return nil, &domain.InvalidCoordinateError{Index: i, X: p.X, Y: p.Y}
		}
	}

	sorted, err := sortPoints(ctx, points)
	if err != nil {
		return nil, err
	}

	vecs := make([]r2.Point, len(sorted))
	for i, p := range sorted {
		vecs[i] = p.Vec()
	}
	bounds := geom.Bounds(vecs)
	eps := v.Tolerance(bounds)

	vertices, merges := dedup(sorted, bounds, eps)
	res := &Result{
		Vertices: vertices,
		Dedup:    domain.DedupReport{Tolerance: eps, Merges: merges},
		Bounds:   bounds,
	}
	if err := checkDimension(vertices); err != nil {
		return nil, err
	}
	return res, nil
}

// dedup folds points closer than eps into the first point of their group in
// sorted order. Exactly coincident points always fold.
func dedup(sorted []domain.Point, bounds r2.Rect, eps float64) ([]mesh.Vertex, []domain.Merge) {
	cell := math.Max(eps, geom.Diagonal(bounds)*cellFloor)
	if cell == 0 {
		// Every point is the same point.
		cell = 1
	}
	lo := bounds.Lo()

	type cellKey struct{ x, y int64 }
	grid := make(map[cellKey][]int)
	vertices := make([]mesh.Vertex, 0, len(sorted))

	for _, p := range sorted {
		q := p.Vec()
		cx := int64(math.Floor((q.X - lo.X) / cell))
		cy := int64(math.Floor((q.Y - lo.Y) / cell))

		best := -1
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for _, vi := range grid[cellKey{cx + dx, cy + dy}] {
					if best != -1 && vi >= best {
						continue
					}
					d := q.Sub(vertices[vi].Point)
					if (d.X == 0 && d.Y == 0) || d.Norm() < eps {
						best = vi
					}
				}
			}
		}

		if best >= 0 {
			vertices[best].Sources = append(vertices[best].Sources, p.ID)
			continue
		}
		k := cellKey{cx, cy}
		grid[k] = append(grid[k], len(vertices))
		vertices = append(vertices, mesh.Vertex{ID: p.ID, Point: q, Sources: []int{p.ID}})
	}

	var merges []domain.Merge
	for _, vx := range vertices {
		if len(vx.Sources) > 1 {
			merges = append(merges, domain.Merge{Kept: vx.ID, Dropped: append([]int(nil), vx.Sources[1:]...)})
		}
	}
	return vertices, merges
}

// checkDimension rejects vertex sequences without a two-dimensional extent.
// The vertices are sorted, so the first and last span any common line.
func checkDimension(vertices []mesh.Vertex) error {
	if len(vertices) < 2 {
		return &domain.DegenerateInputError{Distinct: len(vertices)}
	}
	a, b := vertices[0].Point, vertices[len(vertices)-1].Point
	dir := b.Sub(a).Normalize()
	if len(vertices) < 3 {
		return &domain.DegenerateInputError{Distinct: len(vertices), Direction: dir}
	}
	for _, v := range vertices[1 : len(vertices)-1] {
		if geom.Orient(a, b, v.Point) != geom.Collinear {
			return nil
		}
	}
	return &domain.DegenerateInputError{Distinct: len(vertices), Direction: dir}
}
