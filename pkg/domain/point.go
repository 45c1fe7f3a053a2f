package domain

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
)

// Point is an input coordinate pair. ID is its index in the source point set.
type Point struct {
	ID int     `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Vec returns the point as a planar vector.
func (p Point) Vec() r2.Point {
	return r2.Point{X: p.X, Y: p.Y}
}

// PointSet is an ordered collection of points as received from a source.
type PointSet struct {
	ID     string  `json:"id,omitempty"`
	Points []Point `json:"points"`
}

// NewPointSet assigns identifiers to raw coordinates in input order.
func NewPointSet(id string, coords [][2]float64) PointSet {
	points := make([]Point, len(coords))
	for i, c := range coords {
		points[i] = Point{ID: i, X: c[0], Y: c[1]}
	}
	return PointSet{ID: id, Points: points}
}

// Coordinates returns the raw coordinates in input order.
func (ps PointSet) Coordinates() [][2]float64 {
	coords := make([][2]float64, len(ps.Points))
	for i, p := range ps.Points {
		coords[i] = [2]float64{p.X, p.Y}
	}
	return coords
}

// Len returns the number of points.
func (ps PointSet) Len() int {
	return len(ps.Points)
}

// ParsePointSetID validates a point-set identifier and returns its canonical
// lowercase form.
func ParsePointSetID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPointSetID, raw)
	}
	return id.String(), nil
}

// Merge records a group of input points folded into a single vertex.
type Merge struct {
	Kept    int   `json:"kept"`
	Dropped []int `json:"dropped"`
}

// DedupReport summarizes the deduplication pass of one validation.
type DedupReport struct {
	Tolerance float64 `json:"tolerance"`
	Merges    []Merge `json:"merges,omitempty"`
}

// Count returns the number of input points that were dropped.
func (r DedupReport) Count() int {
	n := 0
	for _, m := range r.Merges {
		n += len(m.Dropped)
	}
	return n
}

// Result is the serializable outcome of triangulating a point set. Triangle
// and hull entries are point identifiers of the source set.
type Result struct {
	PointSet    PointSet    `json:"pointSet"`
	Triangles   [][3]int    `json:"triangles"`
	Hull        []int       `json:"hull"`
	VertexCount int         `json:"vertexCount"`
	EdgeCount   int         `json:"edgeCount"`
	Dedup       DedupReport `json:"dedup"`
}
