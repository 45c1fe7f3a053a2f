// Package wire encodes the binary formats spoken with the point-set manager:
//
//	PointSet:  uint32 count, then count × (float32 x, float32 y)
//	Triangles: PointSet, uint32 count, then count × (uint32 i, j, k)
//
// All values are little-endian.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/triangulator/pkg/domain"
)

// ContentType is the media type of both encodings.
const ContentType = "application/octet-stream"

const (
	headerSize = 4
	pointSize  = 8
	indexSize  = 12
)

var (
	// ErrTruncated is returned when a buffer ends before its declared payload.
	ErrTruncated = errors.New("truncated payload")
	// ErrTrailingData is returned when a buffer continues past its payload.
	ErrTrailingData = errors.New("trailing data")
	// ErrInvalidTriangle is returned when a triangle cannot be encoded.
	ErrInvalidTriangle = errors.New("invalid triangle")
	// ErrTooLarge is returned when a count does not fit the format.
	ErrTooLarge = errors.New("payload too large")
)

// EncodePointSet serializes points. Coordinates are narrowed to float32.
func EncodePointSet(points []domain.Point) ([]byte, error) {
	if uint64(len(points)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d points", ErrTooLarge, len(points))
	}
	buf := make([]byte, 0, headerSize+pointSize*len(points))
	return appendPointSet(buf, points), nil
}

func appendPointSet(buf []byte, points []domain.Point) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(points)))
	for _, p := range points {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.X)))
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(p.Y)))
	}
	return buf
}

// DecodePointSet parses a PointSet payload. Point identifiers follow the
// order of the payload. Bytes past the declared payload are rejected.
func DecodePointSet(data []byte) ([]domain.Point, error) {
	points, rest, err := readPointSet(data)
	if err != nil {
		return nil, err
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d bytes after %d points", ErrTrailingData, len(rest), len(points))
	}
	return points, nil
}

func readPointSet(data []byte) ([]domain.Point, []byte, error) {
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
	}
	count := uint64(binary.LittleEndian.Uint32(data))
	need := headerSize + count*pointSize
	if uint64(len(data)) < need {
		return nil, nil, fmt.Errorf("%w: %d points need %d bytes, got %d", ErrTruncated, count, need, len(data))
	}
	points := make([]domain.Point, count)
	body := data[headerSize:need]
	for i := range points {
		off := i * pointSize
		points[i] = domain.Point{
			ID: i,
			X:  float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off:]))),
			Y:  float64(math.Float32frombits(binary.LittleEndian.Uint32(body[off+4:]))),
		}
	}
	return points, data[need:], nil
}

// EncodeTriangles serializes the point set followed by the triangles, which
// reference point identifiers. Each triangle must name three distinct points
// in range and no triangle may repeat, whatever its rotation or winding.
func EncodeTriangles(points []domain.Point, triangles [][3]int) ([]byte, error) {
	if err := ValidateTriangles(len(points), triangles); err != nil {
		return nil, err
	}
	if uint64(len(points)) > math.MaxUint32 || uint64(len(triangles)) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d points, %d triangles", ErrTooLarge, len(points), len(triangles))
	}
	buf := make([]byte, 0, headerSize+pointSize*len(points)+headerSize+indexSize*len(triangles))
	buf = appendPointSet(buf, points)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(triangles)))
	for _, tri := range triangles {
		for _, v := range tri {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
	}
	return buf, nil
}

// DecodeTriangles parses a Triangles payload and validates the triangles
// against the embedded point set.
func DecodeTriangles(data []byte) ([]domain.Point, [][3]int, error) {
	points, rest, err := readPointSet(data)
	if err != nil {
		return nil, nil, err
	}
	if len(rest) < headerSize {
		return nil, nil, fmt.Errorf("%w: missing triangle count", ErrTruncated)
	}
	count := uint64(binary.LittleEndian.Uint32(rest))
	need := headerSize + count*indexSize
	if uint64(len(rest)) < need {
		return nil, nil, fmt.Errorf("%w: %d triangles need %d bytes, got %d", ErrTruncated, count, need, len(rest))
	}
	if uint64(len(rest)) > need {
		return nil, nil, fmt.Errorf("%w: %d bytes after %d triangles", ErrTrailingData, uint64(len(rest))-need, count)
	}
	triangles := make([][3]int, count)
	body := rest[headerSize:need]
	for i := range triangles {
		for k := range 3 {
			triangles[i][k] = int(binary.LittleEndian.Uint32(body[i*indexSize+4*k:]))
		}
	}
	if err := ValidateTriangles(len(points), triangles); err != nil {
		return nil, nil, err
	}
	return points, triangles, nil
}

// ValidateTriangles checks triangles against a point set of n points.
func ValidateTriangles(n int, triangles [][3]int) error {
	seen := make(map[[3]int]int, len(triangles))
	for i, tri := range triangles {
		for _, v := range tri {
			if v < 0 || v >= n {
				return fmt.Errorf("%w: triangle %d index %d out of range [0, %d)", ErrInvalidTriangle, i, v, n)
			}
		}
		if tri[0] == tri[1] || tri[1] == tri[2] || tri[0] == tri[2] {
			return fmt.Errorf("%w: triangle %d %v repeats a point", ErrInvalidTriangle, i, tri)
		}
		key := sortedKey(tri)
		if j, ok := seen[key]; ok {
			return fmt.Errorf("%w: triangle %d duplicates triangle %d", ErrInvalidTriangle, i, j)
		}
		seen[key] = i
	}
	return nil
}

func sortedKey(t [3]int) [3]int {
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	if t[1] > t[2] {
		t[1], t[2] = t[2], t[1]
	}
	if t[0] > t[1] {
		t[0], t[1] = t[1], t[0]
	}
	return t
}
