package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/triangulator/pkg/domain"
)

// Source implements ports.PointSetSource over an in-memory map.
// Safe for concurrent use.
type Source struct {
	data map[string][]domain.Point
	mu   sync.RWMutex
}

// NewSource creates a source holding the given point sets.
func NewSource(sets ...domain.PointSet) *Source {
	s := &Source{data: make(map[string][]domain.Point, len(sets))}
	for _, ps := range sets {
		s.Put(ps)
	}
	return s
}

// Put stores a copy of the point set under its ID.
func (s *Source) Put(ps domain.PointSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[ps.ID] = slices.Clone(ps.Points)
}

// FetchPointSet returns a copy of the stored point set.
func (s *Source) FetchPointSet(ctx context.Context, id string) (domain.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return domain.PointSet{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	points, ok := s.data[id]
	if !ok {
		return domain.PointSet{}, domain.ErrPointSetNotFound
	}
	return domain.PointSet{ID: id, Points: slices.Clone(points)}, nil
}
