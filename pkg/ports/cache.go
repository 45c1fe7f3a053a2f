package ports

import (
	"context"

	"github.com/aretw0/triangulator/pkg/domain"
)

// ResultCache stores triangulation results keyed by point-set identifier.
type ResultCache interface {
	// Get returns the cached result.
	// Returns domain.ErrCacheMiss if nothing is stored under id.
	Get(ctx context.Context, id string) (*domain.Result, error)

	// Put stores the result under id, replacing any previous entry.
	Put(ctx context.Context, id string, result *domain.Result) error

	// Delete removes the entry for id. Deleting a missing entry is not an error.
	Delete(ctx context.Context, id string) error
}
