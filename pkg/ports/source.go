package ports

import (
	"context"

	"github.com/aretw0/triangulator/pkg/domain"
)

// PointSetSource fetches point sets from the point-set manager or a stand-in.
type PointSetSource interface {
	// FetchPointSet returns the point set with the given identifier.
	// Returns domain.ErrPointSetNotFound if it does not exist, an error
	// wrapping domain.ErrUpstream when the source fails or answers with a
	// malformed payload, and domain.ErrUpstreamTimeout past its deadline.
	FetchPointSet(ctx context.Context, id string) (domain.PointSet, error)
}
