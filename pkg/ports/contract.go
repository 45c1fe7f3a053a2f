package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractResult(id string) *domain.Result {
	ps := domain.NewPointSet(id, [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}})
	return &domain.Result{
		PointSet:    ps,
		Triangles:   [][3]int{{3, 0, 1}, {3, 1, 2}},
		Hull:        []int{0, 1, 2, 3},
		VertexCount: 4,
		EdgeCount:   5,
		Dedup: domain.DedupReport{
			Tolerance: 1.5e-10,
			Merges:    []domain.Merge{{Kept: 0, Dropped: []int{4}}},
		},
	}
}

// RunResultCacheContract runs a suite of tests to verify that a ResultCache
// implementation adheres to the defined interface contract.
func RunResultCacheContract(t *testing.T, cache ResultCache) {
	ctx := context.Background()
	id := uuid.NewString()

	t.Run("Put and Get", func(t *testing.T) {
		want := contractResult(id)
		require.NoError(t, cache.Put(ctx, id, want))

		got, err := cache.Get(ctx, id)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, want, got)
	})

	t.Run("Get Missing", func(t *testing.T) {
		_, err := cache.Get(ctx, "missing-"+id)
		assert.ErrorIs(t, err, domain.ErrCacheMiss)
	})

	t.Run("Overwrite", func(t *testing.T) {
		first := contractResult(id)
		second := contractResult(id)
		second.EdgeCount = 42
		require.NoError(t, cache.Put(ctx, id, first))
		require.NoError(t, cache.Put(ctx, id, second))

		got, err := cache.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 42, got.EdgeCount)
	})

	t.Run("Stored Copy Is Isolated", func(t *testing.T) {
		r := contractResult(id)
		require.NoError(t, cache.Put(ctx, id, r))
		r.Triangles[0][0] = 99
		r.Hull[0] = 99

		got, err := cache.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Triangles[0][0])
		assert.Equal(t, 0, got.Hull[0])
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, cache.Put(ctx, id, contractResult(id)))
		require.NoError(t, cache.Delete(ctx, id), "Delete should not return error")

		_, err := cache.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrCacheMiss, "Get after Delete should return ErrCacheMiss")

		assert.NoError(t, cache.Delete(ctx, id), "Deleting twice should not fail")
	})
}

// RunPointSetSourceContract verifies a PointSetSource. seed must make the
// given point set available under id before it returns.
func RunPointSetSourceContract(t *testing.T, source PointSetSource, seed func(id string, ps domain.PointSet)) {
	ctx := context.Background()

	t.Run("Fetch", func(t *testing.T) {
		id := uuid.NewString()
		ps := domain.NewPointSet(id, [][2]float64{{0, 0}, {2.5, 0}, {0, -1.25}})
		seed(id, ps)

		got, err := source.FetchPointSet(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, ps.Points, got.Points)
	})

	t.Run("Fetch Missing", func(t *testing.T) {
		_, err := source.FetchPointSet(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrPointSetNotFound)
	})

	t.Run("Fetch Honors Cancellation", func(t *testing.T) {
		id := uuid.NewString()
		seed(id, domain.NewPointSet(id, [][2]float64{{0, 0}, {1, 0}, {0, 1}}))

		cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
		defer cancel()
		<-cctx.Done()
		_, err := source.FetchPointSet(cctx, id)
		assert.Error(t, err)
	})
}
