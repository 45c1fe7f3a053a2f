// Package testutils holds fixtures shared by tests across packages.
package testutils

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/triangulator/pkg/adapters/file"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/stretchr/testify/require"
)

// Square is the unit square in counter-clockwise order.
var Square = [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// RandomCoords returns n coordinates drawn uniformly from the unit square.
// The same seed always yields the same coordinates.
func RandomCoords(n int, seed uint64) [][2]float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	coords := make([][2]float64, n)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64(), rng.Float64()}
	}
	return coords
}

// RandomPointSet returns n points drawn uniformly from the unit square.
func RandomPointSet(id string, n int, seed uint64) domain.PointSet {
	return domain.NewPointSet(id, RandomCoords(n, seed))
}

// SetupPointsDir creates a temporary directory holding the given point sets
// as <id>.bin files and returns its path.
// It fails the test immediately on error.
func SetupPointsDir(t *testing.T, sets ...domain.PointSet) string {
	t.Helper()

	dir := t.TempDir()
	src := file.New(dir)
	for _, ps := range sets {
		require.NoError(t, src.Save(context.Background(), ps.ID, ps), "Failed to save point set %s", ps.ID)
	}
	return dir
}
