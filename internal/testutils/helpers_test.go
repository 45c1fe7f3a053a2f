package testutils

import (
	"context"
	"testing"

	"github.com/aretw0/triangulator/pkg/adapters/file"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomPointSet_Deterministic(t *testing.T) {
	a := RandomPointSet("a", 50, 7)
	b := RandomPointSet("a", 50, 7)
	c := RandomPointSet("a", 50, 8)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	for _, p := range a.Points {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.Y, 1.0)
	}
}

func TestSetupPointsDir(t *testing.T) {
	const id = "1e2d3c4b-5a69-4788-97a6-b5c4d3e2f1a0"
	dir := SetupPointsDir(t, domain.NewPointSet(id, Square))

	ps, err := file.New(dir).FetchPointSet(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Square, ps.Coordinates())
}
