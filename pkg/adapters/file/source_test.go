package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/triangulator/pkg/adapters/file"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_Contract(t *testing.T) {
	source := file.New(t.TempDir())
	ports.RunPointSetSourceContract(t, source, func(id string, ps domain.PointSet) {
		require.NoError(t, source.Save(context.Background(), id, ps))
	})
}

func TestFileSource_Malformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken"+file.Extension), []byte{9, 0, 0, 0, 1}, 0o644))

	_, err := file.New(dir).FetchPointSet(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestFileSource_RejectsPathTraversal(t *testing.T) {
	source := file.New(t.TempDir())
	for _, id := range []string{"", "..", "../etc/passwd", "a/b"} {
		_, err := source.FetchPointSet(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrInvalidPointSetID, id)
	}
}

func TestFileSource_SaveOverwriteAndDelete(t *testing.T) {
	ctx := context.Background()
	source := file.New(filepath.Join(t.TempDir(), "nested"))

	require.NoError(t, source.Save(ctx, "s", domain.NewPointSet("s", [][2]float64{{0, 0}, {1, 0}, {0, 1}})))
	require.NoError(t, source.Save(ctx, "s", domain.NewPointSet("s", [][2]float64{{0, 0}, {2, 0}, {0, 2}, {2, 2}})))

	got, err := source.FetchPointSet(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Len())

	require.NoError(t, source.Delete(ctx, "s"))
	require.NoError(t, source.Delete(ctx, "s"))
	_, err = source.FetchPointSet(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrPointSetNotFound)
}
