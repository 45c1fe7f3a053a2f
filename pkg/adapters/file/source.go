package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/wire"
)

// Extension is appended to point-set identifiers to form file names.
const Extension = ".bin"

// Source implements ports.PointSetSource over a directory of binary point
// sets named <id>.bin.
type Source struct {
	BasePath string
}

// New creates a new Source rooted at basePath.
// If basePath is empty, it defaults to "pointsets".
func New(basePath string) *Source {
	if basePath == "" {
		basePath = "pointsets"
	}
	return &Source{BasePath: basePath}
}

func (s *Source) path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || id == "." || id == ".." {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPointSetID, id)
	}
	return filepath.Join(s.BasePath, id+Extension), nil
}

// FetchPointSet reads and decodes <BasePath>/<id>.bin.
func (s *Source) FetchPointSet(ctx context.Context, id string) (domain.PointSet, error) {
	if err := ctx.Err(); err != nil {
		return domain.PointSet{}, err
	}
	p, err := s.path(id)
	if err != nil {
		return domain.PointSet{}, err
	}

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.PointSet{}, domain.ErrPointSetNotFound
		}
		return domain.PointSet{}, fmt.Errorf("%w: failed to read point set file: %v", domain.ErrUpstream, err)
	}

	points, err := wire.DecodePointSet(data)
	if err != nil {
		return domain.PointSet{}, fmt.Errorf("%w: point set %s: %v", domain.ErrUpstream, id, err)
	}
	return domain.PointSet{ID: id, Points: points}, nil
}

// Save writes the point set to <BasePath>/<id>.bin atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Source) Save(ctx context.Context, id string, ps domain.PointSet) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	destPath, err := s.path(id)
	if err != nil {
		return err
	}
	data, err := wire.EncodePointSet(ps.Points)
	if err != nil {
		return fmt.Errorf("failed to encode point set: %w", err)
	}

	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure point set directory: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+id+"-*"+Extension)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing point set file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to point set: %w", err)
	}
	return nil
}

// Delete removes the point set file.
func (s *Source) Delete(ctx context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete point set file: %w", err)
	}
	return nil
}
