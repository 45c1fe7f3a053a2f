package validator

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"github.com/aretw0/triangulator/pkg/domain"
	"golang.org/x/sync/errgroup"
)

// parallelSortThreshold is the input size from which runs are sorted concurrently.
const parallelSortThreshold = 1 << 15

// ComparePoints orders points by x, then y, then identifier.
func ComparePoints(a, b domain.Point) int {
	if c := cmp.Compare(a.X, b.X); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

type span struct{ lo, hi int }

// sortPoints returns a sorted copy of points. Large inputs are split into
// runs sorted on separate goroutines and merged pairwise.
func sortPoints(ctx context.Context, points []domain.Point) ([]domain.Point, error) {
	out := slices.Clone(points)
	workers := runtime.GOMAXPROCS(0)
	if len(out) < parallelSortThreshold || workers < 2 {
		slices.SortFunc(out, ComparePoints)
		return out, nil
	}

	size := (len(out) + workers - 1) / workers
	var runs []span
	for lo := 0; lo < len(out); lo += size {
		runs = append(runs, span{lo, min(lo+size, len(out))})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slices.SortFunc(out[r.lo:r.hi], ComparePoints)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buf := make([]domain.Point, len(out))
	src, dst := out, buf
	for len(runs) > 1 {
		next := make([]span, 0, (len(runs)+1)/2)
		g, gctx := errgroup.WithContext(ctx)
		for i := 0; i < len(runs); i += 2 {
			if i+1 == len(runs) {
				r := runs[i]
				copy(dst[r.lo:r.hi], src[r.lo:r.hi])
				next = append(next, r)
				continue
			}
			a, b := runs[i], runs[i+1]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				merge(dst[a.lo:b.hi], src[a.lo:a.hi], src[b.lo:b.hi])
				return nil
			})
			next = append(next, span{a.lo, b.hi})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		src, dst = dst, src
		runs = next
	}
	return src, nil
}

func merge(dst, a, b []domain.Point) {
	i, j, k := 0, 0, 0
	for i < len(a) && j < len(b) {
		if ComparePoints(b[j], a[i]) < 0 {
			dst[k] = b[j]
			j++
		} else {
			dst[k] = a[i]
			i++
		}
		k++
	}
	k += copy(dst[k:], a[i:])
	copy(dst[k:], b[j:])
}
