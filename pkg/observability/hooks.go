package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/triangulator/pkg/domain"
)

// LoggingHooks returns hooks that log every lifecycle event on logger.
// Fetches and completed triangulations are logged at Debug, failures at
// Info for input errors and Warn otherwise.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFetch: func(ctx context.Context, e *domain.FetchEvent) {
			logger.DebugContext(ctx, "point set fetched",
				"point_set_id", e.PointSetID,
				"points", e.Points,
				"cached", e.Cached,
				"duration", e.Duration,
				"error", e.Err,
			)
		},
		OnTriangulate: func(ctx context.Context, e *domain.TriangulationEvent) {
			logger.DebugContext(ctx, "triangulation completed",
				"point_set_id", e.PointSetID,
				"points", e.Points,
				"vertices", e.Vertices,
				"triangles", e.Triangles,
				"merged", e.Merged,
				"duration", e.Duration,
			)
		},
		OnFailure: func(ctx context.Context, e *domain.FailureEvent) {
			level := slog.LevelWarn
			if domain.IsInputError(e.Err) || e.Code == domain.CodeNotFound {
				level = slog.LevelInfo
			}
			logger.Log(ctx, level, "triangulation failed",
				"point_set_id", e.PointSetID,
				"code", e.Code,
				"error", e.Err,
			)
		},
	}
}

// Combine returns hooks that call each of hooks in order. Nil callbacks are
// skipped.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var (
		fetches     []func(context.Context, *domain.FetchEvent)
		triangulate []func(context.Context, *domain.TriangulationEvent)
		failures    []func(context.Context, *domain.FailureEvent)
	)
	for _, h := range hooks {
		if h.OnFetch != nil {
			fetches = append(fetches, h.OnFetch)
		}
		if h.OnTriangulate != nil {
			triangulate = append(triangulate, h.OnTriangulate)
		}
		if h.OnFailure != nil {
			failures = append(failures, h.OnFailure)
		}
	}

	var combined domain.LifecycleHooks
	if len(fetches) > 0 {
		combined.OnFetch = func(ctx context.Context, e *domain.FetchEvent) {
			for _, fn := range fetches {
				fn(ctx, e)
			}
		}
	}
	if len(triangulate) > 0 {
		combined.OnTriangulate = func(ctx context.Context, e *domain.TriangulationEvent) {
			for _, fn := range triangulate {
				fn(ctx, e)
			}
		}
	}
	if len(failures) > 0 {
		combined.OnFailure = func(ctx context.Context, e *domain.FailureEvent) {
			for _, fn := range failures {
				fn(ctx, e)
			}
		}
	}
	return combined
}
