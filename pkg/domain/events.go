package domain

import (
	"context"
	"time"
)

// TriangulationEvent describes one completed engine run.
type TriangulationEvent struct {
	PointSetID string
	Points     int
	Vertices   int
	Triangles  int
	Merged     int
	Duration   time.Duration
}

// FetchEvent describes one point-set fetch.
type FetchEvent struct {
	PointSetID string
	Points     int
	Cached     bool
	Duration   time.Duration
	Err        error
}

// FailureEvent describes a request that ended in an error.
type FailureEvent struct {
	PointSetID string
	Code       Code
	Err        error
}

// LifecycleHooks defines callbacks for service observability.
type LifecycleHooks struct {
	OnFetch       func(context.Context, *FetchEvent)
	OnTriangulate func(context.Context, *TriangulationEvent)
	OnFailure     func(context.Context, *FailureEvent)
}
