package triangulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/triangulator/internal/delaunay"
	"github.com/aretw0/triangulator/internal/logging"
	"github.com/aretw0/triangulator/internal/validator"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/mesh"
	"github.com/aretw0/triangulator/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// DefaultLockTTL bounds how long a replica may hold the compute lock of a
// point set.
const DefaultLockTTL = 30 * time.Second

// ErrNoSource is returned by TriangulatePointSet when the service was built
// without a point-set source.
var ErrNoSource = errors.New("no point-set source configured")

// Service is the high-level entry point: it fetches point sets, runs the
// engine and classifies failures. A Service is safe for concurrent use.
type Service struct {
	source        ports.PointSetSource
	cache         ports.ResultCache
	locker        ports.DistributedLocker
	lockTTL       time.Duration
	validatorOpts []validator.Option
	delaunayOpts  []delaunay.Option
	selfCheck     bool
	hooks         domain.LifecycleHooks
	logger        *slog.Logger

	fetches singleflight.Group
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithSource sets where TriangulatePointSet fetches point sets from.
func WithSource(src ports.PointSetSource) Option {
	return func(s *Service) {
		s.source = src
	}
}

// WithCache enables result caching keyed by point-set id.
func WithCache(c ports.ResultCache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithLocker makes replicas sharing a cache compute each point set once.
// It has no effect without WithCache.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(s *Service) {
		s.locker = l
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

// WithTolerance sets the scale-relative deduplication tolerance.
func WithTolerance(relative float64) Option {
	return func(s *Service) {
		s.validatorOpts = append(s.validatorOpts, validator.WithRelativeTolerance(relative))
	}
}

// WithAbsoluteTolerance sets a fixed deduplication distance, overriding the
// relative tolerance.
func WithAbsoluteTolerance(eps float64) Option {
	return func(s *Service) {
		s.validatorOpts = append(s.validatorOpts, validator.WithAbsoluteTolerance(eps))
	}
}

// WithMaxFlips caps the edge flips of a single vertex insertion.
func WithMaxFlips(n int) Option {
	return func(s *Service) {
		s.delaunayOpts = append(s.delaunayOpts, delaunay.WithMaxFlips(n))
	}
}

// WithSelfCheck verifies every mesh before returning it. A mesh that fails
// its invariants is reported as a numerical instability.
func WithSelfCheck(enabled bool) Option {
	return func(s *Service) {
		s.selfCheck = enabled
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service. Without options it can triangulate point sets
// passed in directly but cannot fetch any.
func New(opts ...Option) *Service {
	s := &Service{lockTTL: DefaultLockTTL}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// Triangulation is the outcome of one engine run.
type Triangulation struct {
	PointSet domain.PointSet
	Mesh     *mesh.Triangulation
	Dedup    domain.DedupReport
}

// Result flattens the mesh into its serializable form, with vertex
// references replaced by point identifiers.
func (t *Triangulation) Result() *domain.Result {
	ids := make([]int, t.Mesh.NumVertices())
	for i := range ids {
		ids[i] = t.Mesh.Vertex(i).ID
	}
	triangles := make([][3]int, t.Mesh.NumTriangles())
	for i := range triangles {
		v := t.Mesh.Triangle(i).V
		triangles[i] = [3]int{ids[v[0]], ids[v[1]], ids[v[2]]}
	}
	hull := t.Mesh.Hull()
	for i, v := range hull {
		hull[i] = ids[v]
	}
	return &domain.Result{
		PointSet:    t.PointSet,
		Triangles:   triangles,
		Hull:        hull,
		VertexCount: t.Mesh.NumVertices(),
		EdgeCount:   t.Mesh.NumEdges(),
		Dedup:       t.Dedup,
	}
}

// Triangulate validates ps and computes its Delaunay triangulation.
func (s *Service) Triangulate(ctx context.Context, ps domain.PointSet) (*Triangulation, error) {
	tri, err := s.run(ctx, ps)
	if err != nil {
		s.fail(ctx, ps.ID, err)
		return nil, err
	}
	return tri, nil
}

func (s *Service) run(ctx context.Context, ps domain.PointSet) (*Triangulation, error) {
	start := time.Now()
	tri, err := s.triangulate(ctx, ps)
	if err != nil {
		return nil, err
	}
	if s.hooks.OnTriangulate != nil {
		s.hooks.OnTriangulate(ctx, &domain.TriangulationEvent{
			PointSetID: ps.ID,
			Points:     ps.Len(),
			Vertices:   tri.Mesh.NumVertices(),
			Triangles:  tri.Mesh.NumTriangles(),
			Merged:     tri.Dedup.Count(),
			Duration:   time.Since(start),
		})
	}
	s.logger.Debug("triangulated point set",
		"point_set_id", ps.ID,
		"points", ps.Len(),
		"triangles", tri.Mesh.NumTriangles(),
		"merged", tri.Dedup.Count(),
		"duration", time.Since(start))
	return tri, nil
}

func (s *Service) triangulate(ctx context.Context, ps domain.PointSet) (*Triangulation, error) {
	valid, err := validator.New(s.validatorOpts...).Validate(ctx, ps.Points)
	if err != nil {
		return nil, err
	}

	m, err := delaunay.Triangulate(ctx, valid.Vertices, s.delaunayOpts...)
	if err == nil && s.selfCheck {
		if cerr := m.Check(); cerr != nil {
			err = fmt.Errorf("%w: %v", domain.ErrNumericalInstability, cerr)
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrNumericalInstability) {
			attrs := []any{
				"point_set_id", ps.ID,
				"points", ps.Len(),
				"vertices", len(valid.Vertices),
				"bbox_lo", valid.Bounds.Lo(),
				"bbox_hi", valid.Bounds.Hi(),
				"tolerance", valid.Dedup.Tolerance,
				"error", err,
			}
			var inst *domain.InstabilityError
			if errors.As(err, &inst) {
				attrs = append(attrs, "vertex", inst.Vertex, "flips", inst.Flips)
			}
			s.logger.Error("triangulation failed", attrs...)
		}
		return nil, err
	}
	return &Triangulation{PointSet: ps, Mesh: m, Dedup: valid.Dedup}, nil
}

// TriangulatePointSet fetches the point set named by id from the configured
// source and triangulates it. Cached results are returned without fetching.
// Concurrent calls for the same id share one fetch.
func (s *Service) TriangulatePointSet(ctx context.Context, id string) (*domain.Result, error) {
	res, err := s.triangulatePointSet(ctx, id)
	if err != nil {
		s.fail(ctx, id, err)
		return nil, err
	}
	return res, nil
}

func (s *Service) triangulatePointSet(ctx context.Context, raw string) (*domain.Result, error) {
	id, err := domain.ParsePointSetID(raw)
	if err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, ErrNoSource)
	}

	if res, ok := s.cached(ctx, id); ok {
		return res, nil
	}

	if s.cache != nil && s.locker != nil {
		unlock, err := s.locker.Lock(ctx, id, s.lockTTL)
		switch {
		case err == nil:
			defer func() {
				if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
					s.logger.Warn("failed to release compute lock", "point_set_id", id, "error", uerr)
				}
			}()
			// Another replica may have finished while we waited.
			if res, ok := s.cached(ctx, id); ok {
				return res, nil
			}
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			s.logger.Warn("compute lock unavailable, continuing unlocked", "point_set_id", id, "error", err)
		}
	}

	ps, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	tri, err := s.run(ctx, ps)
	if err != nil {
		return nil, err
	}
	res := tri.Result()

	if s.cache != nil {
		if err := s.cache.Put(ctx, id, res); err != nil {
			s.logger.Warn("failed to cache result", "point_set_id", id, "error", err)
		}
	}
	return res, nil
}

func (s *Service) cached(ctx context.Context, id string) (*domain.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	start := time.Now()
	res, err := s.cache.Get(ctx, id)
	switch {
	case err == nil:
		s.onFetch(ctx, &domain.FetchEvent{
			PointSetID: id,
			Points:     res.PointSet.Len(),
			Cached:     true,
			Duration:   time.Since(start),
		})
		return res, true
	case !errors.Is(err, domain.ErrCacheMiss):
		s.logger.Warn("result cache read failed", "point_set_id", id, "error", err)
	}
	return nil, false
}

// fetch downloads a point set once for all concurrent callers. The shared
// fetch outlives any single caller; each caller stops waiting when its own
// context ends.
func (s *Service) fetch(ctx context.Context, id string) (domain.PointSet, error) {
	ch := s.fetches.DoChan(id, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		start := time.Now()
		ps, err := s.source.FetchPointSet(fctx, id)
		s.onFetch(fctx, &domain.FetchEvent{
			PointSetID: id,
			Points:     ps.Len(),
			Duration:   time.Since(start),
			Err:        err,
		})
		if err != nil {
			return domain.PointSet{}, err
		}
		if ps.ID == "" {
			ps.ID = id
		}
		return ps, nil
	})

	select {
	case <-ctx.Done():
		return domain.PointSet{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return domain.PointSet{}, r.Err
		}
		return r.Val.(domain.PointSet), nil
	}
}

func (s *Service) onFetch(ctx context.Context, e *domain.FetchEvent) {
	if s.hooks.OnFetch != nil {
		s.hooks.OnFetch(ctx, e)
	}
}

func (s *Service) fail(ctx context.Context, id string, err error) {
	code := domain.CodeOf(err)
	if s.hooks.OnFailure != nil {
		s.hooks.OnFailure(ctx, &domain.FailureEvent{PointSetID: id, Code: code, Err: err})
	}
	if code != domain.CodeInternal {
		s.logger.Debug("request failed", "point_set_id", id, "code", code, "error", err)
	}
}
