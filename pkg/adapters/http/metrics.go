package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "triangulator"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Points          prometheus.Histogram
	Duration        prometheus.Histogram
	Failures        *prometheus.CounterVec
	Fetches         *prometheus.CounterVec
}

// NewMetrics registers the service collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	return &Metrics{
		registry: reg,
		Requests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		Points: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triangulation_points",
			Help:      "Input size of completed triangulations.",
			Buckets:   prometheus.ExponentialBuckets(4, 4, 10),
		}),
		Duration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triangulation_duration_seconds",
			Help:      "Engine time of completed triangulations.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		Failures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed requests by error code.",
		}, []string{"code"}),
		Fetches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pointset_fetches_total",
			Help:      "Point-set lookups by origin and outcome.",
		}, []string{"origin", "outcome"}),
	}
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFetch: func(_ context.Context, e *domain.FetchEvent) {
			origin, outcome := "upstream", "ok"
			if e.Cached {
				origin = "cache"
			}
			if e.Err != nil {
				outcome = string(domain.CodeOf(e.Err))
			}
			m.Fetches.WithLabelValues(origin, outcome).Inc()
		},
		OnTriangulate: func(_ context.Context, e *domain.TriangulationEvent) {
			m.Points.Observe(float64(e.Points))
			m.Duration.Observe(e.Duration.Seconds())
		},
		OnFailure: func(_ context.Context, e *domain.FailureEvent) {
			m.Failures.WithLabelValues(string(e.Code)).Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// instrument records request counts and latency by chi route pattern.
func (m *Metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
