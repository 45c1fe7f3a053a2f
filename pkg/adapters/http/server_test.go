package http

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/triangulator"
	"github.com/aretw0/triangulator/internal/testutils"
	"github.com/aretw0/triangulator/pkg/adapters/memory"
	"github.com/aretw0/triangulator/pkg/adapters/upstream"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareID = "6a2b9c1d-3e4f-4a5b-8c7d-9e0f1a2b3c4d"

func squareSource() *memory.Source {
	return memory.NewSource(domain.NewPointSet(squareID, [][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}))
}

func newHandler(t *testing.T, svc Triangulator, opts ...HandlerOption) http.Handler {
	t.Helper()
	h, err := NewHandler(svc, opts...)
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}

func TestCreateTriangulation_Points(t *testing.T) {
	h := newHandler(t, triangulator.New())

	w := do(h, http.MethodPost, "/triangulations", `{"points": [[0,0],[1,0],[1,1],[0,1],[0,0]]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var doc triangulator.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Len(t, doc.Triangles, 2)
	assert.Equal(t, []int{0, 1, 2, 3}, doc.Hull)
	assert.Equal(t, 4, doc.VertexCount)
	assert.Equal(t, 5, doc.EdgeCount)
	assert.Equal(t, 1, doc.DedupCount)
	assert.Equal(t, []domain.Merge{{Kept: 0, Dropped: []int{4}}}, doc.Merges)
}

func TestCreateTriangulation_PointSetID(t *testing.T) {
	h := newHandler(t, triangulator.New(triangulator.WithSource(squareSource())))

	w := do(h, http.MethodPost, "/triangulations", `{"pointSetId": "`+squareID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc triangulator.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, squareID, doc.PointSetID)
	assert.Len(t, doc.Triangles, 2)
	assert.NotNil(t, doc.Merges)
	assert.Zero(t, doc.DedupCount)
}

func TestCreateTriangulation_Errors(t *testing.T) {
	h := newHandler(t, triangulator.New(triangulator.WithSource(squareSource())))

	tests := []struct {
		name   string
		body   string
		status int
		code   domain.Code
	}{
		{"collinear", `{"points": [[0,0],[1,1],[2,2]]}`, http.StatusBadRequest, domain.CodeDegenerateInput},
		{"two points", `{"points": [[0,0],[1,1]]}`, http.StatusBadRequest, domain.CodeInsufficientPoints},
		{"no points", `{"points": []}`, http.StatusBadRequest, domain.CodeInsufficientPoints},
		{"neither input", `{}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"both inputs", `{"pointSetId": "` + squareID + `", "points": [[0,0],[1,0],[0,1]]}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"short coordinate", `{"points": [[0],[1,0],[0,1]]}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"string coordinate", `{"points": [["a",0],[1,0],[0,1]]}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"overflowing x", `{"points": [[1e400,0],[1,0],[0,1]]}`, http.StatusBadRequest, domain.CodeInvalidCoordinate},
		{"overflowing y", `{"points": [[0,0],[1,-1e999],[0,1]]}`, http.StatusBadRequest, domain.CodeInvalidCoordinate},
		{"unknown field", `{"shape": "square"}`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"malformed json", `{"points": [`, http.StatusBadRequest, domain.CodeInvalidRequest},
		{"bad id", `{"pointSetId": "square"}`, http.StatusBadRequest, domain.CodeInvalidPointSetID},
		{"unknown id", `{"pointSetId": "00000000-0000-4000-8000-000000000000"}`, http.StatusNotFound, domain.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, "/triangulations", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			e := decodeError(t, w)
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Detail)
		})
	}
}

func TestOverflowingPoint(t *testing.T) {
	err := overflowingPoint([]byte(`{"points": [[0,0],[1,0],[2,1e400],[-1e400,0]]}`))
	var inv *domain.InvalidCoordinateError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 2, inv.Index)
	assert.True(t, math.IsInf(inv.Y, 1))

	assert.NoError(t, overflowingPoint([]byte(`{"points": [[0,0],[1e-400,0],[0,1]]}`)))
	assert.NoError(t, overflowingPoint([]byte(`{"pointSetId": "x"}`)))
	assert.NoError(t, overflowingPoint([]byte(`{"points": [`)))
}

func TestCreateTriangulation_MissingContentType(t *testing.T) {
	h := newHandler(t, triangulator.New())
	req := httptest.NewRequest(http.MethodPost, "/triangulations", strings.NewReader(`{"points": [[0,0],[1,0],[0,1]]}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeInvalidRequest, decodeError(t, w).Code)
}

func TestCreateTriangulation_InternalErrorIsGeneric(t *testing.T) {
	h := newHandler(t, triangulator.New(triangulator.WithMaxFlips(0)))

	body, err := json.Marshal(map[string]any{"points": testutils.RandomCoords(200, 9)})
	require.NoError(t, err)

	w := do(h, http.MethodPost, "/triangulations", string(body))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	e := decodeError(t, w)
	assert.Equal(t, domain.CodeInternal, e.Code)
	assert.Equal(t, "internal error", e.Detail)
}

func TestGetTriangles(t *testing.T) {
	h := newHandler(t, triangulator.New(triangulator.WithSource(squareSource())))

	w := do(h, http.MethodGet, "/triangulate/"+squareID, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, wire.ContentType, w.Header().Get("Content-Type"))

	points, tris, err := wire.DecodeTriangles(w.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, points, 4)
	assert.Len(t, tris, 2)
}

func TestGetTriangles_Errors(t *testing.T) {
	h := newHandler(t, triangulator.New(triangulator.WithSource(squareSource())))

	w := do(h, http.MethodGet, "/triangulate/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeInvalidPointSetID, decodeError(t, w).Code)

	w = do(h, http.MethodGet, "/triangulate/00000000-0000-4000-8000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, domain.CodeNotFound, decodeError(t, w).Code)
}

func TestUpstreamTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client, err := upstream.New(slow.URL, upstream.WithTimeout(50*time.Millisecond), upstream.WithRetries(0))
	require.NoError(t, err)

	var triangulations atomic.Int32
	svc := triangulator.New(
		triangulator.WithSource(client),
		triangulator.WithLifecycleHooks(domain.LifecycleHooks{
			OnTriangulate: func(context.Context, *domain.TriangulationEvent) { triangulations.Add(1) },
		}),
	)
	h := newHandler(t, svc)

	w := do(h, http.MethodPost, "/triangulations", `{"pointSetId": "`+squareID+`"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, domain.CodeUpstreamTimeout, decodeError(t, w).Code)

	w = do(h, http.MethodGet, "/triangulate/"+squareID, "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	assert.Zero(t, triangulations.Load(), "no triangulation is computed after a timeout")
}

func TestUpstreamMalformed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{9, 0, 0, 0, 1})
	}))
	defer bad.Close()

	client, err := upstream.New(bad.URL, upstream.WithRetries(0))
	require.NoError(t, err)
	h := newHandler(t, triangulator.New(triangulator.WithSource(client)))

	w := do(h, http.MethodGet, "/triangulate/"+squareID, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, domain.CodeUpstream, decodeError(t, w).Code)
}

func TestHealthAndInfo(t *testing.T) {
	h := newHandler(t, triangulator.New())

	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "triangulator-http", info["app"])
	assert.Equal(t, strings.TrimSpace(triangulator.Version), info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])
}

func TestOpenAPIDocument(t *testing.T) {
	h := newHandler(t, triangulator.New())

	w := do(h, http.MethodGet, "/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/triangulations:")

	doc, err := GetSwagger()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/triangulate/{pointSetId}"))
}

func TestCORSPreflight(t *testing.T) {
	h := newHandler(t, triangulator.New())

	w := do(h, http.MethodOptions, "/triangulations", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	h := newHandler(t, triangulator.New(), WithMaxBodyBytes(16))

	w := do(h, http.MethodPost, "/triangulations", `{"points": [[0,0],[1,0],[0,1]]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, domain.CodeInvalidRequest, decodeError(t, w).Code)
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	svc := triangulator.New(
		triangulator.WithSource(squareSource()),
		triangulator.WithLifecycleHooks(metrics.Hooks()),
	)
	h := newHandler(t, svc, WithMetrics(metrics))

	require.Equal(t, http.StatusCreated, do(h, http.MethodPost, "/triangulations", `{"pointSetId": "`+squareID+`"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodPost, "/triangulations", `{"points": [[0,0],[1,1],[2,2]]}`).Code)
	require.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/triangulate/nope", "").Code)

	w := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()

	assert.Contains(t, body, `triangulator_http_requests_total{method="POST",route="/triangulations",status="201"} 1`)
	assert.Contains(t, body, `triangulator_http_requests_total{method="POST",route="/triangulations",status="400"} 1`)
	assert.Contains(t, body, `triangulator_http_requests_total{method="GET",route="/triangulate/{pointSetId}",status="400"} 1`)
	assert.Contains(t, body, `triangulator_failures_total{code="degenerate_input"} 1`)
	assert.Contains(t, body, `triangulator_pointset_fetches_total{origin="upstream",outcome="ok"} 1`)
	assert.Contains(t, body, `triangulator_triangulation_points_count 1`)
}
