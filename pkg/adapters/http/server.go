package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/triangulator"
	"github.com/aretw0/triangulator/internal/logging"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/aretw0/triangulator/pkg/wire"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes = 64 << 20

// Triangulator defines the interface of the triangulation core.
type Triangulator interface {
	Triangulate(ctx context.Context, ps domain.PointSet) (*triangulator.Triangulation, error)
	TriangulatePointSet(ctx context.Context, id string) (*domain.Result, error)
}

// ServerInterface lists the operations of the OpenAPI document.
type ServerInterface interface {
	// POST /triangulations
	CreateTriangulation(w http.ResponseWriter, r *http.Request)
	// GET /triangulate/{pointSetId}
	GetTriangles(w http.ResponseWriter, r *http.Request, pointSetID uuid.UUID)
	// GET /health
	GetHealth(w http.ResponseWriter, r *http.Request)
	// GET /info
	GetInfo(w http.ResponseWriter, r *http.Request)
}

// Server implements ServerInterface on top of a Triangulator.
type Server struct {
	Service Triangulator
	Logger  *slog.Logger
}

var _ ServerInterface = (*Server)(nil)

// TriangulationRequest is the body of POST /triangulations. Exactly one
// field must be set.
type TriangulationRequest struct {
	PointSetID *string       `json:"pointSetId,omitempty"`
	Points     *[][2]float64 `json:"points,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code   domain.Code `json:"code"`
	Detail string      `json:"detail"`
}

type handlerConfig struct {
	logger       *slog.Logger
	metrics      *Metrics
	maxBodyBytes int64
}

// HandlerOption configures NewHandler.
type HandlerOption func(*handlerConfig)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		c.logger = l
	}
}

// WithMetrics instruments every route and serves /metrics.
func WithMetrics(m *Metrics) HandlerOption {
	return func(c *handlerConfig) {
		c.metrics = m
	}
}

// WithMaxBodyBytes bounds request bodies. Zero disables the limit.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(c *handlerConfig) {
		c.maxBodyBytes = n
	}
}

// NewHandler creates the HTTP handler of the service.
func NewHandler(svc Triangulator, opts ...HandlerOption) (http.Handler, error) {
	cfg := handlerConfig{logger: logging.NewNop(), maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}

	doc, err := GetSwagger()
	if err != nil {
		return nil, err
	}
	validate, err := validateRequests(doc, cfg.logger)
	if err != nil {
		return nil, err
	}

	server := &Server{Service: svc, Logger: cfg.logger}
	r := chi.NewRouter()
	r.Use(enableCORS)
	if cfg.metrics != nil {
		r.Use(cfg.metrics.instrument)
	}
	r.Use(limitBody(cfg.maxBodyBytes), rejectOverflow, validate)

	if cfg.metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.metrics.Handler())
	}

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})

	return HandlerFromMux(server, r), nil
}

// HandlerFromMux registers the operations of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	wrapper := ServerInterfaceWrapper{Handler: si}
	r.Post("/triangulations", wrapper.CreateTriangulation)
	r.Get("/triangulate/{pointSetId}", wrapper.GetTriangles)
	r.Get("/health", wrapper.GetHealth)
	r.Get("/info", wrapper.GetInfo)
	return r
}

// ServerInterfaceWrapper binds request parameters before calling the
// handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) CreateTriangulation(rw http.ResponseWriter, r *http.Request) {
	w.Handler.CreateTriangulation(rw, r)
}

func (w *ServerInterfaceWrapper) GetTriangles(rw http.ResponseWriter, r *http.Request) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "pointSetId", chi.URLParam(r, "pointSetId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(rw, http.StatusBadRequest, domain.CodeInvalidPointSetID,
			fmt.Sprintf("invalid format for parameter pointSetId: %v", err))
		return
	}
	w.Handler.GetTriangles(rw, r, id)
}

func (w *ServerInterfaceWrapper) GetHealth(rw http.ResponseWriter, r *http.Request) {
	w.Handler.GetHealth(rw, r)
}

func (w *ServerInterfaceWrapper) GetInfo(rw http.ResponseWriter, r *http.Request) {
	w.Handler.GetInfo(rw, r)
}

// CreateTriangulation handles POST /triangulations.
func (s *Server) CreateTriangulation(w http.ResponseWriter, r *http.Request) {
	var body TriangulationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if (body.PointSetID == nil) == (body.Points == nil) {
		writeError(w, http.StatusBadRequest, domain.CodeInvalidRequest, "exactly one of pointSetId or points is required")
		return
	}

	var res *domain.Result
	if body.PointSetID != nil {
		var err error
		res, err = s.Service.TriangulatePointSet(r.Context(), *body.PointSetID)
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
	} else {
		tri, err := s.Service.Triangulate(r.Context(), domain.NewPointSet("", *body.Points))
		if err != nil {
			s.writeFailure(w, r, err)
			return
		}
		res = tri.Result()
	}

	writeJSON(w, http.StatusCreated, triangulator.NewDocument(res))
}

// GetTriangles handles GET /triangulate/{pointSetId}.
func (s *Server) GetTriangles(w http.ResponseWriter, r *http.Request, pointSetID uuid.UUID) {
	res, err := s.Service.TriangulatePointSet(r.Context(), pointSetID.String())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	data, err := wire.EncodeTriangles(res.PointSet.Points, res.Triangles)
	if err != nil {
		s.Logger.Error("encoding triangles failed", "point_set_id", res.PointSet.ID, "error", err)
		writeError(w, http.StatusInternalServerError, domain.CodeInternal, "internal error")
		return
	}
	w.Header().Set("Content-Type", wire.ContentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.Logger.Debug("writing triangles failed", "error", err)
	}
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "triangulator-http",
		"version":     strings.TrimSpace(triangulator.Version),
		"api_version": apiVersion,
	})
}

// writeFailure maps err to its status and code. Internal failures get a
// generic detail; the service has already logged their context.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.CodeOf(err)
	status := code.Status()
	detail := err.Error()
	switch {
	case code == domain.CodeInternal:
		detail = "internal error"
	case status >= http.StatusInternalServerError:
		s.Logger.Warn("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	default:
		s.Logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeError(w, status, code, detail)
}

func writeError(w http.ResponseWriter, status int, code domain.Code, detail string) {
	writeJSON(w, status, ErrorResponse{Code: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Triangulator API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
