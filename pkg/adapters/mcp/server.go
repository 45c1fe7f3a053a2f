package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/triangulator"
	"github.com/aretw0/triangulator/internal/logging"
	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Triangulator defines the interface required by the MCP server.
type Triangulator interface {
	Triangulate(ctx context.Context, ps domain.PointSet) (*triangulator.Triangulation, error)
	TriangulatePointSet(ctx context.Context, id string) (*domain.Result, error)
}

// TriangulateArgs are the arguments of the triangulate tool. Exactly one
// field must be set.
type TriangulateArgs struct {
	PointSetID string       `json:"point_set_id,omitempty"`
	Points     [][2]float64 `json:"points,omitempty"`
}

// Server wraps the Service and exposes it as an MCP Server.
type Server struct {
	service   Triangulator
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(svc Triangulator, opts ...Option) *Server {
	s := &Server{
		service:   svc,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("triangulator-mcp", strings.TrimSpace(triangulator.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	tool := mcp.NewTool("triangulate",
		mcp.WithDescription("Compute the Delaunay triangulation of a point set. "+
			"Pass either point_set_id to fetch a stored point set or points to triangulate them directly. "+
			"Triangles and hull reference point indices of the input."),
		mcp.WithString("point_set_id", mcp.Description("UUID of a point set held by the point-set manager")),
		mcp.WithArray("points",
			mcp.Description("Inline points as [x, y] pairs"),
			mcp.Items(map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "number"},
				"minItems": 2,
				"maxItems": 2,
			}),
		),
		mcp.WithOutputSchema[triangulator.Document](),
	)
	s.mcpServer.AddTool(tool, mcp.NewStructuredToolHandler(s.handleTriangulate))
}

func (s *Server) handleTriangulate(ctx context.Context, _ mcp.CallToolRequest, args TriangulateArgs) (triangulator.Document, error) {
	hasID, hasPoints := args.PointSetID != "", args.Points != nil
	if hasID == hasPoints {
		return triangulator.Document{}, fmt.Errorf("%s: exactly one of point_set_id or points is required", domain.CodeInvalidRequest)
	}

	var res *domain.Result
	if hasID {
		var err error
		res, err = s.service.TriangulatePointSet(ctx, args.PointSetID)
		if err != nil {
			return triangulator.Document{}, s.toolError(err)
		}
	} else {
		tri, err := s.service.Triangulate(ctx, domain.NewPointSet("", args.Points))
		if err != nil {
			return triangulator.Document{}, s.toolError(err)
		}
		res = tri.Result()
	}
	return triangulator.NewDocument(res), nil
}

// toolError prefixes err with its code so agents can branch on it.
// Internal failures carry no detail.
func (s *Server) toolError(err error) error {
	code := domain.CodeOf(err)
	if code == domain.CodeInternal {
		return fmt.Errorf("%s: internal error", code)
	}
	s.logger.Debug("triangulate tool failed", "code", code, "error", err)
	return fmt.Errorf("%s: %w", code, err)
}
