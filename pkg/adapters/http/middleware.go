package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/aretw0/triangulator/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers/legacy"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if n > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rejectOverflow answers invalid_coordinate when an inline point of
// POST /triangulations holds a number literal beyond float64 range, which
// schema validation would otherwise report as a malformed body.
func rejectOverflow(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/triangulations" || r.Body == nil {
			next.ServeHTTP(w, r)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, domain.CodeInvalidRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(data))
		if err := overflowingPoint(data); err != nil {
			code := domain.CodeOf(err)
			writeError(w, code.Status(), code, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// overflowingPoint returns an InvalidCoordinateError for the first point with
// a coordinate that overflows to infinity. Bodies it cannot read are left to validation.
func overflowingPoint(data []byte) error {
	var body struct {
		Points [][]json.Number `json:"points"`
	}
	if json.Unmarshal(data, &body) != nil {
		return nil
	}
	for i, p := range body.Points {
		var xy [2]float64
		overflow := false
		for k := range min(len(p), 2) {
			v, err := strconv.ParseFloat(p[k].String(), 64)
			xy[k] = v
			overflow = overflow || errors.Is(err, strconv.ErrRange) && math.IsInf(v, 0)
		}
		if overflow {
			return &domain.InvalidCoordinateError{Index: i, X: xy[0], Y: xy[1]}
		}
	}
	return nil
}

// validateRequests rejects requests that do not match the OpenAPI document.
// Paths the document does not describe pass through untouched.
func validateRequests(doc *openapi3.T, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("building openapi router: %w", err)
	}
	opts := &openapi3filter.Options{ExcludeResponseBody: true}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, params, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: params,
				Route:      route,
				Options:    opts,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				logger.Debug("request rejected by openapi validation", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusBadRequest, domain.CodeInvalidRequest, err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
