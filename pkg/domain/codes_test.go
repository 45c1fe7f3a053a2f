package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   Code
		status int
	}{
		{"nil", nil, "", http.StatusOK},
		{"insufficient", &InsufficientPointsError{Count: 2}, CodeInsufficientPoints, http.StatusBadRequest},
		{"invalid coordinate", &InvalidCoordinateError{Index: 4}, CodeInvalidCoordinate, http.StatusBadRequest},
		{"degenerate", &DegenerateInputError{Distinct: 3}, CodeDegenerateInput, http.StatusBadRequest},
		{"bad id", fmt.Errorf("parse: %w", ErrInvalidPointSetID), CodeInvalidPointSetID, http.StatusBadRequest},
		{"not found", fmt.Errorf("fetch: %w", ErrPointSetNotFound), CodeNotFound, http.StatusNotFound},
		{"upstream", fmt.Errorf("%w: status 500", ErrUpstream), CodeUpstream, http.StatusBadGateway},
		{"timeout", fmt.Errorf("%w: after 2s", ErrUpstreamTimeout), CodeUpstreamTimeout, http.StatusGatewayTimeout},
		{"instability", &InstabilityError{Vertex: 7, Flips: 100}, CodeInternal, http.StatusInternalServerError},
		{"canceled", context.Canceled, CodeCanceled, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.Equal(t, tt.status, StatusOf(tt.err))
		})
	}
}

func TestIsInputError(t *testing.T) {
	assert.True(t, IsInputError(&DegenerateInputError{}))
	assert.False(t, IsInputError(ErrUpstream))
	assert.False(t, IsInputError(nil))
}

func TestParsePointSetID(t *testing.T) {
	id, err := ParsePointSetID(" 123E4567-E89B-12D3-A456-426614174000 ")
	assert.NoError(t, err)
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", id)

	_, err = ParsePointSetID("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx")
	assert.ErrorIs(t, err, ErrInvalidPointSetID)

	_, err = ParsePointSetID("")
	assert.ErrorIs(t, err, ErrInvalidPointSetID)
}

func TestDedupReport_Count(t *testing.T) {
	r := DedupReport{Merges: []Merge{{Kept: 0, Dropped: []int{3}}, {Kept: 1, Dropped: []int{2, 5}}}}
	assert.Equal(t, 3, r.Count())
	assert.Zero(t, DedupReport{}.Count())
}

func TestNewPointSet(t *testing.T) {
	ps := NewPointSet("a", [][2]float64{{1, 2}, {3, 4}})
	assert.Equal(t, 2, ps.Len())
	assert.Equal(t, Point{ID: 1, X: 3, Y: 4}, ps.Points[1])
	assert.Equal(t, [][2]float64{{1, 2}, {3, 4}}, ps.Coordinates())
}
