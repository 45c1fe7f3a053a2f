package domain

import (
	"context"
	"errors"
	"net/http"
)

// Code is the transport-neutral classification of a failure.
type Code string

const (
	CodeInsufficientPoints Code = "insufficient_points"
	CodeInvalidCoordinate  Code = "invalid_coordinate"
	CodeDegenerateInput    Code = "degenerate_input"
	CodeInvalidRequest     Code = "invalid_request"
	CodeInvalidPointSetID  Code = "invalid_point_set_id"
	CodeNotFound           Code = "not_found"
	CodeUpstream           Code = "upstream_error"
	CodeUpstreamTimeout    Code = "upstream_timeout"
	CodeCanceled           Code = "canceled"
	CodeInternal           Code = "internal_error"
)

// CodeOf classifies err. Unknown errors are internal.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientPoints):
		return CodeInsufficientPoints
	case errors.Is(err, ErrInvalidCoordinate):
		return CodeInvalidCoordinate
	case errors.Is(err, ErrDegenerateInput):
		return CodeDegenerateInput
	case errors.Is(err, ErrInvalidPointSetID):
		return CodeInvalidPointSetID
	case errors.Is(err, ErrPointSetNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUpstreamTimeout):
		return CodeUpstreamTimeout
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	default:
		return CodeInternal
	}
}

// IsInputError reports whether err was caused by the caller's input.
func IsInputError(err error) bool {
	switch CodeOf(err) {
	case CodeInsufficientPoints, CodeInvalidCoordinate, CodeDegenerateInput,
		CodeInvalidRequest, CodeInvalidPointSetID:
		return true
	}
	return false
}

// Status returns the HTTP status conventionally associated with the code.
func (c Code) Status() int {
	switch c {
	case "":
		return http.StatusOK
	case CodeInsufficientPoints, CodeInvalidCoordinate, CodeDegenerateInput,
		CodeInvalidRequest, CodeInvalidPointSetID:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstream:
		return http.StatusBadGateway
	case CodeUpstreamTimeout:
		return http.StatusGatewayTimeout
	case CodeCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// StatusOf classifies err and returns its HTTP status.
func StatusOf(err error) int {
	return CodeOf(err).Status()
}
