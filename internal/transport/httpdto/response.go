package httpdto

import (
	"net/http"

	hub_errors "supporthub/pkg/errors"
)

type Response[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// StatusFor maps a service error to its HTTP status and stable error
// code. Unknown errors are 500s with a generic code.
func StatusFor(err error) (int, string) {
	switch err {
	case hub_errors.ErrNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case hub_errors.ErrInvalidInput, hub_errors.ErrMissingIdentifier:
		return http.StatusBadRequest, "INVALID_REQUEST"
	case hub_errors.ErrUnauthorized:
		return http.StatusUnauthorized, "UNAUTHORIZED"
	case hub_errors.ErrForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case hub_errors.ErrAlreadyExists, hub_errors.ErrConflict:
		return http.StatusConflict, "CONFLICT"
	case hub_errors.ErrReauthorizationRequired, hub_errors.ErrTokenExpired:
		return http.StatusUnprocessableEntity, "REAUTHORIZATION_REQUIRED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
