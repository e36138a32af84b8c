package domain

import (
	"errors"
	"net/http"
)

var ErrNotFound = errors.New("not found")

// APIError is an expected failure that carries the HTTP status and the
// message shown to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, message)
}

func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, "Unauthorized")
}

func Forbidden() *APIError {
	return NewAPIError(http.StatusForbidden, "You don't have permission to do this action.")
}

func NotFound(message string) *APIError {
	if message == "" {
		message = "Not Found"
	}
	return NewAPIError(http.StatusNotFound, message)
}
