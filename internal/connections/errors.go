package connections

import (
	"errors"
	"net/http"
)

// Domain errors for connection operations.
var (
	ErrNotFound      = errors.New("connection not found")
	ErrDuplicate     = errors.New("connection already exists")
	ErrInvalidInput  = errors.New("invalid connection")
	ErrNotReviewable = errors.New("connection is not awaiting review")
)

// MapHTTPStatus maps connection domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrNotReviewable) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
