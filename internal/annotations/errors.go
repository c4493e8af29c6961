package annotations

import (
	"errors"
	"net/http"
)

// Domain errors for annotation operations.
var (
	ErrNotFound      = errors.New("annotation not found")
	ErrDuplicate     = errors.New("annotation already exists")
	ErrInvalidInput  = errors.New("invalid annotation")
	ErrNotReviewable = errors.New("annotation is not awaiting review")
)

// MapHTTPStatus maps annotation domain errors to appropriate HTTP status codes.
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
