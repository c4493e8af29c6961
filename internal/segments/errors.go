package segments

import (
	"errors"
	"net/http"
)

// Domain errors for segment and generation operations.
var (
	ErrNotFound           = errors.New("segment not found")
	ErrGenerationNotFound = errors.New("generation not found")
	ErrDuplicate          = errors.New("segment already exists")
	ErrNoActiveGeneration = errors.New("document has no active generation")
	ErrNotPending         = errors.New("generation is not pending")
	ErrInvalidSegment     = errors.New("invalid segment")
)

// MapHTTPStatus maps segment domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGenerationNotFound) ||
		errors.Is(err, ErrNoActiveGeneration) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrNotPending) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidSegment) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
