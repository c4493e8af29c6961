package reprocess

import (
	"errors"
	"net/http"

	"github.com/stillharbor/anchorage/internal/documents"
)

// Domain errors for reprocessing operations.
var (
	ErrNotFound       = errors.New("reprocess run not found")
	ErrDuplicate      = errors.New("reprocess run already exists")
	ErrInvalidInput   = errors.New("invalid reprocess request")
	ErrRollbackFailed = errors.New("rollback failed; manual intervention required")
)

// MapHTTPStatus maps reprocessing errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidInput) {
		return http.StatusBadRequest
	}
	if errors.Is(err, documents.ErrReprocessing) {
		return http.StatusConflict
	}
	if errors.Is(err, documents.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
