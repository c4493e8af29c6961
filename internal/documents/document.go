// Package documents implements the document domain for Anchorage.
// It provides types, data access, and business logic for document
// registration, blob storage integration, and the active-generation
// pointer that reprocessing swaps.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Reprocess lock states stored on the document row.
const (
	ReprocessIdle    = "idle"
	ReprocessRunning = "running"
)

// Document represents a registered document. ActiveGenerationID points at
// the single segmentation generation served to readers; it is nil only
// before the first processing run completes. ReprocessStatus is the
// exclusivity lock preventing two concurrent reprocessing runs.
type Document struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	ContentType        string     `json:"content_type"`
	SizeBytes          int64      `json:"size_bytes"`
	PageCount          *int       `json:"page_count"`
	StorageKey         string     `json:"storage_key"`
	ActiveGenerationID *uuid.UUID `json:"active_generation_id"`
	ReprocessStatus    string     `json:"reprocess_status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to upload and register a new document.
// Data holds the raw file bytes. PageCount is optional and may be extracted
// by the caller via pdfcpu; nil values are stored as NULL.
type CreateCommand struct {
	Data        []byte
	Title       string
	ContentType string
	PageCount   *int
}
