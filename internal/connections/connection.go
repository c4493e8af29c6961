// Package connections implements the inter-document connection domain for
// Anchorage: validated edges between segments of two documents, and the
// recovery engine that remaps their endpoints when one document's
// segmentation is regenerated.
package connections

import (
	"time"

	"github.com/google/uuid"
)

// Connection lifecycle states. Superseded connections have been replaced
// by a remapped successor; lost connections could not be remapped and are
// retained for audit.
const (
	StatusActive      = "active"
	StatusNeedsReview = "needs_review"
	StatusLost        = "lost"
	StatusSuperseded  = "superseded"
)

// Connection is an edge between two segments, usually in different
// documents. Validated edges were confirmed by a human; unvalidated ones
// are machine detections awaiting confirmation. OriginID and the
// per-endpoint similarities carry provenance on edges produced by
// recovery remapping.
type Connection struct {
	ID               uuid.UUID  `json:"id"`
	SourceSegmentID  uuid.UUID  `json:"source_segment_id"`
	TargetSegmentID  uuid.UUID  `json:"target_segment_id"`
	SourceDocumentID uuid.UUID  `json:"source_document_id"`
	TargetDocumentID uuid.UUID  `json:"target_document_id"`
	Kind             string     `json:"kind"`
	Strength         float64    `json:"strength"`
	Validated        bool       `json:"validated"`
	Status           string     `json:"status"`
	OriginID         *uuid.UUID `json:"origin_id"`
	SourceSimilarity *float64   `json:"source_similarity"`
	TargetSimilarity *float64   `json:"target_similarity"`
	DetectedBy       string     `json:"detected_by"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to record a new connection.
type CreateCommand struct {
	SourceSegmentID  uuid.UUID `json:"source_segment_id"`
	TargetSegmentID  uuid.UUID `json:"target_segment_id"`
	SourceDocumentID uuid.UUID `json:"source_document_id"`
	TargetDocumentID uuid.UUID `json:"target_document_id"`
	Kind             string    `json:"kind"`
	Strength         float64   `json:"strength"`
	DetectedBy       string    `json:"detected_by"`
}

// Successor describes a remapped edge to insert in place of an original.
// Validated successors go in active; unvalidated ones go in needs_review.
type Successor struct {
	SourceSegmentID  uuid.UUID
	TargetSegmentID  uuid.UUID
	SourceSimilarity float64
	TargetSimilarity float64
	Validated        bool
}
