// Package annotations implements the annotation domain for Anchorage:
// user-captured spans of a document's text, their lifecycle across
// reprocessing runs, and the recovery engine that re-anchors them when a
// document's segmentation is regenerated.
package annotations

import (
	"time"

	"github.com/google/uuid"
)

// Annotation lifecycle states.
const (
	StatusActive      = "active"
	StatusNeedsReview = "needs_review"
	StatusLost        = "lost"
)

// Annotation is a user-captured span. CapturedText is the text as it read
// when the annotation was made; ContextBefore and ContextAfter are short
// snippets flanking it. Offsets are byte offsets into the active
// generation's text body. SegmentIndex is the sequence index of the first
// segment the span fell in, kept as a position hint for recovery.
// Lost annotations retain their original text and offsets for audit.
type Annotation struct {
	ID            uuid.UUID  `json:"id"`
	DocumentID    uuid.UUID  `json:"document_id"`
	StartOffset   int        `json:"start_offset"`
	EndOffset     int        `json:"end_offset"`
	CapturedText  string     `json:"captured_text"`
	ContextBefore string     `json:"context_before"`
	ContextAfter  string     `json:"context_after"`
	SegmentIndex  *int       `json:"segment_index"`
	Color         string     `json:"color"`
	Note          string     `json:"note"`
	Status        string     `json:"status"`
	Confidence    *float64   `json:"confidence"`
	Method        *string    `json:"method"`
	RecoveredAt   *time.Time `json:"recovered_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to record a new annotation.
type CreateCommand struct {
	DocumentID    uuid.UUID `json:"document_id"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	CapturedText  string    `json:"captured_text"`
	ContextBefore string    `json:"context_before"`
	ContextAfter  string    `json:"context_after"`
	SegmentIndex  *int      `json:"segment_index"`
	Color         string    `json:"color"`
	Note          string    `json:"note"`
}

// UpdateCommand carries the user-editable annotation fields. Nil fields
// are left unchanged.
type UpdateCommand struct {
	Color *string `json:"color"`
	Note  *string `json:"note"`
}

// Recovery describes the outcome of re-anchoring one annotation, applied
// by the repository in a single update. Lost recoveries keep the stored
// offsets untouched.
type Recovery struct {
	AnnotationID uuid.UUID
	Status       string
	StartOffset  int
	EndOffset    int
	SegmentIndex *int
	Confidence   float64
	Method       string
	SegmentIDs   []uuid.UUID
}
