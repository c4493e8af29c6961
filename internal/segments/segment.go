// Package segments implements the segmentation domain for Anchorage:
// generations of a document's chunked text and the segments within them.
// A generation moves through pending, active, retired, and discarded; the
// reprocessing orchestrator drives those transitions.
package segments

import (
	"time"

	"github.com/google/uuid"
)

// Generation lifecycle states.
const (
	GenerationPending   = "pending"
	GenerationActive    = "active"
	GenerationRetired   = "retired"
	GenerationDiscarded = "discarded"
)

// Generation is one complete segmentation of a document's text body.
// TextBody holds the extracted text the segments were cut from, so
// recovery can re-anchor against it without re-downloading the blob.
type Generation struct {
	ID           uuid.UUID  `json:"id"`
	DocumentID   uuid.UUID  `json:"document_id"`
	Status       string     `json:"status"`
	TextBody     string     `json:"-"`
	SegmentCount int        `json:"segment_count"`
	CreatedAt    time.Time  `json:"created_at"`
	ActivatedAt  *time.Time `json:"activated_at"`
}

// Segment is one chunk of a generation. Offsets are byte offsets into the
// generation's text body and Content equals TextBody[StartOffset:EndOffset].
type Segment struct {
	ID            uuid.UUID `json:"id"`
	GenerationID  uuid.UUID `json:"generation_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	SequenceIndex int       `json:"sequence_index"`
	StartOffset   int       `json:"start_offset"`
	EndOffset     int       `json:"end_offset"`
	Content       string    `json:"content"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// SegmentInput describes one chunk to insert into a pending generation.
type SegmentInput struct {
	SequenceIndex int
	StartOffset   int
	EndOffset     int
	Content       string
}
