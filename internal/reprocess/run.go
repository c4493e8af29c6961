// Package reprocess implements the reprocessing orchestrator for
// Anchorage: the state machine that regenerates a document's segmentation
// while recovering its annotations and connections, swaps the active
// generation transactionally, and rolls back on failure.
package reprocess

import (
	"time"

	"github.com/google/uuid"
)

// Run stages. Completed and failed are terminal.
const (
	StagePending               = "pending"
	StageExtracting            = "extracting"
	StageSegmenting            = "segmenting"
	StageEmbedding             = "embedding"
	StageRecoveringAnnotations = "recovering_annotations"
	StageRecoveringConnections = "recovering_connections"
	StageActivating            = "activating"
	StageCleanup               = "cleanup"
	StageCompleted             = "completed"
	StageRollingBack           = "rolling_back"
	StageFailed                = "failed"
)

// Run records one reprocessing operation: its progress through the
// stages, the recovery classification counts, and the retained error on
// failure. Progress fields feed UI and CLI collaborators.
type Run struct {
	ID                  uuid.UUID  `json:"id"`
	DocumentID          uuid.UUID  `json:"document_id"`
	Stage               string     `json:"stage"`
	Percent             int        `json:"percent"`
	Message             string     `json:"message"`
	Error               *string    `json:"error"`
	AnnotationsResolved int        `json:"annotations_resolved"`
	AnnotationsReview   int        `json:"annotations_review"`
	AnnotationsLost     int        `json:"annotations_lost"`
	ConnectionsResolved int        `json:"connections_resolved"`
	ConnectionsReview   int        `json:"connections_review"`
	ConnectionsLost     int        `json:"connections_lost"`
	StartedAt           time.Time  `json:"started_at"`
	FinishedAt          *time.Time `json:"finished_at"`
}

// Counts carries the recovery classification totals recorded on a run.
type Counts struct {
	AnnotationsResolved int
	AnnotationsReview   int
	AnnotationsLost     int
	ConnectionsResolved int
	ConnectionsReview   int
	ConnectionsLost     int
}
