package annotations

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "annotations", "a").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("start_offset", "StartOffset").
	Project("end_offset", "EndOffset").
	Project("captured_text", "CapturedText").
	Project("context_before", "ContextBefore").
	Project("context_after", "ContextAfter").
	Project("segment_index", "SegmentIndex").
	Project("color", "Color").
	Project("note", "Note").
	Project("status", "Status").
	Project("confidence", "Confidence").
	Project("method", "Method").
	Project("recovered_at", "RecoveredAt").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "StartOffset",
}

// Filters contains optional filtering criteria for annotation queries.
type Filters struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Status     *string    `json:"status,omitempty"`
	Color      *string    `json:"color,omitempty"`
	Method     *string    `json:"method,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("DocumentID", f.DocumentID).
		WhereEquals("Status", f.Status).
		WhereEquals("Color", f.Color).
		WhereEquals("Method", f.Method)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("color"); c != "" {
		f.Color = &c
	}

	if m := values.Get("method"); m != "" {
		f.Method = &m
	}

	return f
}

func scanAnnotation(s repository.Scanner) (Annotation, error) {
	var a Annotation
	err := s.Scan(
		&a.ID,
		&a.DocumentID,
		&a.StartOffset,
		&a.EndOffset,
		&a.CapturedText,
		&a.ContextBefore,
		&a.ContextAfter,
		&a.SegmentIndex,
		&a.Color,
		&a.Note,
		&a.Status,
		&a.Confidence,
		&a.Method,
		&a.RecoveredAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}
