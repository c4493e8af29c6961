package connections

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "connections", "c").
	Project("id", "ID").
	Project("source_segment_id", "SourceSegmentID").
	Project("target_segment_id", "TargetSegmentID").
	Project("source_document_id", "SourceDocumentID").
	Project("target_document_id", "TargetDocumentID").
	Project("kind", "Kind").
	Project("strength", "Strength").
	Project("validated", "Validated").
	Project("status", "Status").
	Project("origin_id", "OriginID").
	Project("source_similarity", "SourceSimilarity").
	Project("target_similarity", "TargetSimilarity").
	Project("detected_by", "DetectedBy").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for connection queries.
// DocumentID matches either endpoint's document.
type Filters struct {
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	Kind       *string    `json:"kind,omitempty"`
	Status     *string    `json:"status,omitempty"`
	Validated  *bool      `json:"validated,omitempty"`
}

// Apply adds filter conditions to a query builder. DocumentID matches
// connections touching the document on either side.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereAnyEquals(f.DocumentID, "SourceDocumentID", "TargetDocumentID").
		WhereEquals("Kind", f.Kind).
		WhereEquals("Status", f.Status).
		WhereEquals("Validated", f.Validated)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	if k := values.Get("kind"); k != "" {
		f.Kind = &k
	}

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if v := values.Get("validated"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Validated = &b
		}
	}

	return f
}

func scanConnection(s repository.Scanner) (Connection, error) {
	var c Connection
	err := s.Scan(
		&c.ID,
		&c.SourceSegmentID,
		&c.TargetSegmentID,
		&c.SourceDocumentID,
		&c.TargetDocumentID,
		&c.Kind,
		&c.Strength,
		&c.Validated,
		&c.Status,
		&c.OriginID,
		&c.SourceSimilarity,
		&c.TargetSimilarity,
		&c.DetectedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}
