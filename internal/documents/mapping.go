package documents

import (
	"net/url"

	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("title", "Title").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("active_generation_id", "ActiveGenerationID").
	Project("reprocess_status", "ReprocessStatus").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored. ContentType and ReprocessStatus use exact
// matching. Title and StorageKey use case-insensitive contains matching.
type Filters struct {
	Title           *string `json:"title,omitempty"`
	ContentType     *string `json:"content_type,omitempty"`
	StorageKey      *string `json:"storage_key,omitempty"`
	ReprocessStatus *string `json:"reprocess_status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Title", f.Title).
		WhereEquals("ContentType", f.ContentType).
		WhereContains("StorageKey", f.StorageKey).
		WhereEquals("ReprocessStatus", f.ReprocessStatus)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if t := values.Get("title"); t != "" {
		f.Title = &t
	}

	if ct := values.Get("content_type"); ct != "" {
		f.ContentType = &ct
	}

	if sk := values.Get("storage_key"); sk != "" {
		f.StorageKey = &sk
	}

	if rs := values.Get("reprocess_status"); rs != "" {
		f.ReprocessStatus = &rs
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.Title,
		&d.ContentType,
		&d.SizeBytes,
		&d.PageCount,
		&d.StorageKey,
		&d.ActiveGenerationID,
		&d.ReprocessStatus,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}
