package segments

import (
	"encoding/binary"
	"math"
	"net/url"

	"github.com/google/uuid"

	"github.com/stillharbor/anchorage/pkg/query"
	"github.com/stillharbor/anchorage/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "segments", "s").
	Project("id", "ID").
	Project("generation_id", "GenerationID").
	Project("document_id", "DocumentID").
	Project("sequence_index", "SequenceIndex").
	Project("start_offset", "StartOffset").
	Project("end_offset", "EndOffset").
	Project("content", "Content").
	Project("embedding", "Embedding").
	Project("created_at", "CreatedAt")

var defaultSort = query.SortField{
	Field: "SequenceIndex",
}

// Filters contains optional filtering criteria for segment queries.
type Filters struct {
	GenerationID *uuid.UUID `json:"generation_id,omitempty"`
	DocumentID   *uuid.UUID `json:"document_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("GenerationID", f.GenerationID).
		WhereEquals("DocumentID", f.DocumentID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if g := values.Get("generation_id"); g != "" {
		if id, err := uuid.Parse(g); err == nil {
			f.GenerationID = &id
		}
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	return f
}

func scanSegment(s repository.Scanner) (Segment, error) {
	var (
		seg Segment
		raw []byte
	)
	err := s.Scan(
		&seg.ID,
		&seg.GenerationID,
		&seg.DocumentID,
		&seg.SequenceIndex,
		&seg.StartOffset,
		&seg.EndOffset,
		&seg.Content,
		&raw,
		&seg.CreatedAt,
	)
	if err != nil {
		return seg, err
	}
	seg.Embedding = decodeEmbedding(raw)
	return seg, nil
}

func scanGeneration(s repository.Scanner) (Generation, error) {
	var g Generation
	err := s.Scan(
		&g.ID,
		&g.DocumentID,
		&g.Status,
		&g.TextBody,
		&g.SegmentCount,
		&g.CreatedAt,
		&g.ActivatedAt,
	)
	return g, err
}

// encodeEmbedding packs a vector as little-endian float32 bytes for bytea
// storage. Nil vectors encode as nil (stored NULL).
func encodeEmbedding(vec []float32) []byte {
	if vec == nil {
		return nil
	}
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(raw []byte) []float32 {
	if len(raw) == 0 || len(raw)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
