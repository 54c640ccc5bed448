package rag

import "context"

// Record is an embedding vector stored in the vector index together with its
// originating text and source metadata.
type Record struct {
	id        string
	embedding []float64
	text      string
	source    string
}

// NewRecord creates a vector index record. The embedding is copied.
func NewRecord(id string, embedding []float64, text, source string) Record {
	vec := make([]float64, len(embedding))
	copy(vec, embedding)
	return Record{id: id, embedding: vec, text: text, source: source}
}

// ID returns the record identifier.
func (r Record) ID() string { return r.id }

// Embedding returns the embedding vector (copy).
func (r Record) Embedding() []float64 {
	vec := make([]float64, len(r.embedding))
	copy(vec, r.embedding)
	return vec
}

// Text returns the embedded text.
func (r Record) Text() string { return r.text }

// Source returns the originating document name.
func (r Record) Source() string { return r.source }

// VectorIndex stores embedding records and answers top-k similarity queries.
type VectorIndex interface {
	// Upsert inserts or replaces records by id.
	Upsert(ctx context.Context, records []Record) error

	// Query returns the topK records most similar to the query vector,
	// highest similarity first.
	Query(ctx context.Context, embedding []float64, topK int) ([]Match, error)

	// Reset removes all records from the index.
	Reset(ctx context.Context) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)
}
