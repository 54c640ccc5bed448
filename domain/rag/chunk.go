// Package rag provides domain types for document retrieval.
package rag

// Chunk is a unit of text to be embedded, identified by its position in the
// source document's chunk sequence.
type Chunk struct {
	text   string
	source string
}

// NewChunk creates a chunk from its text and originating source name.
func NewChunk(text, source string) Chunk {
	return Chunk{text: text, source: source}
}

// Text returns the chunk's text.
func (c Chunk) Text() string { return c.text }

// Source returns the name of the document the chunk came from.
func (c Chunk) Source() string { return c.source }

// Texts extracts the text of each chunk, preserving order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}
	return texts
}

// Match is a retrieved chunk with its similarity score.
type Match struct {
	id         string
	text       string
	source     string
	similarity float64
}

// NewMatch creates a retrieval match.
func NewMatch(id, text, source string, similarity float64) Match {
	return Match{id: id, text: text, source: source, similarity: similarity}
}

// ID returns the stored record's identifier.
func (m Match) ID() string { return m.id }

// Text returns the matched chunk's text.
func (m Match) Text() string { return m.text }

// Source returns the matched chunk's originating document.
func (m Match) Source() string { return m.source }

// Similarity returns the cosine similarity to the query.
func (m Match) Similarity() float64 { return m.similarity }
