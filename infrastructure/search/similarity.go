// Package search implements the vector index and similarity ranking.
package search

import (
	"math"
	"sort"

	"github.com/sebastien-sq/ragserve/domain/rag"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 (opposite) and 1 (identical), or 0 when either
// vector has zero magnitude or the lengths differ.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	if magA == 0 || magB == 0 {
		return 0
	}

	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// TopKSimilar ranks the stored records against the query vector and returns
// the k best matches, highest similarity first.
func TopKSimilar(query []float64, records []rag.Record, k int) []rag.Match {
	if len(records) == 0 || k <= 0 {
		return []rag.Match{}
	}

	matches := make([]rag.Match, 0, len(records))
	for _, r := range records {
		similarity := CosineSimilarity(query, r.Embedding())
		matches = append(matches, rag.NewMatch(r.ID(), r.Text(), r.Source(), similarity))
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity() > matches[j].Similarity()
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k]
}
