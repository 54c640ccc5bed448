// Package chunking splits documents into overlapping text chunks for
// embedding and retrieval.
package chunking

import (
	"fmt"
	"strings"

	"github.com/sebastien-sq/ragserve/domain/rag"
)

// Default splitter parameters, measured in runes.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
	DefaultMinSize = 20
)

// Splitter cuts a document into chunks of at most Size runes, carrying
// Overlap runes of trailing context into the next chunk. Chunks shorter than
// MinSize are dropped as noise.
//
// The split prefers line boundaries, falls back to whitespace boundaries for
// lines longer than Size, and to raw rune boundaries for unbroken runs.
type Splitter struct {
	size    int
	overlap int
	minSize int
}

// SplitterOption configures a Splitter.
type SplitterOption func(*Splitter)

// WithSize sets the maximum chunk size in runes.
func WithSize(n int) SplitterOption {
	return func(s *Splitter) {
		if n > 0 {
			s.size = n
		}
	}
}

// WithOverlap sets how many trailing runes carry over into the next chunk.
func WithOverlap(n int) SplitterOption {
	return func(s *Splitter) {
		if n >= 0 {
			s.overlap = n
		}
	}
}

// WithMinSize sets the minimum chunk size in runes; shorter chunks are
// discarded.
func WithMinSize(n int) SplitterOption {
	return func(s *Splitter) {
		if n >= 0 {
			s.minSize = n
		}
	}
}

// NewSplitter creates a splitter. It returns an error when the overlap is not
// smaller than the chunk size.
func NewSplitter(opts ...SplitterOption) (*Splitter, error) {
	s := &Splitter{
		size:    DefaultSize,
		overlap: DefaultOverlap,
		minSize: DefaultMinSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.overlap >= s.size {
		return nil, fmt.Errorf("overlap (%d) must be less than size (%d)", s.overlap, s.size)
	}
	return s, nil
}

// Split cuts text into chunks tagged with the given source name. Empty or
// whitespace-only input yields no chunks.
func (s *Splitter) Split(text, source string) []rag.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []rag.Chunk
	emit := func(piece string) {
		if len([]rune(strings.TrimSpace(piece))) >= s.minSize {
			chunks = append(chunks, rag.NewChunk(piece, source))
		}
	}

	var acc []string
	accRunes := 0

	for _, line := range splitLines(text) {
		lineRunes := len([]rune(line))

		if lineRunes > s.size {
			if accRunes > 0 {
				emit(strings.Join(acc, ""))
				acc, accRunes = nil, 0
			}
			for _, piece := range s.splitLongLine(line) {
				emit(piece)
			}
			continue
		}

		if accRunes+lineRunes > s.size && accRunes > 0 {
			emit(strings.Join(acc, ""))
			acc, accRunes = trailingOverlap(acc, s.overlap)
		}

		acc = append(acc, line)
		accRunes += lineRunes
	}

	if accRunes > 0 {
		emit(strings.Join(acc, ""))
	}

	return chunks
}

// splitLines splits text into lines keeping the trailing newline attached, so
// joining the pieces reproduces the original text.
func splitLines(text string) []string {
	var lines []string
	for len(text) > 0 {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:idx+1])
		text = text[idx+1:]
	}
	return lines
}

// trailingOverlap returns the trailing lines whose total rune count fits
// within the overlap budget, together with that count.
func trailingOverlap(lines []string, overlap int) ([]string, int) {
	if overlap == 0 {
		return nil, 0
	}
	total := 0
	start := len(lines)
	for i := len(lines) - 1; i >= 0; i-- {
		n := len([]rune(lines[i]))
		if total+n > overlap {
			break
		}
		total += n
		start = i
	}
	if start == len(lines) {
		return nil, 0
	}
	carried := make([]string, len(lines)-start)
	copy(carried, lines[start:])
	return carried, total
}

// splitLongLine splits an over-long line at whitespace boundaries, falling
// back to rune boundaries for unbroken runs longer than the chunk size.
func (s *Splitter) splitLongLine(line string) []string {
	words := strings.Fields(line)
	if len(words) <= 1 {
		return s.splitRunes(line)
	}

	var pieces []string
	var acc []string
	accRunes := 0

	for _, word := range words {
		wordRunes := len([]rune(word))

		if wordRunes > s.size {
			if accRunes > 0 {
				pieces = append(pieces, strings.Join(acc, " "))
				acc, accRunes = nil, 0
			}
			pieces = append(pieces, s.splitRunes(word)...)
			continue
		}

		// +1 for the joining space.
		if accRunes > 0 && accRunes+1+wordRunes > s.size {
			pieces = append(pieces, strings.Join(acc, " "))
			acc, accRunes = nil, 0
		}
		if accRunes > 0 {
			accRunes++
		}
		acc = append(acc, word)
		accRunes += wordRunes
	}

	if accRunes > 0 {
		pieces = append(pieces, strings.Join(acc, " "))
	}
	return pieces
}

// splitRunes cuts text into size-rune windows stepping by size-overlap.
func (s *Splitter) splitRunes(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	var pieces []string
	for start := 0; start < len(runes); start += step {
		end := start + s.size
		if end >= len(runes) {
			pieces = append(pieces, string(runes[start:]))
			break
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}
