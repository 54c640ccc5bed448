package chunking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitter_Empty(t *testing.T) {
	s, err := NewSplitter()
	require.NoError(t, err)

	require.Empty(t, s.Split("", "doc.txt"))
	require.Empty(t, s.Split("   \n\n  ", "doc.txt"))
}

func TestSplitter_SmallDocumentSingleChunk(t *testing.T) {
	s, err := NewSplitter(WithMinSize(0))
	require.NoError(t, err)

	text := "first line\nsecond line\n"
	chunks := s.Split(text, "doc.txt")
	require.Len(t, chunks, 1)
	require.Equal(t, text, chunks[0].Text())
	require.Equal(t, "doc.txt", chunks[0].Source())
}

func TestSplitter_LineAccumulationWithOverlap(t *testing.T) {
	s, err := NewSplitter(WithSize(100), WithOverlap(30), WithMinSize(0))
	require.NoError(t, err)

	line := strings.Repeat("x", 24) + "\n" // 25 runes per line
	text := strings.Repeat(line, 10)

	chunks := s.Split(text, "doc.txt")
	require.Greater(t, len(chunks), 1)

	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c.Text())), 100)
	}

	// Overlap: the second chunk starts with the last line of the first.
	first := splitLines(chunks[0].Text())
	require.True(t, strings.HasPrefix(chunks[1].Text(), first[len(first)-1]))
}

func TestSplitter_LongUnbrokenLine(t *testing.T) {
	s, err := NewSplitter(WithSize(50), WithOverlap(10), WithMinSize(0))
	require.NoError(t, err)

	text := strings.Repeat("a", 200)
	chunks := s.Split(text, "doc.txt")
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c.Text())), 50)
	}

	// Window step of size-overlap covers every rune of the input.
	require.Equal(t, 50, len([]rune(chunks[0].Text())))
}

func TestSplitter_LongLineWordBoundaries(t *testing.T) {
	s, err := NewSplitter(WithSize(30), WithOverlap(5), WithMinSize(0))
	require.NoError(t, err)

	text := strings.TrimSpace(strings.Repeat("word ", 30))
	chunks := s.Split(text, "doc.txt")
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c.Text())), 30)
		require.False(t, strings.HasPrefix(c.Text(), " "))
		require.False(t, strings.HasSuffix(c.Text(), " "))
	}
}

func TestSplitter_DropsShortChunks(t *testing.T) {
	s, err := NewSplitter(WithSize(100), WithOverlap(0), WithMinSize(20))
	require.NoError(t, err)

	chunks := s.Split("tiny\n", "doc.txt")
	require.Empty(t, chunks)
}

func TestSplitter_UnicodeRuneCounting(t *testing.T) {
	s, err := NewSplitter(WithSize(10), WithOverlap(2), WithMinSize(0))
	require.NoError(t, err)

	text := strings.Repeat("é", 25)
	chunks := s.Split(text, "doc.txt")
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c.Text())), 10)
		require.True(t, strings.HasPrefix(c.Text(), "é"))
	}
}

func TestNewSplitter_OverlapTooLarge(t *testing.T) {
	_, err := NewSplitter(WithSize(100), WithOverlap(100))
	require.Error(t, err)
}
