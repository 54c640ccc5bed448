package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sebastien-sq/ragserve/domain/rag"
	"github.com/sebastien-sq/ragserve/infrastructure/chunking"
	"github.com/sebastien-sq/ragserve/infrastructure/loader"
)

// ErrNoContent indicates the document yielded no indexable text.
var ErrNoContent = errors.New("document contains no indexable text")

// IngestResult summarizes one ingested document.
type IngestResult struct {
	source     string
	chunkCount int
}

// NewIngestResult creates an IngestResult.
func NewIngestResult(source string, chunkCount int) IngestResult {
	return IngestResult{source: source, chunkCount: chunkCount}
}

// Source returns the ingested document's name.
func (r IngestResult) Source() string { return r.source }

// ChunkCount returns how many chunks were indexed.
func (r IngestResult) ChunkCount() int { return r.chunkCount }

// Ingest turns uploaded documents into indexed embeddings: extract text,
// split into chunks, embed through the batch pipeline, upsert into the
// vector index.
type Ingest struct {
	splitter *chunking.Splitter
	embedder rag.BulkEmbedder
	index    rag.VectorIndex
	logger   *slog.Logger
}

// NewIngest creates an Ingest service.
func NewIngest(splitter *chunking.Splitter, embedder rag.BulkEmbedder, index rag.VectorIndex, logger *slog.Logger) *Ingest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingest{
		splitter: splitter,
		embedder: embedder,
		index:    index,
		logger:   logger,
	}
}

// Document ingests one document given its filename and raw bytes. Chunk ids
// are derived from the source name and chunk position, so re-ingesting the
// same document replaces its previous records.
func (s *Ingest) Document(ctx context.Context, filename string, data []byte) (IngestResult, error) {
	text, err := loader.Extract(filename, data)
	if err != nil {
		return IngestResult{}, fmt.Errorf("extract %s: %w", filename, err)
	}

	chunks := s.splitter.Split(text, filename)
	if len(chunks) == 0 {
		return IngestResult{}, fmt.Errorf("%w: %s", ErrNoContent, filename)
	}

	s.logger.InfoContext(ctx, "embedding document",
		slog.String("source", filename),
		slog.Int("chunks", len(chunks)),
	)

	vectors, err := s.embedder.EmbedAll(ctx, rag.Texts(chunks))
	if err != nil {
		return IngestResult{}, fmt.Errorf("embed %s: %w", filename, err)
	}

	records := make([]rag.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = rag.NewRecord(
			fmt.Sprintf("%s:%d", filename, i),
			vectors[i],
			chunk.Text(),
			chunk.Source(),
		)
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return IngestResult{}, fmt.Errorf("index %s: %w", filename, err)
	}

	s.logger.InfoContext(ctx, "document indexed",
		slog.String("source", filename),
		slog.Int("chunks", len(records)),
	)

	return IngestResult{source: filename, chunkCount: len(records)}, nil
}

// ClearIndex removes every record from the vector index.
func (s *Ingest) ClearIndex(ctx context.Context) error {
	if err := s.index.Reset(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	return nil
}
