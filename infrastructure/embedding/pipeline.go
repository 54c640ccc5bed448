// Package embedding implements resilient batch embedding over an Embedder.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/sebastien-sq/ragserve/domain/rag"
	"github.com/sebastien-sq/ragserve/infrastructure/provider"
)

// Default pipeline parameters.
const (
	DefaultBatchSize   = 5
	DefaultDelay       = time.Second
	DefaultMaxAttempts = 3
)

// ErrBatchSizeExhausted indicates the service rejected a single-text batch as
// too large, so no further reduction is possible.
var ErrBatchSizeExhausted = errors.New("batch size cannot be reduced further")

// Pipeline embeds large text collections by splitting them into sequential
// batches, retrying rate-limited and transient failures, and shrinking the
// batch size when the service rejects a batch as too large.
//
// The pipeline is strictly sequential: batch k+1 is never sent before batch k
// has succeeded. A payload-too-large rejection halves the batch size and
// restarts the whole input from the beginning, so a successful run always
// returns exactly one vector per input text with no partial results.
type Pipeline struct {
	embedder    rag.Embedder
	logger      *slog.Logger
	batchSize   int
	delay       time.Duration
	maxAttempts int

	// Overridable in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithBatchSize sets the initial number of texts per batch.
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithDelay sets the base delay used between batches and as the backoff unit.
func WithDelay(d time.Duration) PipelineOption {
	return func(p *Pipeline) {
		if d >= 0 {
			p.delay = d
		}
	}
}

// WithMaxAttempts sets how many times a failing batch is attempted before the
// run is aborted.
func WithMaxAttempts(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a batch embedding pipeline over the given embedder.
func NewPipeline(embedder rag.Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		embedder:    embedder,
		logger:      slog.Default(),
		batchSize:   DefaultBatchSize,
		delay:       DefaultDelay,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
		jitter:      rand.Float64,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EmbedAll embeds every text, returning vectors in input order. An empty
// input returns an empty result without calling the service.
func (p *Pipeline) EmbedAll(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	size := p.batchSize
	for {
		vectors, err := p.runOnce(ctx, texts, size)
		if err == nil {
			return vectors, nil
		}

		if errors.Is(err, provider.ErrPayloadTooLarge) {
			if size <= 1 {
				return nil, fmt.Errorf("%w: %w", ErrBatchSizeExhausted, err)
			}
			size /= 2
			p.logger.WarnContext(ctx, "batch too large, halving and restarting",
				slog.Int("batch_size", size),
			)
			continue
		}

		return nil, err
	}
}

// runOnce embeds the full input at a fixed batch size. Any error discards the
// results accumulated so far.
func (p *Pipeline) runOnce(ctx context.Context, texts []string, size int) ([][]float64, error) {
	total := (len(texts) + size - 1) / size
	vectors := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += size {
		end := start + size
		if end > len(texts) {
			end = len(texts)
		}

		p.logger.DebugContext(ctx, "embedding batch",
			slog.Int("batch", start/size+1),
			slog.Int("total", total),
			slog.Int("texts", end-start),
		)

		batch, err := p.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)

		if end < len(texts) {
			if err := p.sleep(ctx, p.delay); err != nil {
				return nil, err
			}
		}
	}

	return vectors, nil
}

// embedBatch sends one batch, retrying rate-limited and transient failures up
// to maxAttempts. Payload-too-large errors are not retried here; the caller
// reacts by shrinking the batch size.
func (p *Pipeline) embedBatch(ctx context.Context, batch []string) ([][]float64, error) {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		vectors, err := p.embedder.EmbedBatch(ctx, batch)
		if err == nil {
			return vectors, nil
		}
		if errors.Is(err, provider.ErrPayloadTooLarge) {
			return nil, err
		}

		lastErr = err
		if attempt == p.maxAttempts {
			break
		}

		wait := p.backoff(err, attempt)
		p.logger.WarnContext(ctx, "embedding batch failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// backoff computes the wait before retry number attempt+1. Rate limits back
// off exponentially with up to one second of jitter; other failures back off
// linearly.
func (p *Pipeline) backoff(err error, attempt int) time.Duration {
	if errors.Is(err, provider.ErrRateLimited) {
		exp := time.Duration(float64(p.delay) * math.Pow(2, float64(attempt)))
		return exp + time.Duration(p.jitter()*float64(time.Second))
	}
	return p.delay * time.Duration(attempt)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
