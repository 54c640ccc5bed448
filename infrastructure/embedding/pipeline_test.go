package embedding

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sebastien-sq/ragserve/infrastructure/provider"
)

// stubEmbedder records every batch it receives and answers via fn.
type stubEmbedder struct {
	calls   int
	batches [][]string
	fn      func(call int, texts []string) ([][]float64, error)
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	s.calls++
	batch := make([]string, len(texts))
	copy(batch, texts)
	s.batches = append(s.batches, batch)
	return s.fn(s.calls, texts)
}

// echoVectors returns one distinct vector per text so ordering is checkable.
func echoVectors(texts []string) [][]float64 {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i] = []float64{float64(len(text))}
	}
	return out
}

// sleepRecorder replaces the pipeline's sleep with an instant no-op that
// records requested durations.
func sleepRecorder(p *Pipeline) *[]time.Duration {
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	p.jitter = func() float64 { return 0 }
	return &waits
}

func inputTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%03d", i)
	}
	return texts
}

func TestPipeline_BatchCount(t *testing.T) {
	stub := &stubEmbedder{fn: func(_ int, texts []string) ([][]float64, error) {
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(5))
	sleepRecorder(p)

	texts := inputTexts(12)
	vectors, err := p.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 12)
	require.Equal(t, 3, stub.calls, "12 texts at batch size 5 is 3 batches")
	require.Equal(t, []string{"text-000", "text-001", "text-002", "text-003", "text-004"}, stub.batches[0])
	require.Equal(t, []string{"text-010", "text-011"}, stub.batches[2])
}

func TestPipeline_EmptyInput(t *testing.T) {
	stub := &stubEmbedder{fn: func(_ int, texts []string) ([][]float64, error) {
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub)
	sleepRecorder(p)

	vectors, err := p.EmbedAll(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
	require.Zero(t, stub.calls, "empty input must not hit the service")
}

func TestPipeline_InterBatchDelay(t *testing.T) {
	stub := &stubEmbedder{fn: func(_ int, texts []string) ([][]float64, error) {
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(5), WithDelay(time.Second))
	waits := sleepRecorder(p)

	_, err := p.EmbedAll(context.Background(), inputTexts(15))
	require.NoError(t, err)
	require.Equal(t, 3, stub.calls)
	// Two pauses between three batches, none after the last.
	require.Equal(t, []time.Duration{time.Second, time.Second}, *waits)
}

func TestPipeline_RateLimitRetriesThenSucceeds(t *testing.T) {
	stub := &stubEmbedder{fn: func(call int, texts []string) ([][]float64, error) {
		if call <= 2 {
			return nil, fmt.Errorf("%w: slow down", provider.ErrRateLimited)
		}
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(5), WithDelay(time.Second))
	waits := sleepRecorder(p)

	vectors, err := p.EmbedAll(context.Background(), inputTexts(3))
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	require.Equal(t, 3, stub.calls)
	// Exponential backoff: delay*2 after the first failure, delay*4 after
	// the second (jitter pinned to zero).
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *waits)
}

func TestPipeline_RateLimitExhaustsAttempts(t *testing.T) {
	stub := &stubEmbedder{fn: func(_ int, _ []string) ([][]float64, error) {
		return nil, fmt.Errorf("%w: slow down", provider.ErrRateLimited)
	}}
	p := NewPipeline(stub, WithBatchSize(5))
	sleepRecorder(p)

	_, err := p.EmbedAll(context.Background(), inputTexts(3))
	require.Error(t, err)
	require.ErrorIs(t, err, provider.ErrRateLimited)
	require.Equal(t, 3, stub.calls, "a persistently rate-limited batch is attempted exactly maxAttempts times")
}

func TestPipeline_TransientErrorLinearBackoff(t *testing.T) {
	stub := &stubEmbedder{fn: func(call int, texts []string) ([][]float64, error) {
		if call == 1 {
			return nil, fmt.Errorf("connection reset")
		}
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(5), WithDelay(time.Second))
	waits := sleepRecorder(p)

	vectors, err := p.EmbedAll(context.Background(), inputTexts(2))
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	require.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestPipeline_PayloadTooLargeHalvesAndRestarts(t *testing.T) {
	// Reject any batch larger than 2 texts; the pipeline must halve from 5
	// to 2 and re-embed the entire input from the beginning.
	stub := &stubEmbedder{fn: func(_ int, texts []string) ([][]float64, error) {
		if len(texts) > 2 {
			return nil, fmt.Errorf("%w: too many tokens", provider.ErrPayloadTooLarge)
		}
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(5))
	sleepRecorder(p)

	texts := inputTexts(6)
	vectors, err := p.EmbedAll(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 6)

	// One rejected call at size 5, then ceil(6/2) = 3 calls at size 2.
	require.Equal(t, 4, stub.calls)
	require.Len(t, stub.batches[0], 5)
	require.Equal(t, []string{"text-000", "text-001"}, stub.batches[1], "restart must re-send the first texts")
	require.Equal(t, []string{"text-004", "text-005"}, stub.batches[3])
}

func TestPipeline_PayloadTooLargeNoPartialResults(t *testing.T) {
	// First batch of the size-4 run succeeds, the second is rejected. The
	// accumulated vectors must be discarded and everything re-embedded.
	rejected := false
	stub := &stubEmbedder{fn: func(_ int, texts []string) ([][]float64, error) {
		if len(texts) == 4 {
			if rejected {
				return nil, fmt.Errorf("%w: too many tokens", provider.ErrPayloadTooLarge)
			}
			rejected = true
		}
		return echoVectors(texts), nil
	}}
	p := NewPipeline(stub, WithBatchSize(4))
	sleepRecorder(p)

	vectors, err := p.EmbedAll(context.Background(), inputTexts(8))
	require.NoError(t, err)
	require.Len(t, vectors, 8)
	require.Equal(t, []string{"text-000", "text-001"}, stub.batches[2], "restart begins at the first text")
}

func TestPipeline_PayloadTooLargeAtMinimumSize(t *testing.T) {
	stub := &stubEmbedder{fn: func(_ int, _ []string) ([][]float64, error) {
		return nil, fmt.Errorf("%w: too many tokens", provider.ErrPayloadTooLarge)
	}}
	p := NewPipeline(stub, WithBatchSize(1))
	sleepRecorder(p)

	_, err := p.EmbedAll(context.Background(), inputTexts(2))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrBatchSizeExhausted)
	require.ErrorIs(t, err, provider.ErrPayloadTooLarge)
	require.Equal(t, 1, stub.calls)
}

func TestPipeline_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stub := &stubEmbedder{fn: func(_ int, _ []string) ([][]float64, error) {
		cancel()
		return nil, fmt.Errorf("%w: slow down", provider.ErrRateLimited)
	}}
	p := NewPipeline(stub, WithBatchSize(5))

	_, err := p.EmbedAll(ctx, inputTexts(2))
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, stub.calls)
}
