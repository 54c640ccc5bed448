package rag

import "context"

// Embedder converts a batch of texts into embedding vectors in a single
// service call. Implementations must return exactly one vector per input, in
// input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// BulkEmbedder embeds arbitrarily large text collections, handling batching
// and retries internally. Same ordering guarantee as Embedder.
type BulkEmbedder interface {
	EmbedAll(ctx context.Context, texts []string) ([][]float64, error)
}

// Completer generates a chat completion from an ordered message history.
type Completer interface {
	Complete(ctx context.Context, messages []PromptMessage) (string, error)
}

// PromptMessage is one turn of a chat completion request.
type PromptMessage struct {
	role    string
	content string
}

// NewPromptMessage creates a prompt message.
func NewPromptMessage(role, content string) PromptMessage {
	return PromptMessage{role: role, content: content}
}

// Role returns the message role ("user", "assistant", "system").
func (m PromptMessage) Role() string { return m.role }

// Content returns the message text.
func (m PromptMessage) Content() string { return m.content }
