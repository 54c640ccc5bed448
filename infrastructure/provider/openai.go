package provider

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sebastien-sq/ragserve/domain/rag"
	"github.com/sebastien-sq/ragserve/internal/config"
)

// OpenAIProvider implements embedding and chat completion against any
// OpenAI-compatible API (OpenAI, Mistral, local gateways) using the endpoint's
// base URL. Calls are one-shot: retry and batching policy belongs to the
// embedding pipeline, not the transport client.
type OpenAIProvider struct {
	client         *openai.Client
	embeddingModel string
	chatModel      string
}

// NewOpenAIProvider creates a provider from embedding and chat endpoint
// configurations. Both endpoints share the embedding endpoint's credentials
// when the chat endpoint has none of its own.
func NewOpenAIProvider(embedding, chat config.Endpoint) *OpenAIProvider {
	apiKey := embedding.APIKey()
	if chat.APIKey() != "" {
		apiKey = chat.APIKey()
	}

	cfg := openai.DefaultConfig(apiKey)
	if embedding.BaseURL() != "" {
		cfg.BaseURL = embedding.BaseURL()
	}
	if embedding.Timeout() > 0 {
		cfg.HTTPClient = &http.Client{Timeout: embedding.Timeout()}
	}

	return &OpenAIProvider{
		client:         openai.NewClientWithConfig(cfg),
		embeddingModel: embedding.Model(),
		chatModel:      chat.Model(),
	}
}

// EmbedBatch embeds the given texts in a single API call, returning one
// vector per input in input order.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: texts,
	})
	if err != nil {
		return nil, classify("embedding", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, NewProviderError(
			"embedding", 0,
			fmt.Sprintf("got %d vectors for %d texts", len(resp.Data), len(texts)),
			ErrEmptyResponse,
		)
	}

	embeddings := make([][]float64, len(resp.Data))
	for i, data := range resp.Data {
		embeddings[i] = make([]float64, len(data.Embedding))
		for j, v := range data.Embedding {
			embeddings[i][j] = float64(v)
		}
	}
	return embeddings, nil
}

// Complete generates a chat completion for the given message history.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []rag.PromptMessage) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.chatModel,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{
			Role:    m.Role(),
			Content: m.Content(),
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify("chat_completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError("chat_completion", 0, "no choices in response", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// Ensure OpenAIProvider implements the domain interfaces.
var (
	_ rag.Embedder  = (*OpenAIProvider)(nil)
	_ rag.Completer = (*OpenAIProvider)(nil)
)
