// Package service implements the application use cases on top of the domain
// stores and the embedding infrastructure.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/domain/rag"
)

// DefaultTopK is how many context chunks are retrieved per question.
const DefaultTopK = 3

// NoMatchAnswer is returned when the vector index has nothing relevant.
const NoMatchAnswer = "No relevant documents found."

// Answer is the outcome of asking a question.
type Answer struct {
	text           string
	conversationID int64
	username       string
	sources        []string
}

// NewAnswer creates an Answer.
func NewAnswer(text string, conversationID int64, username string, sources []string) Answer {
	return Answer{
		text:           text,
		conversationID: conversationID,
		username:       username,
		sources:        sources,
	}
}

// Text returns the assistant's answer.
func (a Answer) Text() string { return a.text }

// ConversationID returns the conversation the exchange was recorded in.
func (a Answer) ConversationID() int64 { return a.conversationID }

// Username returns the asking user's email address.
func (a Answer) Username() string { return a.username }

// Sources returns the distinct source documents backing the answer.
func (a Answer) Sources() []string { return a.sources }

// Rag answers questions using retrieval-augmented generation and records the
// exchange as conversation history.
type Rag struct {
	users         chat.UserStore
	conversations chat.ConversationStore
	embedder      rag.BulkEmbedder
	index         rag.VectorIndex
	completer     rag.Completer
	topK          int
	logger        *slog.Logger
}

// RagOption configures a Rag service.
type RagOption func(*Rag)

// WithTopK sets how many context chunks are retrieved per question.
func WithTopK(k int) RagOption {
	return func(r *Rag) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithRagLogger sets the service logger.
func WithRagLogger(logger *slog.Logger) RagOption {
	return func(r *Rag) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRag creates a Rag service.
func NewRag(
	users chat.UserStore,
	conversations chat.ConversationStore,
	embedder rag.BulkEmbedder,
	index rag.VectorIndex,
	completer rag.Completer,
	opts ...RagOption,
) *Rag {
	r := &Rag{
		users:         users,
		conversations: conversations,
		embedder:      embedder,
		index:         index,
		completer:     completer,
		topK:          DefaultTopK,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ask answers a question for the given user. When conversationID is zero a
// new conversation is opened, titled with the question. Both the question and
// the answer are recorded as messages.
func (r *Rag) Ask(ctx context.Context, username, question string, conversationID int64) (Answer, error) {
	user, err := r.users.GetOrCreate(ctx, username)
	if err != nil {
		return Answer{}, fmt.Errorf("resolve user: %w", err)
	}

	var conversation chat.Conversation
	if conversationID == 0 {
		conversation, err = r.conversations.Create(ctx, chat.NewConversation(user.ID(), question))
	} else {
		conversation, err = r.conversations.Get(ctx, conversationID)
	}
	if err != nil {
		return Answer{}, err
	}

	if err := r.record(ctx, conversation.ID(), chat.RoleUser, question); err != nil {
		return Answer{}, err
	}

	vectors, err := r.embedder.EmbedAll(ctx, []string{question})
	if err != nil {
		return Answer{}, fmt.Errorf("embed question: %w", err)
	}

	matches, err := r.index.Query(ctx, vectors[0], r.topK)
	if err != nil {
		return Answer{}, fmt.Errorf("query index: %w", err)
	}

	if len(matches) == 0 {
		r.logger.InfoContext(ctx, "no matching documents", slog.String("username", username))
		if err := r.record(ctx, conversation.ID(), chat.RoleAssistant, NoMatchAnswer); err != nil {
			return Answer{}, err
		}
		return Answer{
			text:           NoMatchAnswer,
			conversationID: conversation.ID(),
			username:       username,
		}, nil
	}

	answer, err := r.completer.Complete(ctx, []rag.PromptMessage{
		rag.NewPromptMessage(string(chat.RoleUser), buildPrompt(question, matches)),
	})
	if err != nil {
		return Answer{}, fmt.Errorf("chat completion: %w", err)
	}

	if err := r.record(ctx, conversation.ID(), chat.RoleAssistant, answer); err != nil {
		return Answer{}, err
	}

	return Answer{
		text:           answer,
		conversationID: conversation.ID(),
		username:       username,
		sources:        distinctSources(matches),
	}, nil
}

func (r *Rag) record(ctx context.Context, conversationID int64, role chat.Role, content string) error {
	message, err := chat.NewMessage(conversationID, role, content)
	if err != nil {
		return err
	}
	if _, err := r.conversations.AddMessage(ctx, message); err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return nil
}

// buildPrompt stuffs the retrieved chunks into the completion prompt.
func buildPrompt(question string, matches []rag.Match) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text()
	}

	return fmt.Sprintf(`Based on the following context, answer the question:

Context: %s

Question: %s

Answer:`, strings.Join(texts, "\n"), question)
}

func distinctSources(matches []rag.Match) []string {
	seen := make(map[string]struct{}, len(matches))
	var sources []string
	for _, m := range matches {
		if m.Source() == "" {
			continue
		}
		if _, ok := seen[m.Source()]; ok {
			continue
		}
		seen[m.Source()] = struct{}{}
		sources = append(sources, m.Source())
	}
	return sources
}
