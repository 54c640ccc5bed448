package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/internal/database"
)

// ConversationStore implements chat.ConversationStore using GORM.
type ConversationStore struct {
	db database.Database
}

// NewConversationStore creates a new ConversationStore.
func NewConversationStore(db database.Database) ConversationStore {
	return ConversationStore{db: db}
}

// Create stores a new conversation.
func (s ConversationStore) Create(ctx context.Context, conversation chat.Conversation) (chat.Conversation, error) {
	model := conversationToModel(conversation)
	result := s.db.Session(ctx).Create(&model)
	if result.Error != nil {
		return chat.Conversation{}, fmt.Errorf("create conversation: %w", result.Error)
	}
	return conversationToDomain(model), nil
}

// Get returns the conversation with the given id.
func (s ConversationStore) Get(ctx context.Context, id int64) (chat.Conversation, error) {
	var model ConversationModel
	result := s.db.Session(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return chat.Conversation{}, fmt.Errorf("%w: conversation %d", database.ErrNotFound, id)
		}
		return chat.Conversation{}, fmt.Errorf("get conversation: %w", result.Error)
	}
	return conversationToDomain(model), nil
}

// ListByUser returns a user's conversations, newest first.
func (s ConversationStore) ListByUser(ctx context.Context, userID int64) ([]chat.Conversation, error) {
	var models []ConversationModel
	result := s.db.Session(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("list conversations: %w", result.Error)
	}

	conversations := make([]chat.Conversation, len(models))
	for i, m := range models {
		conversations[i] = conversationToDomain(m)
	}
	return conversations, nil
}

// Delete removes a conversation and all of its messages.
func (s ConversationStore) Delete(ctx context.Context, id int64) error {
	return s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", id).Delete(&MessageModel{}).Error; err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&ConversationModel{})
		if result.Error != nil {
			return fmt.Errorf("delete conversation: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: conversation %d", database.ErrNotFound, id)
		}
		return nil
	})
}

// AddMessage appends a message to a conversation and bumps the
// conversation's updated_at.
func (s ConversationStore) AddMessage(ctx context.Context, message chat.Message) (chat.Message, error) {
	model := messageToModel(message)
	err := s.db.Session(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		return tx.Model(&ConversationModel{}).
			Where("id = ?", message.ConversationID()).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		return chat.Message{}, err
	}
	return messageToDomain(model), nil
}

// Messages returns a conversation's messages, oldest first.
func (s ConversationStore) Messages(ctx context.Context, conversationID int64) ([]chat.Message, error) {
	var models []MessageModel
	result := s.db.Session(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("list messages: %w", result.Error)
	}

	messages := make([]chat.Message, len(models))
	for i, m := range models {
		messages[i] = messageToDomain(m)
	}
	return messages, nil
}

func conversationToDomain(m ConversationModel) chat.Conversation {
	return chat.RestoreConversation(m.ID, m.UserID, m.Title, m.CreatedAt, m.UpdatedAt)
}

func conversationToModel(c chat.Conversation) ConversationModel {
	return ConversationModel{
		ID:        c.ID(),
		UserID:    c.UserID(),
		Title:     c.Title(),
		CreatedAt: c.CreatedAt(),
		UpdatedAt: c.UpdatedAt(),
	}
}

func messageToDomain(m MessageModel) chat.Message {
	return chat.RestoreMessage(m.ID, m.ConversationID, chat.Role(m.Role), m.Content, m.CreatedAt)
}

func messageToModel(m chat.Message) MessageModel {
	return MessageModel{
		ID:             m.ID(),
		ConversationID: m.ConversationID(),
		Role:           string(m.Role()),
		Content:        m.Content(),
		CreatedAt:      m.CreatedAt(),
	}
}
