// Package persistence implements the domain stores using GORM.
package persistence

import "time"

// UserModel represents a user account in the database.
type UserModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Username   string    `gorm:"column:username;uniqueIndex;size:255"`
	AuthUserID *string   `gorm:"column:auth_user_id;index;size:64"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (UserModel) TableName() string {
	return "users"
}

// ConversationModel represents a conversation in the database.
type ConversationModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;index"`
	Title     string    `gorm:"column:title;size:255"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName returns the table name.
func (ConversationModel) TableName() string {
	return "conversations"
}

// MessageModel represents a conversation message in the database.
type MessageModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ConversationID int64     `gorm:"column:conversation_id;index"`
	Role           string    `gorm:"column:role;size:32"`
	Content        string    `gorm:"column:content;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

// TableName returns the table name.
func (MessageModel) TableName() string {
	return "messages"
}
