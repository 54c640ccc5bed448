package persistence

import "github.com/sebastien-sq/ragserve/internal/database"

// AutoMigrate runs GORM auto migration for the chat models.
func AutoMigrate(db database.Database) error {
	return db.GORM().AutoMigrate(
		&UserModel{},
		&ConversationModel{},
		&MessageModel{},
	)
}
