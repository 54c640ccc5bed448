package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/sebastien-sq/ragserve/domain/chat"
	"github.com/sebastien-sq/ragserve/internal/database"
)

// UserStore implements chat.UserStore using GORM.
type UserStore struct {
	db database.Database
}

// NewUserStore creates a new UserStore.
func NewUserStore(db database.Database) UserStore {
	return UserStore{db: db}
}

// GetOrCreate returns the user with the given username, creating it if it
// does not exist.
func (s UserStore) GetOrCreate(ctx context.Context, username string) (chat.User, error) {
	user, err := s.GetByUsername(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return chat.User{}, err
	}

	created, err := chat.NewUser(username)
	if err != nil {
		return chat.User{}, err
	}
	return s.Save(ctx, created)
}

// GetByUsername returns the user with the given username.
func (s UserStore) GetByUsername(ctx context.Context, username string) (chat.User, error) {
	var model UserModel
	result := s.db.Session(ctx).Where("username = ?", username).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return chat.User{}, fmt.Errorf("%w: user %s", database.ErrNotFound, username)
		}
		return chat.User{}, fmt.Errorf("get user: %w", result.Error)
	}
	return userToDomain(model), nil
}

// Save creates or updates a user.
func (s UserStore) Save(ctx context.Context, user chat.User) (chat.User, error) {
	model := userToModel(user)

	var result *gorm.DB
	if user.ID() == 0 {
		result = s.db.Session(ctx).Create(&model)
	} else {
		result = s.db.Session(ctx).Save(&model)
	}
	if result.Error != nil {
		return chat.User{}, fmt.Errorf("save user: %w", result.Error)
	}
	return userToDomain(model), nil
}

func userToDomain(m UserModel) chat.User {
	authUserID := ""
	if m.AuthUserID != nil {
		authUserID = *m.AuthUserID
	}
	return chat.RestoreUser(m.ID, m.Username, authUserID, m.CreatedAt)
}

func userToModel(u chat.User) UserModel {
	model := UserModel{
		ID:        u.ID(),
		Username:  u.Username(),
		CreatedAt: u.CreatedAt(),
	}
	if id := u.AuthUserID(); id != "" {
		model.AuthUserID = &id
	}
	return model
}
