package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shared-planner/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpsertFromTelegram finds or creates a user based on TelegramID, updates basic
// profile info and points push notifications at chatID.
func (r *UserRepository) UpsertFromTelegram(ctx context.Context, telegramID, chatID int64, firstName, lastName, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{
			"first_name":   firstName,
			"last_name":    lastName,
			"username":     username,
			"push_chat_id": chatID,
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{
			TelegramID: &telegramID,
			FirstName:  firstName,
			LastName:   lastName,
			Username:   username,
			PushChatID: &chatID,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// ListByNotifyHour returns users with a push recipient who asked for a summary at hour.
func (r *UserRepository) ListByNotifyHour(ctx context.Context, hour int) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("notify_hour = ? AND push_chat_id IS NOT NULL", hour).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users by notify hour: %w", err)
	}
	return users, nil
}

// SetNotifyHour stores the summary hour; nil disables the summary.
func (r *UserRepository) SetNotifyHour(ctx context.Context, userID uint, hour *int) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("notify_hour", hour).Error; err != nil {
		return fmt.Errorf("set notify hour: %w", err)
	}
	return nil
}

// ClearPushChatID forgets the push recipient so later sends are skipped.
func (r *UserRepository) ClearPushChatID(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).
		Update("push_chat_id", nil).Error; err != nil {
		return fmt.Errorf("clear push recipient: %w", err)
	}
	return nil
}
