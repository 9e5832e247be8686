package model

import "time"

// User is a planner account. PushChatID is the Telegram chat that receives
// notifications; it is cleared when the provider rejects it.
type User struct {
	ID         uint   `gorm:"primaryKey"`
	TelegramID *int64 `gorm:"uniqueIndex"`
	FirstName  string
	LastName   string
	Username   string
	NotifyHour *int `gorm:"index"`
	PushChatID *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (u User) DisplayName() string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	default:
		return "user"
	}
}
