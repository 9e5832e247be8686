package service

import (
	"context"
	"errors"
	"log/slog"

	"shared-planner/internal/logger"
	"shared-planner/internal/metrics"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/repository"
)

// Delivery sends payloads to users and handles provider failures. A failed
// push never propagates to the caller.
type Delivery struct {
	users    *repository.UserRepository
	notifier push.Notifier
	logger   *slog.Logger
}

func NewDelivery(users *repository.UserRepository, notifier push.Notifier, log *slog.Logger) *Delivery {
	if notifier == nil {
		notifier = push.NopNotifier{}
	}
	return &Delivery{users: users, notifier: notifier, logger: logger.OrDiscard(log)}
}

// Deliver sends p to user. It reports whether the payload left the process.
func (d *Delivery) Deliver(ctx context.Context, user model.User, p push.Payload) bool {
	if user.PushChatID == nil {
		metrics.RecordNotification(p.Type(), "skipped")
		return false
	}

	err := d.notifier.Send(ctx, *user.PushChatID, p)
	switch {
	case err == nil:
		metrics.RecordNotification(p.Type(), "sent")
		return true
	case errors.Is(err, push.ErrInvalidRecipient):
		metrics.RecordNotification(p.Type(), "invalid_recipient")
		d.logger.Warn("push recipient rejected, clearing it", "user_id", user.ID, "type", p.Type(), "err", err)
		d.clearRecipient(ctx, user.ID)
	case errors.Is(err, push.ErrProviderAuth):
		metrics.RecordNotification(p.Type(), "provider_auth")
		d.logger.Error("push provider rejected credentials; check TELEGRAM_TOKEN", "user_id", user.ID, "type", p.Type(), "err", err)
		d.clearRecipient(ctx, user.ID)
	default:
		metrics.RecordNotification(p.Type(), "failed")
		d.logger.Warn("push failed", "user_id", user.ID, "type", p.Type(), "err", err)
	}
	return false
}

func (d *Delivery) clearRecipient(ctx context.Context, userID uint) {
	if err := d.users.ClearPushChatID(ctx, userID); err != nil {
		d.logger.Error("failed to clear push recipient", "user_id", userID, "err", err)
	}
}
