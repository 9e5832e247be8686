package push

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var (
	// ErrInvalidRecipient means the stored recipient can never receive messages.
	ErrInvalidRecipient = errors.New("push recipient is invalid or unregistered")
	// ErrProviderAuth means the provider rejected our credentials.
	ErrProviderAuth = errors.New("push provider rejected credentials")
)

// Notifier delivers a payload to a recipient (a Telegram chat id).
type Notifier interface {
	Send(ctx context.Context, recipient int64, p Payload) error
}

// NopNotifier drops every payload; used when no provider is configured.
type NopNotifier struct{}

func (NopNotifier) Send(context.Context, int64, Payload) error { return nil }

type messageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends payloads as HTML chat messages.
type TelegramNotifier struct {
	api messageSender
}

func NewTelegramNotifier(api messageSender) *TelegramNotifier {
	return &TelegramNotifier{api: api}
}

func (n *TelegramNotifier) Send(ctx context.Context, recipient int64, p Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(recipient, Render(p))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.api.Send(msg); err != nil {
		return Classify(err)
	}
	return nil
}

// Classify wraps provider errors with ErrInvalidRecipient or ErrProviderAuth
// when they match; other errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	code, description, ok := telegramError(err)
	if !ok {
		return err
	}
	lower := strings.ToLower(description)
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrProviderAuth, err)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	case code == http.StatusBadRequest && (strings.Contains(lower, "chat not found") ||
		strings.Contains(lower, "user not found") ||
		strings.Contains(lower, "peer_id_invalid")):
		return fmt.Errorf("%w: %v", ErrInvalidRecipient, err)
	default:
		return err
	}
}

func telegramError(err error) (int, string, bool) {
	var ptr *tgbotapi.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code, ptr.Message, true
	}
	var val tgbotapi.Error
	if errors.As(err, &val) {
		return val.Code, val.Message, true
	}
	return 0, "", false
}
