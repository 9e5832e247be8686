package push

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func TestEncodeDailySummary(t *testing.T) {
	raw, err := Encode(DailySummary{Hour: 8, TodayCount: 3, OverdueCount: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"daily_summary","hour":8,"todayCount":3,"overdueCount":1}`, string(raw))
}

func TestTelegramNotifierSends(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegramNotifier(sender)

	err := n.Send(context.Background(), 42, GroupTaskCompleted{TaskID: 1, GroupID: 2, CompletedByMemberID: 3, CompletedByName: "Ann", Title: "Trash"})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Ann")
	assert.Equal(t, tgbotapi.ModeHTML, sender.sent[0].ParseMode)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"blocked", &tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}, ErrInvalidRecipient},
		{"chat not found", &tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}, ErrInvalidRecipient},
		{"unauthorized", &tgbotapi.Error{Code: 401, Message: "Unauthorized"}, ErrProviderAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.err}
			err := NewTelegramNotifier(sender).Send(context.Background(), 1, DailySummary{})
			assert.True(t, errors.Is(err, tt.want))
		})
	}

	other := &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
	err := Classify(other)
	assert.False(t, errors.Is(err, ErrInvalidRecipient))
	assert.False(t, errors.Is(err, ErrProviderAuth))

	plain := errors.New("connection reset")
	assert.Same(t, plain, Classify(plain))
}

func TestSendHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &fakeSender{}
	err := NewTelegramNotifier(sender).Send(ctx, 1, DailySummary{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sender.sent)
}
