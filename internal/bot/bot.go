// Package bot is the Telegram front end of the planner.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/service"
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

const (
	menuLabelNewTask   = "➕ Новая задача"
	menuLabelToday     = "📋 Задачи"
	menuLabelTemplates = "♻️ Шаблоны"
	menuLabelHelp      = "ℹ️ Помощь"
)

// listDays is how far ahead /tasks looks, today included.
const listDays = 7

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	svc           *service.Services
	log           *slog.Logger
	conversations map[int64]*conversationState
	mu            sync.Mutex
}

func New(api *tgbotapi.BotAPI, svc *service.Services, log *slog.Logger) *Bot {
	return &Bot{
		api:           api,
		svc:           svc,
		log:           logger.OrDiscard(log).With("component", "bot"),
		conversations: make(map[int64]*conversationState),
	}
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates", "account", b.api.Self.UserName)

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.log.Error("handle callback", "err", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.log.Error("handle message", "err", err)
			}
		}
	}

	return ctx.Err()
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Диалог отменён. Можно начать заново.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.log.Info("command", "tg_user", msg.From.ID, "command", msg.Command(), "args", msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if b.hasConversation(msg.From.ID) {
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "Я пока не понял сообщение. Набери /newtask, чтобы добавить задачу, или /help для списка команд.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "tasks", "today":
		return b.handleListTasks(ctx, msg)
	case "templates":
		return b.handleTemplates(ctx, msg)
	case "newtask":
		return b.startNewTaskConversation(ctx, msg)
	case "complete":
		return b.handleComplete(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "generate":
		return b.handleGenerate(ctx, msg)
	case "notify":
		return b.handleNotify(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Диалог отменён.")
	default:
		return b.sendText(msg.Chat.ID, "Команда не поддерживается. Загляни в /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From, msg.Chat.ID); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "друг"
	}

	text := fmt.Sprintf(
		"👋 Привет, %s!\n<b>Я планировщик: веду личные и общие задачи, в том числе повторяющиеся.</b>\n\nКоманды:\n"+
			"• /newtask — добавить задачу или шаблон\n"+
			"• /tasks — задачи на неделю\n"+
			"• /templates — повторяющиеся шаблоны\n"+
			"• /complete &lt;id&gt; — отметить задачу выполненной\n"+
			"• /notify &lt;час&gt; — когда присылать сводку\n"+
			"• /help — подсказки",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Подсказки</b>\n" +
		"• /newtask — создать задачу пошагово: разовую или с повтором\n" +
		"• /tasks — задачи на 7 дней, кнопкой можно закрыть задачу\n" +
		"• /templates — список активных шаблонов\n" +
		"• /complete &lt;id&gt; — отметить задачу по номеру (например, /complete 3)\n" +
		"• /delete &lt;id&gt; — удалить задачу\n" +
		"• /generate — догенерировать задачи по шаблонам\n" +
		"• /notify &lt;0–23&gt; — час ежедневной сводки, /notify off — отключить\n" +
		"• /report — прислать сводку сейчас\n" +
		"• /cancel — отменить текущий ввод"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleTemplates(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	templates, err := b.svc.Templates.List(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, b.userMessage(err))
	}
	return b.sendText(msg.Chat.ID, formatTemplates(templates))
}

func (b *Bot) handleComplete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /complete 12")
	}
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	return b.completeTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseIDArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи ID задачи: /delete 12")
	}
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	return b.deleteTask(ctx, msg.Chat.ID, user, taskID)
}

func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	created, err := b.svc.Generation.GenerateUserTasks(ctx, user.ID)
	if err != nil {
		return b.sendText(msg.Chat.ID, b.userMessage(err))
	}
	if created == 0 {
		return b.sendText(msg.Chat.ID, "Все задачи на ближайшие дни уже созданы.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("♻️ Создано задач: %d", created))
}

func (b *Bot) handleNotify(ctx context.Context, msg *tgbotapi.Message) error {
	hour, off, err := parseHourArg(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Укажи час от 0 до 23, например /notify 9, или /notify off.")
	}
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	if off {
		if err := b.svc.Users.SetNotifyHour(ctx, user.ID, nil); err != nil {
			return err
		}
		return b.sendText(msg.Chat.ID, "🔕 Ежедневная сводка отключена.")
	}
	if err := b.svc.Users.SetNotifyHour(ctx, user.ID, &hour); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Сводка будет приходить каждый день в %02d:00.", hour))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}
	hour := b.svc.Calendar.Now().In(b.svc.Calendar.Location).Hour()
	summary, err := b.svc.Reminders.DailySummary(ctx, *user, hour)
	if err != nil {
		return b.sendText(msg.Chat.ID, b.userMessage(err))
	}
	return b.sendText(msg.Chat.ID, push.Render(summary))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", "err", err)
	}

	var action func(context.Context, int64, *model.User, uint) error
	var prefix string
	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		action, prefix = b.completeTask, cbCompletePrefix
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		action, prefix = b.deleteTask, cbDeletePrefix
	default:
		return nil
	}

	taskID, err := parseIDArg(strings.TrimPrefix(cb.Data, prefix))
	if err != nil {
		return nil
	}
	b.log.Info("callback", "tg_user", cb.From.ID, "data", cb.Data)
	user, err := b.ensureUser(ctx, cb.From, cb.Message.Chat.ID)
	if err != nil {
		return err
	}
	return action(ctx, cb.Message.Chat.ID, user, taskID)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.svc.Tasks.Complete(ctx, user.ID, taskID, b.svc.Calendar.Now())
	if err != nil {
		return b.sendText(chatID, b.userMessage(err))
	}
	b.log.Info("task completed", "task_id", task.ID, "user_id", user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("✅ Задача «%s» выполнена.", escape(normalizeTitle(task.Title)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	if err := b.svc.Tasks.Delete(ctx, user.ID, taskID); err != nil {
		return b.sendText(chatID, b.userMessage(err))
	}
	b.log.Info("task deleted", "task_id", taskID, "user_id", user.ID)
	return b.sendText(chatID, fmt.Sprintf("🗑 Задача #%d удалена.", taskID))
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	window := recurrence.HorizonWindow(b.svc.Calendar.Today(), listDays-1)
	entries, err := b.svc.Views.View(ctx, user.ID, window)
	if err != nil {
		return b.sendText(chatID, b.userMessage(err))
	}

	msg := tgbotapi.NewMessage(chatID, formatEntries(entries, window))
	msg.ParseMode = tgbotapi.ModeHTML
	if kb, ok := completeKeyboard(entries); ok {
		msg.ReplyMarkup = kb
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelNewTask):
		return true, b.startNewTaskConversation(ctx, msg)
	case strings.ToLower(menuLabelToday):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelTemplates):
		return true, b.handleTemplates(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

// ensureUser registers the sender and points notifications at this chat.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User, chatID int64) (*model.User, error) {
	return b.svc.Users.UpsertFromTelegram(ctx, from.ID, chatID, from.FirstName, from.LastName, from.UserName)
}

// userMessage turns a service error into chat text; internal failures are logged.
func (b *Bot) userMessage(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "Не найдено: " + escape(apperr.PublicMessage(err))
	case apperr.KindPermissionDenied:
		return "⛔️ Нет доступа."
	case apperr.KindInvalidArgument:
		return "Не получилось: " + escape(apperr.PublicMessage(err))
	case apperr.KindUnauthenticated:
		return "Сначала набери /start."
	default:
		b.log.Error("request failed", "err", err)
		return "Что-то пошло не так, попробуй позже."
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

var errBadArg = errors.New("bad argument")

func parseIDArg(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadArg
	}
	return uint(id), nil
}

// parseHourArg accepts 0..23 or "off".
func parseHourArg(raw string) (hour int, off bool, err error) {
	value := strings.TrimSpace(strings.ToLower(raw))
	if value == "off" || value == "выкл" {
		return 0, true, nil
	}
	hour, err = strconv.Atoi(value)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false, errBadArg
	}
	return hour, false, nil
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTemplates),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}
