package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shared-planner/internal/recurrence"
	"shared-planner/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageDescription
	stageRule
	stageRuleParam
	stageGated
	stageStart
)

const (
	btnSkip         = "⏭️ Пропустить"
	btnYes          = "Да"
	btnNo           = "Нет"
	btnCancelDialog = "⏪ Отменить ввод"

	btnOnce     = "Разово"
	btnDaily    = "Каждый день"
	btnWeekly   = "По дням недели"
	btnInterval = "Каждые N дней"
	btnMonthly  = "Раз в месяц"
	btnLastDay  = "В последний день месяца"
)

type conversationState struct {
	stage conversationStage
	input service.TemplateInput
}

func (b *Bot) startNewTaskConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From, msg.Chat.ID); err != nil {
		return err
	}
	b.log.Info("start new task conversation", "tg_user", msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTitle})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 Создаём новую задачу.\n<b>Шаг 1:</b> как её назвать?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTitle:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Название не может быть пустым.", cancelKeyboard())
		}
		state.input.Title = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Добавь короткое описание (или нажми «Пропустить»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		state.stage = stageRule
		return b.sendWithReplyMarkup(msg.Chat.ID, "🔁 Как часто повторять?", ruleKeyboard())
	case stageRule:
		kind, ok := ruleKindFromLabel(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Выбери вариант на клавиатуре.", ruleKeyboard())
		}
		state.input.Rule = recurrence.Doc{Kind: kind}
		if prompt, needsParam := ruleParamPrompt(kind); needsParam {
			state.stage = stageRuleParam
			return b.sendWithReplyMarkup(msg.Chat.ID, prompt, cancelKeyboard())
		}
		state.stage = stageStart
		return b.askStartDate(msg.Chat.ID)
	case stageRuleParam:
		doc, err := applyRuleParam(state.input.Rule, text)
		if err != nil {
			return b.sendWithReplyMarkup(msg.Chat.ID, escape(err.Error()), cancelKeyboard())
		}
		state.input.Rule = doc
		if doc.Kind == recurrence.KindInterval {
			state.stage = stageGated
			return b.sendWithReplyMarkup(msg.Chat.ID, "⏳ Отсчитывать следующий раз от дня выполнения?", yesNoKeyboard())
		}
		state.stage = stageStart
		return b.askStartDate(msg.Chat.ID)
	case stageGated:
		yes, ok := parseYesNo(text)
		if !ok {
			return b.sendWithReplyMarkup(msg.Chat.ID, "Нажми «Да» или «Нет».", yesNoKeyboard())
		}
		state.input.Rule.CompletionGated = yes
		state.stage = stageStart
		return b.askStartDate(msg.Chat.ID)
	case stageStart:
		if !isSkipInput(text) {
			start, err := recurrence.ParseDate(text)
			if err != nil {
				return b.sendWithReplyMarkup(msg.Chat.ID, "Не могу распознать дату. Используй формат <code>2025-11-30</code> или «Пропустить».", skipKeyboard())
			}
			state.input.StartDate = start
		}
		err := b.finishTemplateCreation(ctx, msg, state.input)
		b.clearConversation(msg.From.ID)
		return err
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Диалог сброшен. Попробуй ещё раз через /newtask.")
	}
}

func (b *Bot) askStartDate(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "📆 С какой даты начать? Формат <code>2025-11-30</code>, «Пропустить» — с сегодняшнего дня.", skipKeyboard())
}

func (b *Bot) finishTemplateCreation(ctx context.Context, msg *tgbotapi.Message, input service.TemplateInput) error {
	user, err := b.ensureUser(ctx, msg.From, msg.Chat.ID)
	if err != nil {
		return err
	}

	tpl, err := b.svc.Templates.Create(ctx, user.ID, input)
	if err != nil {
		return b.sendText(msg.Chat.ID, b.userMessage(err))
	}
	b.log.Info("template created", "template_id", tpl.ID, "user_id", user.ID, "kind", tpl.Rule.Kind)

	var summary strings.Builder
	summary.WriteString("✅ <b>Задача сохранена</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>Название:</b> %s\n", escape(normalizeTitle(tpl.Title))))
	if tpl.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Описание:</b> %s\n", escape(tpl.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Повтор:</b> %s\n", describeRule(tpl.Rule)))
	summary.WriteString(fmt.Sprintf("• <b>Начало:</b> %s\n", tpl.StartDate))

	if err := b.sendText(msg.Chat.ID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func ruleKindFromLabel(text string) (recurrence.Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case strings.ToLower(btnOnce):
		return recurrence.KindNone, true
	case strings.ToLower(btnDaily):
		return recurrence.KindDaily, true
	case strings.ToLower(btnWeekly):
		return recurrence.KindWeekly, true
	case strings.ToLower(btnInterval):
		return recurrence.KindInterval, true
	case strings.ToLower(btnMonthly):
		return recurrence.KindMonthlyDay, true
	case strings.ToLower(btnLastDay):
		return recurrence.KindMonthlyLastDay, true
	default:
		return "", false
	}
}

func ruleParamPrompt(kind recurrence.Kind) (string, bool) {
	switch kind {
	case recurrence.KindWeekly:
		return "📅 В какие дни недели? Например: <code>пн, ср, пт</code>", true
	case recurrence.KindInterval:
		return "🔢 Раз в сколько дней? (1–365)", true
	case recurrence.KindMonthlyDay:
		return "📆 Какого числа? (1–31). Числа после 28-го сдвигаются на 28-е, чтобы задача была в каждом месяце.", true
	default:
		return "", false
	}
}

// applyRuleParam fills the kind-specific field of doc from user input.
func applyRuleParam(doc recurrence.Doc, text string) (recurrence.Doc, error) {
	switch doc.Kind {
	case recurrence.KindWeekly:
		days, err := parseWeekdays(text)
		if err != nil {
			return doc, err
		}
		doc.Weekdays = days
	case recurrence.KindInterval:
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || n < 1 || n > 365 {
			return doc, errors.New("Интервал должен быть числом от 1 до 365.")
		}
		doc.Interval = n
	case recurrence.KindMonthlyDay:
		day, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil || day < 1 || day > 31 {
			return doc, errors.New("День должен быть числом от 1 до 31.")
		}
		doc.MonthlyDay = day
	}
	return doc, nil
}

var weekdayNames = map[string]int{
	"пн": 1, "вт": 2, "ср": 3, "чт": 4, "пт": 5, "сб": 6, "вс": 7,
	"mon": 1, "tue": 2, "wed": 3, "thu": 4, "fri": 5, "sat": 6, "sun": 7,
}

// parseWeekdays reads "пн, ср" or "1 3" into sorted ISO weekdays.
func parseWeekdays(text string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	var days []int
	for _, f := range fields {
		if d, ok := weekdayNames[f]; ok {
			days = append(days, d)
			continue
		}
		if d, err := strconv.Atoi(f); err == nil && d >= 1 && d <= 7 {
			days = append(days, d)
			continue
		}
		return nil, fmt.Errorf("Не понял день «%s». Используй пн, вт, ср, чт, пт, сб, вс.", f)
	}
	if len(days) == 0 {
		return nil, errors.New("Нужен хотя бы один день недели.")
	}
	return recurrence.NewWeekdaySet(days...).Days(), nil
}

func parseYesNo(text string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "да", "yes", "y":
		return true, true
	case "нет", "no", "n", "-":
		return false, true
	default:
		return false, false
	}
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnSkip),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnYes),
			tgbotapi.NewKeyboardButton(btnNo),
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func ruleKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnOnce),
			tgbotapi.NewKeyboardButton(btnDaily),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnWeekly),
			tgbotapi.NewKeyboardButton(btnInterval),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnMonthly),
			tgbotapi.NewKeyboardButton(btnLastDay),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancelDialog),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "пропустить" || value == "skip"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "отменить ввод" || value == "отмена"
}
