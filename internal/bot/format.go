package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/service"
)

const (
	iconPending   = "🟢"
	iconDone      = "✅"
	iconPlanned   = "🗓"
	iconGroup     = "👥"
	iconRecurring = "♻️"
)

// maxButtons keeps the inline keyboard within what Telegram renders comfortably.
const maxButtons = 8

var weekdayShort = [...]string{"", "пн", "вт", "ср", "чт", "пт", "сб", "вс"}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(title)
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// describeRule renders a stored rule in Russian.
func describeRule(doc recurrence.Doc) string {
	switch doc.Kind {
	case recurrence.KindNone:
		return "разово"
	case recurrence.KindDaily:
		return "каждый день"
	case recurrence.KindWeekly:
		names := make([]string, 0, len(doc.Weekdays))
		for _, d := range doc.Weekdays {
			if d >= 1 && d <= 7 {
				names = append(names, weekdayShort[d])
			}
		}
		return "по дням: " + strings.Join(names, ", ")
	case recurrence.KindMonthlyDay:
		return fmt.Sprintf("каждый месяц %d числа", doc.MonthlyDay)
	case recurrence.KindMonthlyLastDay:
		return "в последний день месяца"
	case recurrence.KindInterval:
		if doc.CompletionGated {
			return fmt.Sprintf("через %d дн. после выполнения", doc.Interval)
		}
		return fmt.Sprintf("каждые %d дн.", doc.Interval)
	default:
		return escape(string(doc.Kind))
	}
}

// formatEntries renders the merged view grouped by day.
func formatEntries(entries []service.Entry, window recurrence.Window) string {
	if len(entries) == 0 {
		return fmt.Sprintf("🎉 С %s по %s задач нет.", window.Start, window.End)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📋 <b>Задачи с %s по %s</b>\n", window.Start, window.End))
	var current recurrence.Date
	for _, e := range entries {
		if !e.Date.Equal(current) {
			current = e.Date
			b.WriteString(fmt.Sprintf("\n📅 <b>%s</b> (%s)\n", e.Date, weekdayShort[e.Date.ISOWeekday()]))
		}
		b.WriteString(formatEntry(e))
	}
	return strings.TrimSpace(b.String())
}

func formatEntry(e service.Entry) string {
	icon := iconPending
	switch {
	case e.Completed:
		icon = iconDone
	case e.Virtual:
		icon = iconPlanned
	}

	var b strings.Builder
	b.WriteString(icon)
	if e.TaskID != nil {
		b.WriteString(fmt.Sprintf(" <b>#%d</b>", *e.TaskID))
	}
	b.WriteString(" " + escape(normalizeTitle(e.Title)))
	if e.TemplateID != nil {
		b.WriteString(" " + iconRecurring)
	}
	if e.GroupID != nil {
		b.WriteString(" " + iconGroup)
	}
	b.WriteByte('\n')
	return b.String()
}

// completeKeyboard offers a button per pending persisted entry.
func completeKeyboard(entries []service.Entry) (tgbotapi.InlineKeyboardMarkup, bool) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, e := range entries {
		if e.Virtual || e.Completed || e.TaskID == nil {
			continue
		}
		label := fmt.Sprintf("✔️ #%d %s", *e.TaskID, shortTitle(e.Title, 24))
		data := fmt.Sprintf("%s%d", cbCompletePrefix, *e.TaskID)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
		if len(rows) == maxButtons {
			break
		}
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func formatTemplates(templates []model.Template) string {
	if len(templates) == 0 {
		return "Шаблонов пока нет. Создай первый через /newtask."
	}
	var b strings.Builder
	b.WriteString("♻️ <b>Шаблоны</b>\n")
	for _, t := range templates {
		b.WriteString(fmt.Sprintf("\n<b>#%d</b> %s", t.ID, escape(normalizeTitle(t.Title))))
		if t.Owner().IsGroup() {
			b.WriteString(" " + iconGroup)
		}
		b.WriteString(fmt.Sprintf("\n   🔄 %s, с %s\n", describeRule(t.Rule), t.StartDate))
	}
	return strings.TrimSpace(b.String())
}
