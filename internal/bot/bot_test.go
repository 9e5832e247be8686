package bot

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/service"
)

func TestParseWeekdays(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "пн, ср, пт", want: []int{1, 3, 5}},
		{in: "ВС пн", want: []int{1, 7}},
		{in: "2;4;2", want: []int{2, 4}},
		{in: "mon,sun", want: []int{1, 7}},
		{in: "пн, funday", wantErr: true},
		{in: "8", wantErr: true},
		{in: " , ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWeekdays(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyRuleParamProducesDecodableRules(t *testing.T) {
	tests := []struct {
		kind recurrence.Kind
		in   string
	}{
		{recurrence.KindWeekly, "вт, чт"},
		{recurrence.KindInterval, "3"},
		{recurrence.KindMonthlyDay, "31"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			doc, err := applyRuleParam(recurrence.Doc{Kind: tt.kind}, tt.in)
			require.NoError(t, err)
			_, err = doc.Decode()
			assert.NoError(t, err)
		})
	}

	_, err := applyRuleParam(recurrence.Doc{Kind: recurrence.KindInterval}, "0")
	assert.Error(t, err)
	_, err = applyRuleParam(recurrence.Doc{Kind: recurrence.KindMonthlyDay}, "32")
	assert.Error(t, err)
}

func TestRuleKindFromLabel(t *testing.T) {
	kind, ok := ruleKindFromLabel(" каждые n дней ")
	require.True(t, ok)
	assert.Equal(t, recurrence.KindInterval, kind)

	_, needsParam := ruleParamPrompt(recurrence.KindDaily)
	assert.False(t, needsParam)

	_, ok = ruleKindFromLabel("иногда")
	assert.False(t, ok)
}

func TestParseHourArg(t *testing.T) {
	hour, off, err := parseHourArg(" 9 ")
	require.NoError(t, err)
	assert.False(t, off)
	assert.Equal(t, 9, hour)

	_, off, err = parseHourArg("off")
	require.NoError(t, err)
	assert.True(t, off)

	_, _, err = parseHourArg("24")
	assert.Error(t, err)
}

func TestDescribeRule(t *testing.T) {
	assert.Equal(t, "по дням: вт, чт", describeRule(recurrence.Doc{Kind: recurrence.KindWeekly, Weekdays: []int{2, 4}}))
	assert.Equal(t, "через 2 дн. после выполнения", describeRule(recurrence.Doc{Kind: recurrence.KindInterval, Interval: 2, CompletionGated: true}))
	assert.Equal(t, "каждый месяц 15 числа", describeRule(recurrence.Doc{Kind: recurrence.KindMonthlyDay, MonthlyDay: 15}))
}

func TestFormatEntriesAndKeyboard(t *testing.T) {
	day := recurrence.MustDate("2024-03-05")
	window := recurrence.Window{Start: day, End: day.AddDays(6)}
	taskID, doneID, tplID, groupID := uint(11), uint(12), uint(3), uint(4)

	entries := []service.Entry{
		{Date: day, Title: "вынести <мусор>", TaskID: &taskID, TemplateID: &tplID, GroupID: &groupID},
		{Date: day, Title: "done", TaskID: &doneID, Completed: true},
		{Date: day.AddDays(1), Title: "later", Virtual: true, TemplateID: &tplID},
	}

	text := formatEntries(entries, window)
	assert.Contains(t, text, "📅 <b>2024-03-05</b> (вт)")
	assert.Contains(t, text, "<b>#11</b> Вынести &lt;мусор&gt; ♻️ 👥")
	assert.Contains(t, text, "✅ <b>#12</b> Done")
	assert.Contains(t, text, "📅 <b>2024-03-06</b> (ср)")
	assert.Equal(t, 2, strings.Count(text, "📅"))

	kb, ok := completeKeyboard(entries)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard, 1)
	require.NotNil(t, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "complete:11", *kb.InlineKeyboard[0][0].CallbackData)

	assert.Contains(t, formatEntries(nil, window), "задач нет")
	_, ok = completeKeyboard(entries[1:])
	assert.False(t, ok)
}

func TestFormatTemplates(t *testing.T) {
	groupID := uint(2)
	tpl := model.Template{ID: 5, Title: "уборка", Rule: recurrence.Doc{Kind: recurrence.KindDaily}, StartDate: recurrence.MustDate("2024-03-01")}
	tpl.SetOwner(model.GroupOwner(groupID))

	text := formatTemplates([]model.Template{tpl})
	assert.Contains(t, text, "<b>#5</b> Уборка 👥")
	assert.Contains(t, text, "каждый день, с 2024-03-01")
}

func TestUserMessage(t *testing.T) {
	b := &Bot{log: logger.Discard()}
	assert.Equal(t, "⛔️ Нет доступа.", b.userMessage(apperr.PermissionDenied("nope")))
	assert.Contains(t, b.userMessage(apperr.NotFound("task %d not found", 7)), "task 7 not found")
	assert.Equal(t, "Что-то пошло не так, попробуй позже.", b.userMessage(errors.New("db down")))
}

func TestShortTitle(t *testing.T) {
	assert.Equal(t, "Abc", shortTitle("abc", 5))
	assert.Equal(t, "Abcd…", shortTitle("abcdefgh", 5))
}
