// Package push delivers notification payloads to users' devices.
package push

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

const (
	TypeDailySummary       = "daily_summary"
	TypeGroupTaskCompleted = "group_task_completed"
)

// Payload is the structured body of a notification.
type Payload interface {
	Type() string
}

// DailySummary is sent by the hourly trigger.
type DailySummary struct {
	Hour         int   `json:"hour"`
	TodayCount   int64 `json:"todayCount"`
	OverdueCount int64 `json:"overdueCount"`
}

func (DailySummary) Type() string { return TypeDailySummary }

// GroupTaskCompleted tells the other members that a shared task is done.
type GroupTaskCompleted struct {
	TaskID              uint   `json:"taskId"`
	GroupID             uint   `json:"groupId"`
	CompletedByMemberID uint   `json:"completedByMemberId"`
	CompletedByName     string `json:"completedByName"`
	Title               string `json:"title"`
}

func (GroupTaskCompleted) Type() string { return TypeGroupTaskCompleted }

// Encode renders p as JSON with its type tag merged in.
func Encode(p Payload) ([]byte, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	fields["type"] = p.Type()
	return json.Marshal(fields)
}

// Render turns p into the HTML text shown in the chat.
func Render(p Payload) string {
	switch v := p.(type) {
	case DailySummary:
		var sb strings.Builder
		sb.WriteString("📋 <b>Сводка по задачам</b>\n")
		sb.WriteString(fmt.Sprintf("🗓 На сегодня: %d\n", v.TodayCount))
		if v.OverdueCount > 0 {
			sb.WriteString(fmt.Sprintf("⚠️ Просрочено: %d\n", v.OverdueCount))
		}
		if v.TodayCount == 0 && v.OverdueCount == 0 {
			sb.WriteString("— всё сделано, можно отдыхать\n")
		}
		return strings.TrimSpace(sb.String())
	case GroupTaskCompleted:
		name := strings.TrimSpace(v.CompletedByName)
		if name == "" {
			name = fmt.Sprintf("участник #%d", v.CompletedByMemberID)
		}
		return fmt.Sprintf("✅ %s выполнил(а) общую задачу «%s»", html.EscapeString(name), html.EscapeString(v.Title))
	default:
		return p.Type()
	}
}
