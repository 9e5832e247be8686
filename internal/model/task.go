package model

import (
	"time"

	"shared-planner/internal/recurrence"
)

// TaskState is the lifecycle position of a task instance.
type TaskState string

const (
	StateScheduled   TaskState = "scheduled"
	StateCompleted   TaskState = "completed"
	StateSoftDeleted TaskState = "deleted"
)

// Task is one dated, completable instance. TemplateID is nil for ad-hoc tasks.
// RuleSnapshot keeps the rule as it was at generation time.
type Task struct {
	ID                  uint  `gorm:"primaryKey"`
	TemplateID          *uint `gorm:"index:idx_task_occurrence"`
	OwnerUserID         *uint `gorm:"index"`
	OwnerGroupID        *uint `gorm:"index"`
	Title               string
	Description         string
	ScheduledDate       recurrence.Date `gorm:"index:idx_task_occurrence;index"`
	CompletedAt         *time.Time
	CompletedByMemberID *uint
	IsDeleted           bool           `gorm:"default:false;index"`
	RuleSnapshot        recurrence.Doc `gorm:"embedded;embeddedPrefix:rule_"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (t Task) Owner() Owner { return ownerOf(t.OwnerUserID, t.OwnerGroupID) }

func (t *Task) SetOwner(o Owner) {
	t.OwnerUserID, t.OwnerGroupID = o.columns()
}

func (t Task) IsCompleted() bool { return t.CompletedAt != nil }

func (t Task) State() TaskState {
	switch {
	case t.IsDeleted:
		return StateSoftDeleted
	case t.CompletedAt != nil:
		return StateCompleted
	default:
		return StateScheduled
	}
}

// OccurrenceKey matches the key of the virtual instance for the same day.
// Ad-hoc tasks have no template and return an empty key.
func (t Task) OccurrenceKey() string {
	if t.TemplateID == nil {
		return ""
	}
	return recurrence.OccurrenceKey(*t.TemplateID, t.ScheduledDate)
}

// NewInstance builds an unsaved task for tpl on day, snapshotting the rule.
func NewInstance(tpl Template, day recurrence.Date) Task {
	id := tpl.ID
	task := Task{
		TemplateID:    &id,
		Title:         tpl.Title,
		Description:   tpl.Description,
		ScheduledDate: day,
		RuleSnapshot:  tpl.Rule.Normalize(),
	}
	task.SetOwner(tpl.Owner())
	return task
}
