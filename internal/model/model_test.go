package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shared-planner/internal/recurrence"
)

func TestTaskState(t *testing.T) {
	now := time.Now()

	assert.Equal(t, StateScheduled, Task{}.State())
	assert.Equal(t, StateCompleted, Task{CompletedAt: &now}.State())
	assert.Equal(t, StateSoftDeleted, Task{IsDeleted: true}.State())
}

func TestNewInstanceCopiesTemplate(t *testing.T) {
	groupID := uint(9)
	tpl := Template{
		ID:           3,
		OwnerGroupID: &groupID,
		Title:        "Water plants",
		Rule:         recurrence.Doc{Kind: recurrence.KindWeekly, Weekdays: []int{4, 2, 2}},
	}
	day := recurrence.MustDate("2024-01-02")

	task := NewInstance(tpl, day)

	assert.Equal(t, GroupOwner(9), task.Owner())
	assert.Nil(t, task.OwnerUserID)
	assert.Equal(t, "Water plants", task.Title)
	assert.Equal(t, []int{2, 4}, task.RuleSnapshot.Weekdays)
	assert.Equal(t, recurrence.OccurrenceKey(3, day), task.OccurrenceKey())

	// Editing the template afterwards must not reach the snapshot.
	tpl.Rule.Weekdays[0] = 7
	assert.Equal(t, []int{2, 4}, task.RuleSnapshot.Weekdays)
}

func TestOwnerColumns(t *testing.T) {
	var tpl Template
	tpl.SetOwner(UserOwner(4))
	assert.Equal(t, UserOwner(4), tpl.Owner())
	assert.False(t, tpl.IsGroupOwned())

	tpl.SetOwner(GroupOwner(5))
	assert.Nil(t, tpl.OwnerUserID)
	assert.True(t, tpl.IsGroupOwned())
	assert.Equal(t, "group:5", tpl.Owner().String())
}

func TestRoleCanManage(t *testing.T) {
	assert.True(t, RoleOwner.CanManage())
	assert.True(t, RoleAdmin.CanManage())
	assert.False(t, RoleMember.CanManage())
	assert.False(t, Role("guest").Valid())
}
