package service

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"shared-planner/internal/apperr"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

type sentPush struct {
	recipient int64
	payload   push.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentPush
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, recipient int64, p push.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentPush{recipient: recipient, payload: p})
	return nil
}

func (n *recordingNotifier) Sent() []sentPush {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentPush(nil), n.sent...)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	now      time.Time
	notifier *recordingNotifier
	svc      *Services
	tasks    *repository.TaskRepository
}

// newFixture wires the services on a temporary sqlite file with the clock
// pinned to 2024-03-01 09:00 UTC.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{
		t:        t,
		ctx:      context.Background(),
		db:       db,
		now:      time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		notifier: &recordingNotifier{},
		tasks:    repository.NewTaskRepository(db),
	}
	calendar := NewCalendar(func() time.Time { return f.now }, time.UTC, DefaultHorizonDays)
	f.svc = New(db, f.notifier, calendar, nil)
	return f
}

func (f *fixture) today() recurrence.Date {
	return f.svc.Calendar.Today()
}

func (f *fixture) user(telegramID int64, name string) *model.User {
	f.t.Helper()
	u, err := f.svc.Users.UpsertFromTelegram(f.ctx, telegramID, telegramID*10, name, "", "")
	require.NoError(f.t, err)
	return u
}

func (f *fixture) template(callerID uint, doc recurrence.Doc, groupID *uint) *model.Template {
	f.t.Helper()
	tpl, err := f.svc.Templates.Create(f.ctx, callerID, TemplateInput{Title: "water plants", Rule: doc, GroupID: groupID})
	require.NoError(f.t, err)
	return tpl
}

func (f *fixture) instances(templateID uint) []model.Task {
	f.t.Helper()
	tasks, err := f.tasks.ListByTemplate(f.ctx, templateID)
	require.NoError(f.t, err)
	return tasks
}

func dailyDoc() recurrence.Doc { return recurrence.Doc{Kind: recurrence.KindDaily} }

func TestCreateTemplateMaterializesHorizon(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")

	tpl := f.template(alice.ID, dailyDoc(), nil)

	tasks := f.instances(tpl.ID)
	require.Len(t, tasks, DefaultHorizonDays+1)
	assert.Equal(t, f.today(), tasks[0].ScheduledDate)
	assert.Equal(t, f.today().AddDays(DefaultHorizonDays), tasks[len(tasks)-1].ScheduledDate)
	for _, task := range tasks {
		assert.Equal(t, model.UserOwner(alice.ID), task.Owner())
		assert.Equal(t, recurrence.KindDaily, task.RuleSnapshot.Kind)
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, recurrence.Doc{Kind: recurrence.KindWeekly, Weekdays: []int{2, 4}}, nil)
	before := len(f.instances(tpl.ID))
	require.NotZero(t, before)

	created, err := f.svc.Generation.GenerateUserTasks(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, created)

	created, err = f.svc.Generation.GenerateTasksForTemplate(f.ctx, alice.ID, tpl.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, f.instances(tpl.ID), before)
}

func TestSoftDeletedDayIsNotRegenerated(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, dailyDoc(), nil)

	victim := f.instances(tpl.ID)[3]
	require.NoError(t, f.svc.Tasks.Delete(f.ctx, alice.ID, victim.ID))

	created, err := f.svc.Generation.GenerateUserTasks(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, created)

	var onVictimDay []model.Task
	for _, task := range f.instances(tpl.ID) {
		if task.ScheduledDate.Equal(victim.ScheduledDate) {
			onVictimDay = append(onVictimDay, task)
		}
	}
	require.Len(t, onVictimDay, 1)
	assert.True(t, onVictimDay[0].IsDeleted)
}

func TestSweepAdvancesWithTheClock(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, dailyDoc(), nil)

	f.now = f.now.AddDate(0, 0, 5)
	created, err := f.svc.Generation.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, created)

	created, err = f.svc.Generation.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, f.instances(tpl.ID), DefaultHorizonDays+1+5)
}

func TestInactiveAndSingleTemplatesAreNotWalked(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	inactive := false
	tpl, err := f.svc.Templates.Create(f.ctx, alice.ID, TemplateInput{Title: "paused", Rule: dailyDoc(), Active: &inactive})
	require.NoError(t, err)
	assert.Empty(t, f.instances(tpl.ID))

	once := f.template(alice.ID, recurrence.Doc{Kind: recurrence.KindNone}, nil)
	require.Len(t, f.instances(once.ID), 1)

	created, err := f.svc.Generation.GenerateUserTasks(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, f.instances(once.ID), 1)
}

func TestCreateTemplateRejectsInvalidRule(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")

	_, err := f.svc.Templates.Create(f.ctx, alice.ID, TemplateInput{Title: "x", Rule: recurrence.Doc{Kind: recurrence.KindWeekly}})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = f.svc.Templates.Create(f.ctx, alice.ID, TemplateInput{Title: " ", Rule: dailyDoc()})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestDeleteFutureKeepsHistory(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, dailyDoc(), nil)
	tasks := f.instances(tpl.ID)

	_, err := f.svc.Tasks.Complete(f.ctx, alice.ID, tasks[0].ID, f.now)
	require.NoError(t, err)

	n, err := f.svc.Templates.Delete(f.ctx, alice.ID, tpl.ID, DeleteFuture, f.today())
	require.NoError(t, err)
	assert.EqualValues(t, len(tasks)-1, n)

	after := f.instances(tpl.ID)
	require.Len(t, after, len(tasks))
	assert.Equal(t, model.StateCompleted, after[0].State())
	for _, task := range after[1:] {
		assert.Equal(t, model.StateSoftDeleted, task.State())
	}

	stored, err := f.svc.Templates.Get(f.ctx, alice.ID, tpl.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	created, err := f.svc.Generation.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestDeleteAllPurges(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, dailyDoc(), nil)

	n, err := f.svc.Templates.Delete(f.ctx, alice.ID, tpl.ID, DeleteAll, recurrence.Date{})
	require.NoError(t, err)
	assert.EqualValues(t, DefaultHorizonDays+1, n)
	assert.Empty(t, f.instances(tpl.ID))

	_, err = f.svc.Templates.Get(f.ctx, alice.ID, tpl.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Templates.Delete(f.ctx, alice.ID, tpl.ID, "everything", recurrence.Date{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestUpdateKeepsSnapshots(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")
	tpl := f.template(alice.ID, dailyDoc(), nil)

	_, err := f.svc.Templates.Update(f.ctx, alice.ID, tpl.ID, TemplateInput{
		Title: "water plants",
		Rule:  recurrence.Doc{Kind: recurrence.KindInterval, Interval: 2},
	})
	require.NoError(t, err)

	for _, task := range f.instances(tpl.ID) {
		assert.Equal(t, recurrence.KindDaily, task.RuleSnapshot.Kind)
	}
}

func TestAdHocTask(t *testing.T) {
	f := newFixture(t)
	alice := f.user(1, "Alice")

	task, err := f.svc.Tasks.CreateAdHoc(f.ctx, alice.ID, TaskInput{Title: "call mom"})
	require.NoError(t, err)
	assert.Nil(t, task.TemplateID)
	assert.Equal(t, f.today(), task.ScheduledDate)
	assert.Empty(t, task.OccurrenceKey())

	done, err := f.svc.Tasks.Complete(f.ctx, alice.ID, task.ID, f.now)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted())
	assert.Nil(t, done.CompletedByMemberID)

	assert.ErrorIs(t, f.svc.Tasks.Delete(f.ctx, alice.ID, task.ID), apperr.ErrInvalidArgument)
}
