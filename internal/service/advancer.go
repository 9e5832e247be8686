package service

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/metrics"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// Advancer creates the successor of a completed instance whose template is
// completion-gated. The successor is counted from the completion day, so a
// late completion shifts the whole chain.
type Advancer struct {
	templates  *repository.TemplateRepository
	tasks      *repository.TaskRepository
	replicator *GroupReplicator
	calendar   Calendar
	logger     *slog.Logger
}

func NewAdvancer(templates *repository.TemplateRepository, tasks *repository.TaskRepository, replicator *GroupReplicator, calendar Calendar, log *slog.Logger) *Advancer {
	return &Advancer{
		templates:  templates,
		tasks:      tasks,
		replicator: replicator,
		calendar:   calendar,
		logger:     logger.OrDiscard(log),
	}
}

// Advance returns the successor it created, or nil when none is due: the task
// is not completed, has no template, the template is gone, inactive or not
// completion-gated, or the successor day is already occupied (retried delivery).
func (a *Advancer) Advance(ctx context.Context, completed model.Task) (*model.Task, error) {
	if completed.TemplateID == nil || completed.CompletedAt == nil || completed.IsDeleted {
		return nil, nil
	}

	tpl, err := a.templates.FindByID(ctx, *completed.TemplateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load template", err)
	}
	if !tpl.IsActive {
		return nil, nil
	}

	rule, err := tpl.DecodeRule()
	if err != nil {
		return nil, apperr.Internal("decode template rule", err)
	}
	day, ok := recurrence.AfterCompletion(rule, a.calendar.DayOf(*completed.CompletedAt))
	if !ok {
		return nil, nil
	}

	successor, err := a.createOnce(ctx, *tpl, day, "completion")
	if err != nil || successor == nil {
		return successor, err
	}
	a.logger.Info("successor created",
		"template_id", tpl.ID,
		"completed_task_id", completed.ID,
		"successor_task_id", successor.ID,
		"scheduled_date", day.String(),
	)
	return successor, nil
}

// Bootstrap creates the first instance of a template that the horizon walk
// never produces on its own: single occurrences and completion-gated chains.
func (a *Advancer) Bootstrap(ctx context.Context, tpl model.Template) (*model.Task, error) {
	if !tpl.IsActive {
		return nil, nil
	}
	rule, err := tpl.DecodeRule()
	if err != nil {
		return nil, apperr.Internal("decode template rule", err)
	}
	if recurrence.IsRecurring(rule) && !recurrence.IsCompletionGated(rule) {
		return nil, nil
	}
	day := tpl.StartDate
	if day.IsZero() {
		day = a.calendar.Today()
	}
	return a.createOnce(ctx, tpl, day, "bootstrap")
}

// createOnce persists one instance of tpl on day unless the day is occupied,
// soft-deleted instances included.
func (a *Advancer) createOnce(ctx context.Context, tpl model.Template, day recurrence.Date, source string) (*model.Task, error) {
	occupied, err := a.tasks.OccupiedDates(ctx, tpl.ID, tpl.Owner(), recurrence.Window{Start: day, End: day})
	if err != nil {
		return nil, apperr.Internal("load occupancy", err)
	}
	if occupied[day] {
		return nil, nil
	}

	instance := []model.Task{model.NewInstance(tpl, day)}
	committed, err := a.replicator.CreateInstances(ctx, tpl.Owner(), instance)
	if err != nil {
		return nil, apperr.Internal("persist instance", err)
	}
	metrics.RecordInstancesCreated(string(tpl.Owner().Kind), source, committed)
	return &instance[0], nil
}
