package service

import (
	"context"
	"log/slog"
	"time"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/metrics"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// maxWalkSteps bounds the resolver walk against malformed rules.
const maxWalkSteps = 100

// MaterializeResult lists the instances a call persisted.
type MaterializeResult struct {
	Created []model.Task
}

// Materializer persists the instances of a template that fall inside a window.
// It only ever creates rows; occupancy is re-read before every write, so
// repeated or concurrent calls converge on the same set of instances.
type Materializer struct {
	tasks      *repository.TaskRepository
	replicator *GroupReplicator
	calendar   Calendar
	logger     *slog.Logger
}

func NewMaterializer(tasks *repository.TaskRepository, replicator *GroupReplicator, calendar Calendar, log *slog.Logger) *Materializer {
	return &Materializer{tasks: tasks, replicator: replicator, calendar: calendar, logger: logger.OrDiscard(log)}
}

// MaterializeHorizon materializes tpl over [today, today+horizon].
func (m *Materializer) MaterializeHorizon(ctx context.Context, tpl model.Template) (MaterializeResult, error) {
	return m.Materialize(ctx, tpl, m.calendar.Horizon())
}

// Materialize creates the missing instances of tpl inside window. Inactive,
// single-occurrence and completion-gated templates are left untouched.
func (m *Materializer) Materialize(ctx context.Context, tpl model.Template, window recurrence.Window) (MaterializeResult, error) {
	var res MaterializeResult
	if !window.Valid() {
		return res, apperr.InvalidArgument("invalid window %s..%s", window.Start, window.End)
	}
	if !tpl.IsActive {
		return res, nil
	}
	rule, err := tpl.DecodeRule()
	if err != nil {
		return res, apperr.Internal("decode template rule", err)
	}
	if !recurrence.IsRecurring(rule) || recurrence.IsCompletionGated(rule) {
		return res, nil
	}

	started := time.Now()
	owner := tpl.Owner()
	defer func() {
		metrics.RecordGenerationDuration(string(owner.Kind), time.Since(started).Seconds())
	}()

	occupied, err := m.tasks.OccupiedDates(ctx, tpl.ID, owner, window)
	if err != nil {
		return res, apperr.Internal("load occupancy", err)
	}

	days := PlanDates(rule, m.anchor(tpl), window, occupied)
	if len(days) == 0 {
		return res, nil
	}

	instances := make([]model.Task, len(days))
	for i, day := range days {
		instances[i] = model.NewInstance(tpl, day)
	}

	committed, err := m.replicator.CreateInstances(ctx, owner, instances)
	res.Created = instances[:committed]
	metrics.RecordInstancesCreated(string(owner.Kind), "horizon", committed)
	if err != nil {
		return res, apperr.Internal("persist instances", err)
	}

	m.logger.Debug("materialized template",
		"template_id", tpl.ID,
		"owner", owner.String(),
		"window_start", window.Start.String(),
		"window_end", window.End.String(),
		"created", committed,
	)
	return res, nil
}

// anchor is the first day the template may produce an occurrence.
func (m *Materializer) anchor(tpl model.Template) recurrence.Date {
	if !tpl.StartDate.IsZero() {
		return tpl.StartDate
	}
	if !tpl.CreatedAt.IsZero() {
		return m.calendar.DayOf(tpl.CreatedAt)
	}
	return recurrence.Date{}
}

// PlanDates walks rule through window and returns the days not yet occupied.
// The walk stops past window.End, when the rule has no successor, or after
// maxWalkSteps.
func PlanDates(rule recurrence.Rule, anchor recurrence.Date, window recurrence.Window, occupied map[recurrence.Date]bool) []recurrence.Date {
	var days []recurrence.Date
	next, ok := recurrence.FirstOnOrAfter(rule, anchor, window.Start)
	for step := 0; ok && step < maxWalkSteps; step++ {
		if next.After(window.End) {
			break
		}
		if window.Contains(next) && !occupied[next] {
			days = append(days, next)
		}
		var after recurrence.Date
		after, ok = recurrence.Resolve(rule, next)
		if ok && !after.After(next) {
			break
		}
		next = after
	}
	return days
}
