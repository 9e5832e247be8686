package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// TaskInput represents data required to create an ad-hoc task.
type TaskInput struct {
	Title         string
	Description   string
	ScheduledDate recurrence.Date
	GroupID       *uint
}

// TaskListener observes task updates after they are persisted.
type TaskListener interface {
	OnTaskUpdated(ctx context.Context, before, after model.Task) error
}

// TaskService wraps task-related business logic.
type TaskService struct {
	tasks      *repository.TaskRepository
	access     *Access
	replicator *GroupReplicator
	advancer   *Advancer
	listener   TaskListener
	calendar   Calendar
	logger     *slog.Logger
}

func NewTaskService(tasks *repository.TaskRepository, access *Access, replicator *GroupReplicator, advancer *Advancer, listener TaskListener, calendar Calendar, log *slog.Logger) *TaskService {
	return &TaskService{
		tasks:      tasks,
		access:     access,
		replicator: replicator,
		advancer:   advancer,
		listener:   listener,
		calendar:   calendar,
		logger:     logger.OrDiscard(log),
	}
}

// CreateAdHoc stores a task without a template. It defaults to today.
func (s *TaskService) CreateAdHoc(ctx context.Context, callerID uint, in TaskInput) (*model.Task, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.InvalidArgument("title is required")
	}
	owner := model.UserOwner(callerID)
	if in.GroupID != nil {
		owner = model.GroupOwner(*in.GroupID)
	}
	if err := s.access.CanRead(ctx, callerID, owner); err != nil {
		return nil, err
	}

	task := model.Task{
		Title:         title,
		Description:   strings.TrimSpace(in.Description),
		ScheduledDate: in.ScheduledDate,
		RuleSnapshot:  recurrence.Encode(recurrence.None{}),
	}
	if task.ScheduledDate.IsZero() {
		task.ScheduledDate = s.calendar.Today()
	}
	task.SetOwner(owner)

	if err := s.tasks.Create(ctx, &task); err != nil {
		return nil, apperr.Internal("create task", err)
	}
	return &task, nil
}

// Get returns a task the caller may read.
func (s *TaskService) Get(ctx context.Context, callerID, taskID uint) (*model.Task, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if taskID == 0 {
		return nil, apperr.InvalidArgument("task id is required")
	}
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "task", taskID)
	}
	if err := s.access.CanRead(ctx, callerID, task.Owner()); err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task done as callerID. Only the completion that actually
// flips the task notifies the listener. Repeating a completion is harmless and
// re-runs successor creation, which does nothing when the successor exists.
func (s *TaskService) Complete(ctx context.Context, callerID, taskID uint, at time.Time) (*model.Task, error) {
	before, err := s.Get(ctx, callerID, taskID)
	if err != nil {
		return nil, err
	}
	if before.IsDeleted {
		return nil, apperr.InvalidArgument("task %d is deleted", taskID)
	}
	if before.IsCompleted() {
		if _, err := s.advancer.Advance(ctx, *before); err != nil {
			return before, err
		}
		return before, nil
	}

	won, err := s.replicator.Complete(ctx, *before, callerID, at)
	if err != nil {
		return nil, err
	}
	after, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, lookupErr(err, "task", taskID)
	}
	if !won {
		return after, nil
	}

	s.logger.Info("task completed", "task_id", taskID, "owner", after.Owner().String(), "member_id", callerID)
	if s.listener != nil {
		if err := s.listener.OnTaskUpdated(ctx, *before, *after); err != nil {
			return after, err
		}
	}
	return after, nil
}

// Delete soft-deletes a single pending task. The day stays occupied, so the
// instance is not generated again.
func (s *TaskService) Delete(ctx context.Context, callerID, taskID uint) error {
	task, err := s.Get(ctx, callerID, taskID)
	if err != nil {
		return err
	}
	if task.IsCompleted() {
		return apperr.InvalidArgument("completed task %d cannot be deleted", taskID)
	}
	if task.IsDeleted {
		return nil
	}
	if _, err := s.tasks.SoftDelete(ctx, []uint{task.ID}); err != nil {
		return apperr.Internal("delete task", err)
	}
	return nil
}
