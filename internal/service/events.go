package service

import (
	"context"
	"log/slog"

	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/push"
	"shared-planner/internal/repository"
)

// TaskEvents reacts to persisted task updates. A completion that flips
// completed_at from unset to set advances completion-gated chains and, for
// group tasks, tells the other members who finished it.
type TaskEvents struct {
	advancer   *Advancer
	replicator *GroupReplicator
	users      *repository.UserRepository
	delivery   *Delivery
	logger     *slog.Logger
}

func NewTaskEvents(advancer *Advancer, replicator *GroupReplicator, users *repository.UserRepository, delivery *Delivery, log *slog.Logger) *TaskEvents {
	return &TaskEvents{
		advancer:   advancer,
		replicator: replicator,
		users:      users,
		delivery:   delivery,
		logger:     logger.OrDiscard(log),
	}
}

// OnTaskUpdated compares before and after. Only the advancer's error is
// returned; notification problems are logged.
func (e *TaskEvents) OnTaskUpdated(ctx context.Context, before, after model.Task) error {
	if before.CompletedAt != nil || after.CompletedAt == nil {
		return nil
	}

	_, advanceErr := e.advancer.Advance(ctx, after)
	if advanceErr != nil {
		e.logger.Error("advance after completion failed", "task_id", after.ID, "err", advanceErr)
	}

	if after.Owner().IsGroup() {
		e.notifyGroup(ctx, after)
	}
	return advanceErr
}

func (e *TaskEvents) notifyGroup(ctx context.Context, task model.Task) {
	var completedBy uint
	if task.CompletedByMemberID != nil {
		completedBy = *task.CompletedByMemberID
	}
	members, err := e.replicator.Members(ctx, task.Owner().ID)
	if err != nil {
		e.logger.Error("load group members for notification", "group_id", task.Owner().ID, "err", err)
		return
	}

	payload := push.GroupTaskCompleted{
		TaskID:              task.ID,
		GroupID:             task.Owner().ID,
		CompletedByMemberID: completedBy,
		Title:               task.Title,
	}
	if completedBy != 0 {
		if who, err := e.users.FindByID(ctx, completedBy); err == nil {
			payload.CompletedByName = who.DisplayName()
		}
	}

	for _, member := range members {
		if member.UserID == completedBy {
			continue
		}
		user, err := e.users.FindByID(ctx, member.UserID)
		if err != nil {
			e.logger.Warn("skip notification for unknown member", "group_id", member.GroupID, "user_id", member.UserID, "err", err)
			continue
		}
		e.delivery.Deliver(ctx, *user, payload)
	}
}
