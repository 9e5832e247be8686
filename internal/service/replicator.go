package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/metrics"
	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
	"shared-planner/internal/repository"
)

// MaxBatchOps is the most writes committed in a single transaction.
const MaxBatchOps = 500

// ChunkError reports a write that failed after Committed operations had
// already been committed by earlier chunks. Those are not rolled back; the
// caller retries the whole operation, which is idempotent.
type ChunkError struct {
	Committed int
	Err       error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("batch write failed after %d committed operations: %v", e.Committed, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

type taskStore interface {
	CreateAll(ctx context.Context, tasks []model.Task) error
	MarkCompleted(ctx context.Context, taskID uint, completedAt time.Time, completedBy *uint) (bool, error)
	PendingIDsFrom(ctx context.Context, templateID uint, from recurrence.Date) ([]uint, error)
	IDsByTemplate(ctx context.Context, templateID uint) ([]uint, error)
	SoftDelete(ctx context.Context, ids []uint) (int64, error)
	Purge(ctx context.Context, ids []uint) (int64, error)
}

// GroupReplicator keeps group-owned templates and tasks visible to every
// current member. Instances are stored once per group (not mirrored per
// member), so membership changes only affect who can read future queries.
// All bulk writes go through here in chunks of at most MaxBatchOps.
type GroupReplicator struct {
	groups    *repository.GroupRepository
	tasks     taskStore
	chunkSize int
	logger    *slog.Logger
}

func NewGroupReplicator(groups *repository.GroupRepository, tasks taskStore, log *slog.Logger) *GroupReplicator {
	return &GroupReplicator{
		groups:    groups,
		tasks:     tasks,
		chunkSize: MaxBatchOps,
		logger:    logger.OrDiscard(log),
	}
}

// WithChunkSize overrides the chunk size; values above MaxBatchOps are capped.
func (r *GroupReplicator) WithChunkSize(n int) *GroupReplicator {
	if n <= 0 || n > MaxBatchOps {
		n = MaxBatchOps
	}
	r.chunkSize = n
	return r
}

// CreateInstances persists tasks for owner in independent chunks and returns
// how many were committed. A group owner must resolve to an existing group.
func (r *GroupReplicator) CreateInstances(ctx context.Context, owner model.Owner, tasks []model.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}
	if owner.IsGroup() {
		if err := r.ensureGroup(ctx, owner.ID); err != nil {
			return 0, err
		}
	}
	committed := 0
	for start := 0; start < len(tasks); start += r.chunkSize {
		end := min(start+r.chunkSize, len(tasks))
		chunk := tasks[start:end]
		if err := r.tasks.CreateAll(ctx, chunk); err != nil {
			metrics.RecordFanoutChunk("failed")
			r.logger.Error("fan-out chunk failed", "owner", owner.String(), "committed", committed, "err", err)
			return committed, &ChunkError{Committed: committed, Err: err}
		}
		metrics.RecordFanoutChunk("committed")
		committed += len(chunk)
	}
	return committed, nil
}

// Complete marks a task done on behalf of memberID. For group tasks the member
// is recorded so every other member sees who completed it. It reports false when
// another completion already won.
func (r *GroupReplicator) Complete(ctx context.Context, task model.Task, memberID uint, at time.Time) (bool, error) {
	var completedBy *uint
	if task.Owner().IsGroup() {
		if _, err := r.groups.Member(ctx, task.Owner().ID, memberID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, apperr.PermissionDenied("caller is not a member of group %d", task.Owner().ID)
			}
			return false, apperr.Internal("load membership", err)
		}
		completedBy = &memberID
	}
	ok, err := r.tasks.MarkCompleted(ctx, task.ID, at, completedBy)
	if err != nil {
		return false, apperr.Internal("complete task", err)
	}
	return ok, nil
}

// SoftDeleteFrom flags every pending instance of tpl on or after from as
// deleted. Completed instances stay for history.
func (r *GroupReplicator) SoftDeleteFrom(ctx context.Context, tpl model.Template, from recurrence.Date) (int64, error) {
	ids, err := r.tasks.PendingIDsFrom(ctx, tpl.ID, from)
	if err != nil {
		return 0, err
	}
	return r.inChunks(ids, func(chunk []uint) (int64, error) {
		return r.tasks.SoftDelete(ctx, chunk)
	})
}

// PurgeAll removes every instance of tpl, completed ones included.
func (r *GroupReplicator) PurgeAll(ctx context.Context, tpl model.Template) (int64, error) {
	ids, err := r.tasks.IDsByTemplate(ctx, tpl.ID)
	if err != nil {
		return 0, err
	}
	return r.inChunks(ids, func(chunk []uint) (int64, error) {
		return r.tasks.Purge(ctx, chunk)
	})
}

// Members lists the current members of groupID.
func (r *GroupReplicator) Members(ctx context.Context, groupID uint) ([]model.GroupMember, error) {
	return r.groups.ListMembers(ctx, groupID)
}

func (r *GroupReplicator) ensureGroup(ctx context.Context, groupID uint) error {
	if _, err := r.groups.FindByID(ctx, groupID); err != nil {
		return lookupErr(err, "group", groupID)
	}
	return nil
}

func (r *GroupReplicator) inChunks(ids []uint, write func([]uint) (int64, error)) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += r.chunkSize {
		end := min(start+r.chunkSize, len(ids))
		n, err := write(ids[start:end])
		if err != nil {
			metrics.RecordFanoutChunk("failed")
			return total, &ChunkError{Committed: int(total), Err: err}
		}
		metrics.RecordFanoutChunk("committed")
		total += n
	}
	return total, nil
}
