package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"shared-planner/internal/model"
	"shared-planner/internal/recurrence"
)

// TaskRepository handles task instances.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CreateAll inserts tasks in one transaction; either all rows commit or none.
func (r *TaskRepository) CreateAll(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&tasks).Error
	})
	if err != nil {
		return fmt.Errorf("create tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).First(&task, taskID).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// OccupiedDates returns the days in window that already have an instance of
// templateID for owner, soft-deleted ones included.
func (r *TaskRepository) OccupiedDates(ctx context.Context, templateID uint, owner model.Owner, window recurrence.Window) (map[recurrence.Date]bool, error) {
	var days []recurrence.Date
	if err := ownerScope(r.db.WithContext(ctx).Model(&model.Task{}), owner).
		Where("template_id = ? AND scheduled_date BETWEEN ? AND ?", templateID, window.Start, window.End).
		Pluck("scheduled_date", &days).Error; err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	occupied := make(map[recurrence.Date]bool, len(days))
	for _, d := range days {
		occupied[d] = true
	}
	return occupied, nil
}

// OccupiedByTemplate is OccupiedDates for many templates at once, keyed by template id.
func (r *TaskRepository) OccupiedByTemplate(ctx context.Context, templateIDs []uint, window recurrence.Window) (map[uint]map[recurrence.Date]bool, error) {
	out := make(map[uint]map[recurrence.Date]bool, len(templateIDs))
	if len(templateIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		TemplateID    uint
		ScheduledDate recurrence.Date
	}
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("template_id, scheduled_date").
		Where("template_id IN ? AND scheduled_date BETWEEN ? AND ?", templateIDs, window.Start, window.End).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load occupancy: %w", err)
	}
	for _, row := range rows {
		if out[row.TemplateID] == nil {
			out[row.TemplateID] = make(map[recurrence.Date]bool)
		}
		out[row.TemplateID][row.ScheduledDate] = true
	}
	return out, nil
}

// ListVisible returns non-deleted tasks of owner scheduled inside window.
func (r *TaskRepository) ListVisible(ctx context.Context, owner model.Owner, window recurrence.Window) ([]model.Task, error) {
	var tasks []model.Task
	if err := ownerScope(r.db.WithContext(ctx), owner).
		Where("is_deleted = ? AND scheduled_date BETWEEN ? AND ?", false, window.Start, window.End).
		Order("scheduled_date ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByTemplate returns every instance of templateID, soft-deleted ones included.
func (r *TaskRepository) ListByTemplate(ctx context.Context, templateID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("template_id = ?", templateID).
		Order("scheduled_date ASC, id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list template tasks: %w", err)
	}
	return tasks, nil
}

// MarkCompleted moves a scheduled task to completed. It reports false when the
// task was already completed or deleted, so only one caller observes the transition.
func (r *TaskRepository) MarkCompleted(ctx context.Context, taskID uint, completedAt time.Time, completedBy *uint) (bool, error) {
	updates := map[string]interface{}{
		"completed_at":           completedAt,
		"completed_by_member_id": completedBy,
		"updated_at":             time.Now(),
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id = ? AND completed_at IS NULL AND is_deleted = ?", taskID, false).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("complete task: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// PendingIDsFrom lists ids of scheduled (not completed, not deleted) instances
// of templateID on or after from.
func (r *TaskRepository) PendingIDsFrom(ctx context.Context, templateID uint, from recurrence.Date) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("template_id = ? AND scheduled_date >= ? AND completed_at IS NULL AND is_deleted = ?", templateID, from, false).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return ids, nil
}

// SoftDelete flags ids as deleted in one transaction. Completed tasks are left alone.
func (r *TaskRepository) SoftDelete(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("id IN ? AND completed_at IS NULL", ids).
			Updates(map[string]interface{}{"is_deleted": true, "updated_at": time.Now()})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("soft delete tasks: %w", err)
	}
	return affected, nil
}

// IDsByTemplate lists every instance id of templateID.
func (r *TaskRepository) IDsByTemplate(ctx context.Context, templateID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.Task{}).Where("template_id = ?", templateID).
		Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list template task ids: %w", err)
	}
	return ids, nil
}

// Purge removes ids permanently in one transaction.
func (r *TaskRepository) Purge(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&model.Task{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("purge tasks: %w", err)
	}
	return affected, nil
}

// CountDue counts open tasks for a user: those scheduled today and those
// scheduled before today, across the user's own and group tasks.
func (r *TaskRepository) CountDue(ctx context.Context, userID uint, groupIDs []uint, today recurrence.Date) (todayCount, overdueCount int64, err error) {
	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&model.Task{}).
			Where("is_deleted = ? AND completed_at IS NULL", false)
		if len(groupIDs) > 0 {
			return q.Where("(owner_user_id = ? OR owner_group_id IN ?)", userID, groupIDs)
		}
		return q.Where("owner_user_id = ?", userID)
	}
	if err = base().Where("scheduled_date = ?", today).Count(&todayCount).Error; err != nil {
		return 0, 0, fmt.Errorf("count today tasks: %w", err)
	}
	if err = base().Where("scheduled_date < ?", today).Count(&overdueCount).Error; err != nil {
		return 0, 0, fmt.Errorf("count overdue tasks: %w", err)
	}
	return todayCount, overdueCount, nil
}
