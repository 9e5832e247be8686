package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"shared-planner/internal/model"
)

// TemplateRepository handles CRUD for recurrence templates.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Create(ctx context.Context, tpl *model.Template) error {
	if err := r.db.WithContext(ctx).Create(tpl).Error; err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Save writes every column of tpl, including IsActive=false.
func (r *TemplateRepository) Save(ctx context.Context, tpl *model.Template) error {
	if err := r.db.WithContext(ctx).Save(tpl).Error; err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (r *TemplateRepository) FindByID(ctx context.Context, id uint) (*model.Template, error) {
	var tpl model.Template
	if err := r.db.WithContext(ctx).First(&tpl, id).Error; err != nil {
		return nil, err
	}
	return &tpl, nil
}

// ListActiveByOwner returns the active templates owned by owner.
func (r *TemplateRepository) ListActiveByOwner(ctx context.Context, owner model.Owner) ([]model.Template, error) {
	var templates []model.Template
	if err := ownerScope(r.db.WithContext(ctx), owner).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ListActiveForOwners returns active templates of the user and of the given groups.
func (r *TemplateRepository) ListActiveForOwners(ctx context.Context, userID uint, groupIDs []uint) ([]model.Template, error) {
	var templates []model.Template
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if len(groupIDs) > 0 {
		q = q.Where("(owner_user_id = ? OR owner_group_id IN ?)", userID, groupIDs)
	} else {
		q = q.Where("owner_user_id = ?", userID)
	}
	if err := q.Order("id ASC").Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

// ListActive returns every active template; used by the sweep.
func (r *TemplateRepository) ListActive(ctx context.Context) ([]model.Template, error) {
	var templates []model.Template
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").
		Find(&templates).Error; err != nil {
		return nil, fmt.Errorf("list active templates: %w", err)
	}
	return templates, nil
}

func (r *TemplateRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Template{}, id).Error; err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

func ownerScope(db *gorm.DB, owner model.Owner) *gorm.DB {
	if owner.IsGroup() {
		return db.Where("owner_group_id = ?", owner.ID)
	}
	return db.Where("owner_user_id = ? AND owner_group_id IS NULL", owner.ID)
}
