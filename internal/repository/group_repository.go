package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"shared-planner/internal/model"
)

// GroupRepository manages groups and their membership.
type GroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// Create stores group and makes its owner the first member.
func (r *GroupRepository) Create(ctx context.Context, group *model.Group) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(group).Error; err != nil {
			return fmt.Errorf("create group: %w", err)
		}
		owner := model.GroupMember{GroupID: group.ID, UserID: group.OwnerUserID, Role: model.RoleOwner}
		if err := tx.Create(&owner).Error; err != nil {
			return fmt.Errorf("add group owner: %w", err)
		}
		return nil
	})
}

func (r *GroupRepository) FindByID(ctx context.Context, id uint) (*model.Group, error) {
	var group model.Group
	if err := r.db.WithContext(ctx).First(&group, id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// Member returns the membership of userID in groupID or gorm.ErrRecordNotFound.
func (r *GroupRepository) Member(ctx context.Context, groupID, userID uint) (*model.GroupMember, error) {
	var member model.GroupMember
	if err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// AddMember inserts or updates the role of userID in groupID.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uint, role model.Role) (*model.GroupMember, error) {
	db := r.db.WithContext(ctx)
	existing, err := r.Member(ctx, groupID, userID)
	switch {
	case err == nil:
		if err := db.Model(existing).Update("role", role).Error; err != nil {
			return nil, fmt.Errorf("update member role: %w", err)
		}
		existing.Role = role
		return existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		member := model.GroupMember{GroupID: groupID, UserID: userID, Role: role}
		if err := db.Create(&member).Error; err != nil {
			return nil, fmt.Errorf("add member: %w", err)
		}
		return &member, nil
	default:
		return nil, fmt.Errorf("find member: %w", err)
	}
}

func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uint) error {
	if err := r.db.WithContext(ctx).Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&model.GroupMember{}).Error; err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (r *GroupRepository) ListMembers(ctx context.Context, groupID uint) ([]model.GroupMember, error) {
	var members []model.GroupMember
	if err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("user_id ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// GroupIDsForUser lists the groups userID currently belongs to.
func (r *GroupRepository) GroupIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&model.GroupMember{}).Where("user_id = ?", userID).
		Order("group_id ASC").Pluck("group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list user groups: %w", err)
	}
	return ids, nil
}
