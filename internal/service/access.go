package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shared-planner/internal/apperr"
	"shared-planner/internal/model"
	"shared-planner/internal/repository"
)

// Access answers authorization questions about owners.
type Access struct {
	groups *repository.GroupRepository
}

func NewAccess(groups *repository.GroupRepository) *Access {
	return &Access{groups: groups}
}

// Role returns the caller's role in groupID. Unknown groups are NotFound,
// non-members PermissionDenied.
func (a *Access) Role(ctx context.Context, groupID, callerID uint) (model.Role, error) {
	if _, err := a.groups.FindByID(ctx, groupID); err != nil {
		return "", lookupErr(err, "group", groupID)
	}
	member, err := a.groups.Member(ctx, groupID, callerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.PermissionDenied("caller is not a member of group %d", groupID)
	}
	if err != nil {
		return "", apperr.Internal("load membership", err)
	}
	return member.Role, nil
}

func (a *Access) RequireMember(ctx context.Context, groupID, callerID uint) error {
	_, err := a.Role(ctx, groupID, callerID)
	return err
}

func (a *Access) RequireManager(ctx context.Context, groupID, callerID uint) error {
	role, err := a.Role(ctx, groupID, callerID)
	if err != nil {
		return err
	}
	if !role.CanManage() {
		return apperr.PermissionDenied("role %q cannot manage group %d", role, groupID)
	}
	return nil
}

// CanRead checks that callerID may see and complete owner's tasks.
func (a *Access) CanRead(ctx context.Context, callerID uint, owner model.Owner) error {
	if owner.IsGroup() {
		return a.RequireMember(ctx, owner.ID, callerID)
	}
	if owner.ID != callerID {
		return apperr.PermissionDenied("caller does not own this item")
	}
	return nil
}

// CanManage checks that callerID may write owner's templates.
func (a *Access) CanManage(ctx context.Context, callerID uint, owner model.Owner) error {
	if owner.IsGroup() {
		return a.RequireManager(ctx, owner.ID, callerID)
	}
	if owner.ID != callerID {
		return apperr.PermissionDenied("caller does not own this item")
	}
	return nil
}
