package service

import (
	"context"
	"log/slog"
	"strings"

	"shared-planner/internal/apperr"
	"shared-planner/internal/logger"
	"shared-planner/internal/model"
	"shared-planner/internal/repository"
)

// GroupService manages groups and their membership. Membership changes only
// affect who can read and complete instances from now on; nothing already
// materialized is rewritten.
type GroupService struct {
	groups *repository.GroupRepository
	users  *repository.UserRepository
	access *Access
	logger *slog.Logger
}

func NewGroupService(groups *repository.GroupRepository, users *repository.UserRepository, access *Access, log *slog.Logger) *GroupService {
	return &GroupService{groups: groups, users: users, access: access, logger: logger.OrDiscard(log)}
}

// CreateGroup creates a group owned by the caller.
func (s *GroupService) CreateGroup(ctx context.Context, callerID uint, name string) (*model.Group, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidArgument("group name is required")
	}
	group := model.Group{Name: name, OwnerUserID: callerID}
	if err := s.groups.Create(ctx, &group); err != nil {
		return nil, apperr.Internal("create group", err)
	}
	s.logger.Info("group created", "group_id", group.ID, "owner_user_id", callerID)
	return &group, nil
}

// AddMember adds or re-roles userID. Only owners and admins may do this; the
// owner role cannot be granted.
func (s *GroupService) AddMember(ctx context.Context, callerID, groupID, userID uint, role model.Role) (*model.GroupMember, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if groupID == 0 || userID == 0 {
		return nil, apperr.InvalidArgument("group id and user id are required")
	}
	if role == "" {
		role = model.RoleMember
	}
	if !role.Valid() || role == model.RoleOwner {
		return nil, apperr.InvalidArgument("invalid role %q", role)
	}
	if err := s.access.RequireManager(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, lookupErr(err, "group", groupID)
	}
	if group.OwnerUserID == userID {
		return nil, apperr.InvalidArgument("the owner's role cannot change")
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, lookupErr(err, "user", userID)
	}
	member, err := s.groups.AddMember(ctx, groupID, userID, role)
	if err != nil {
		return nil, apperr.Internal("add member", err)
	}
	s.logger.Info("group member added", "group_id", groupID, "user_id", userID, "role", role)
	return member, nil
}

// RemoveMember removes userID from the group. Managers may remove anyone but
// the owner; any member may leave.
func (s *GroupService) RemoveMember(ctx context.Context, callerID, groupID, userID uint) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	if groupID == 0 || userID == 0 {
		return apperr.InvalidArgument("group id and user id are required")
	}
	if callerID == userID {
		if err := s.access.RequireMember(ctx, groupID, callerID); err != nil {
			return err
		}
	} else if err := s.access.RequireManager(ctx, groupID, callerID); err != nil {
		return err
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return lookupErr(err, "group", groupID)
	}
	if group.OwnerUserID == userID {
		return apperr.InvalidArgument("the group owner cannot be removed")
	}
	if _, err := s.groups.Member(ctx, groupID, userID); err != nil {
		return lookupErr(err, "member", userID)
	}
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return apperr.Internal("remove member", err)
	}
	s.logger.Info("group member removed", "group_id", groupID, "user_id", userID, "by", callerID)
	return nil
}

// Members lists a group's members for one of its members.
func (s *GroupService) Members(ctx context.Context, callerID, groupID uint) ([]model.GroupMember, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if err := s.access.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("list members", err)
	}
	return members, nil
}
