package model

import "time"

// Role is a member's permission level inside a group.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanManage reports whether the role may write group templates.
func (r Role) CanManage() bool {
	return r == RoleOwner || r == RoleAdmin
}

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// Group shares templates and tasks between its members.
type Group struct {
	ID          uint `gorm:"primaryKey"`
	Name        string
	OwnerUserID uint `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Members     []GroupMember `gorm:"foreignKey:GroupID"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	ID        uint `gorm:"primaryKey"`
	GroupID   uint `gorm:"index:idx_group_member,unique"`
	UserID    uint `gorm:"index:idx_group_member,unique;index"`
	Role      Role `gorm:"size:16"`
	CreatedAt time.Time
}
