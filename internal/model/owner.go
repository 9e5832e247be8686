package model

import "fmt"

// OwnerKind tells whether a template or task belongs to a user or a group.
type OwnerKind string

const (
	OwnerUser  OwnerKind = "user"
	OwnerGroup OwnerKind = "group"
)

// Owner identifies who a template or task belongs to.
type Owner struct {
	Kind OwnerKind
	ID   uint
}

func UserOwner(id uint) Owner  { return Owner{Kind: OwnerUser, ID: id} }
func GroupOwner(id uint) Owner { return Owner{Kind: OwnerGroup, ID: id} }

func (o Owner) IsGroup() bool { return o.Kind == OwnerGroup }

func (o Owner) String() string { return fmt.Sprintf("%s:%d", o.Kind, o.ID) }

// columns returns the owner column pair as stored on rows.
func (o Owner) columns() (userID, groupID *uint) {
	id := o.ID
	if o.IsGroup() {
		return nil, &id
	}
	return &id, nil
}

func ownerOf(userID, groupID *uint) Owner {
	if groupID != nil {
		return GroupOwner(*groupID)
	}
	if userID != nil {
		return UserOwner(*userID)
	}
	return Owner{}
}
