package model

import (
	"fmt"
	"time"

	"shared-planner/internal/recurrence"
)

// Template is a user-authored recurrence definition. It is never scheduled itself.
type Template struct {
	ID           uint  `gorm:"primaryKey"`
	OwnerUserID  *uint `gorm:"index"`
	OwnerGroupID *uint `gorm:"index"`
	Title        string
	Description  string
	Rule         recurrence.Doc  `gorm:"embedded;embeddedPrefix:rule_"`
	StartDate    recurrence.Date `gorm:"index"`
	IsActive     bool            `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (t Template) Owner() Owner { return ownerOf(t.OwnerUserID, t.OwnerGroupID) }

func (t Template) IsGroupOwned() bool { return t.OwnerGroupID != nil }

// SetOwner stores o in the owner column pair.
func (t *Template) SetOwner(o Owner) {
	t.OwnerUserID, t.OwnerGroupID = o.columns()
}

// DecodeRule turns the stored rule columns into a rule value.
func (t Template) DecodeRule() (recurrence.Rule, error) {
	rule, err := t.Rule.Decode()
	if err != nil {
		return nil, fmt.Errorf("template %d: %w", t.ID, err)
	}
	return rule, nil
}
