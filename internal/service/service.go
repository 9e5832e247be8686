package service

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"shared-planner/internal/apperr"
	"shared-planner/internal/recurrence"
)

// Clock returns the current instant. Tests pin it.
type Clock func() time.Time

// DefaultHorizonDays is the width of the eagerly persisted window after today.
const DefaultHorizonDays = 14

// Calendar resolves "today" and the horizon in the planner's fixed timezone.
type Calendar struct {
	Now         Clock
	Location    *time.Location
	HorizonDays int
}

func NewCalendar(now Clock, loc *time.Location, horizonDays int) Calendar {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return Calendar{Now: now, Location: loc, HorizonDays: horizonDays}
}

func (c Calendar) Today() recurrence.Date {
	return recurrence.Today(c.Now(), c.Location)
}

// Horizon returns [today, today+HorizonDays].
func (c Calendar) Horizon() recurrence.Window {
	return recurrence.HorizonWindow(c.Today(), c.HorizonDays)
}

// DayOf returns the calendar day of t in the planner's timezone.
func (c Calendar) DayOf(t time.Time) recurrence.Date {
	return recurrence.DateOf(t.In(c.Location))
}

func requireCaller(callerID uint) error {
	if callerID == 0 {
		return apperr.Unauthenticated("authentication required")
	}
	return nil
}

// lookupErr turns a repository lookup failure into NotFound or Internal.
func lookupErr(err error, what string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %d not found", what, id)
	}
	return apperr.Internal("load "+what, err)
}
