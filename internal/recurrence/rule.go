// Package recurrence holds the closed set of recurrence rules and the pure date
// arithmetic that answers "when does this repeat next". Nothing here performs I/O.
package recurrence

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind names a recurrence case as stored in the templates collection.
type Kind string

const (
	KindNone           Kind = "none"
	KindDaily          Kind = "daily"
	KindWeekly         Kind = "weekly"
	KindMonthlyDay     Kind = "monthly_day"
	KindMonthlyLastDay Kind = "monthly_last_day"
	KindInterval       Kind = "interval"
)

// MaxMonthDay is the highest day a MonthlyOnDay rule may target; every month has it.
const MaxMonthDay = 28

// Rule is one of None, Daily, WeeklyOnWeekdays, MonthlyOnDay, MonthlyOnLastDay or IntervalDays.
type Rule interface {
	Kind() Kind
	String() string
	isRule()
}

// None is a single occurrence with no successor.
type None struct{}

// Daily repeats every calendar day.
type Daily struct{}

// WeeklyOnWeekdays repeats on the listed ISO weekdays.
type WeeklyOnWeekdays struct {
	Weekdays WeekdaySet
}

// MonthlyOnDay repeats on the same day of every month. Day is clamped to 1..28.
type MonthlyOnDay struct {
	Day int
}

// MonthlyOnLastDay repeats on the last calendar day of every month.
type MonthlyOnLastDay struct{}

// IntervalDays repeats every N days. When CompletionGated is set the next
// occurrence only exists once the previous instance has been completed.
type IntervalDays struct {
	N               int
	CompletionGated bool
}

func (None) Kind() Kind             { return KindNone }
func (Daily) Kind() Kind            { return KindDaily }
func (WeeklyOnWeekdays) Kind() Kind { return KindWeekly }
func (MonthlyOnDay) Kind() Kind     { return KindMonthlyDay }
func (MonthlyOnLastDay) Kind() Kind { return KindMonthlyLastDay }
func (IntervalDays) Kind() Kind     { return KindInterval }

func (None) isRule()             {}
func (Daily) isRule()            {}
func (WeeklyOnWeekdays) isRule() {}
func (MonthlyOnDay) isRule()     {}
func (MonthlyOnLastDay) isRule() {}
func (IntervalDays) isRule()     {}

func (None) String() string  { return "once" }
func (Daily) String() string { return "daily" }

func (r WeeklyOnWeekdays) String() string {
	return "weekly on " + r.Weekdays.String()
}

func (r MonthlyOnDay) String() string {
	return fmt.Sprintf("monthly on day %d", clampMonthDay(r.Day))
}

func (MonthlyOnLastDay) String() string { return "monthly on last day" }

func (r IntervalDays) String() string {
	if r.CompletionGated {
		return fmt.Sprintf("%d days after completion", r.N)
	}
	return fmt.Sprintf("every %d days", r.N)
}

// IsCompletionGated reports whether rule advances only through completion events.
func IsCompletionGated(rule Rule) bool {
	r, ok := rule.(IntervalDays)
	return ok && r.CompletionGated
}

// IsRecurring reports whether rule produces more than one occurrence.
func IsRecurring(rule Rule) bool {
	if rule == nil {
		return false
	}
	_, none := rule.(None)
	return !none
}

// WeekdaySet is a bit set of ISO weekdays (Monday=1 … Sunday=7).
type WeekdaySet uint8

func NewWeekdaySet(days ...int) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d >= 1 && d <= 7 {
			s |= 1 << uint(d)
		}
	}
	return s
}

func (s WeekdaySet) Has(day int) bool {
	if day < 1 || day > 7 {
		return false
	}
	return s&(1<<uint(day)) != 0
}

func (s WeekdaySet) Empty() bool { return s == 0 }

func (s WeekdaySet) Days() []int {
	var days []int
	for d := 1; d <= 7; d++ {
		if s.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	days := s.Days()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Validate checks constraints that must hold before a rule is saved.
func Validate(rule Rule) error {
	switch r := rule.(type) {
	case nil:
		return &DecodeError{Field: "kind", Reason: "missing rule"}
	case None, Daily, MonthlyOnLastDay:
		return nil
	case WeeklyOnWeekdays:
		if r.Weekdays.Empty() {
			return &DecodeError{Field: "weekdays", Reason: "at least one weekday is required"}
		}
	case MonthlyOnDay:
		if r.Day < 1 {
			return &DecodeError{Field: "monthlyDay", Value: strconv.Itoa(r.Day), Reason: "must be between 1 and 31"}
		}
	case IntervalDays:
		if r.N < 1 {
			return &DecodeError{Field: "interval", Value: strconv.Itoa(r.N), Reason: "must be a positive number of days"}
		}
	}
	return nil
}

func sortedUnique(days []int) []int {
	seen := make(map[int]struct{}, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}
