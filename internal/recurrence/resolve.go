package recurrence

import "time"

// weeklySearchLimit bounds the weekday scan; two weeks always covers a non-empty set.
const weeklySearchLimit = 14

// Resolve returns the occurrence that follows ref under rule.
// The boolean is false when there is no calendar successor: None rules,
// completion-gated intervals, and malformed intervals.
func Resolve(rule Rule, ref Date) (Date, bool) {
	switch r := rule.(type) {
	case Daily:
		return ref.AddDays(1), true
	case WeeklyOnWeekdays:
		return nextWeekday(r.Weekdays, ref), true
	case MonthlyOnDay:
		y, m := nextMonth(ref.Year(), ref.Month())
		return NewDate(y, m, clampMonthDay(r.Day)), true
	case MonthlyOnLastDay:
		y, m := nextMonth(ref.Year(), ref.Month())
		return NewDate(y, m, daysInMonth(m, y)), true
	case IntervalDays:
		if r.CompletionGated || r.N < 1 {
			return Date{}, false
		}
		return ref.AddDays(r.N), true
	default:
		return Date{}, false
	}
}

// FirstOnOrAfter returns the earliest occurrence on or after from, never earlier
// than anchor (the rule's start day; zero means unanchored). Calendar intervals
// stay in phase with anchor so the result does not depend on when the walk starts.
func FirstOnOrAfter(rule Rule, anchor, from Date) (Date, bool) {
	if !anchor.IsZero() && anchor.After(from) {
		from = anchor
	}
	switch r := rule.(type) {
	case Daily:
		return from, true
	case WeeklyOnWeekdays:
		return Resolve(r, from.AddDays(-1))
	case MonthlyOnDay:
		candidate := NewDate(from.Year(), from.Month(), clampMonthDay(r.Day))
		if !candidate.Before(from) {
			return candidate, true
		}
		return Resolve(r, from)
	case MonthlyOnLastDay:
		return NewDate(from.Year(), from.Month(), daysInMonth(from.Month(), from.Year())), true
	case IntervalDays:
		if r.CompletionGated || r.N < 1 {
			return Date{}, false
		}
		if anchor.IsZero() || !anchor.Before(from) {
			return from, true
		}
		gap := anchor.DaysUntil(from)
		steps := (gap + r.N - 1) / r.N
		return anchor.AddDays(steps * r.N), true
	default:
		return Date{}, false
	}
}

// AfterCompletion returns the successor of a completion-gated interval,
// counted from the day the previous instance was actually completed.
func AfterCompletion(rule Rule, completedOn Date) (Date, bool) {
	r, ok := rule.(IntervalDays)
	if !ok || !r.CompletionGated || r.N < 1 {
		return Date{}, false
	}
	return completedOn.AddDays(r.N), true
}

func nextWeekday(set WeekdaySet, ref Date) Date {
	if set.Empty() {
		return ref.AddDays(1)
	}
	for i := 1; i <= weeklySearchLimit; i++ {
		candidate := ref.AddDays(i)
		if set.Has(candidate.ISOWeekday()) {
			return candidate
		}
	}
	return ref.AddDays(1)
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

func clampMonthDay(day int) int {
	switch {
	case day < 1:
		return 1
	case day > MaxMonthDay:
		return MaxMonthDay
	default:
		return day
	}
}

func daysInMonth(month time.Month, year int) int {
	// Move to next month, roll back a day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	firstOfNextMonth := firstOfMonth.AddDate(0, 1, 0)
	lastOfMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfMonth.Day()
}
