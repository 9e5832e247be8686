package recurrence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tuesThurs := WeeklyOnWeekdays{Weekdays: NewWeekdaySet(2, 4)}

	tests := []struct {
		name string
		rule Rule
		ref  string
		want string
	}{
		{"daily", Daily{}, "2024-02-28", "2024-02-29"},
		{"daily year end", Daily{}, "2024-12-31", "2025-01-01"},
		{"weekly monday to tuesday", tuesThurs, "2024-01-01", "2024-01-02"},
		{"weekly tuesday to thursday", tuesThurs, "2024-01-02", "2024-01-04"},
		{"weekly wraps to next tuesday", tuesThurs, "2024-01-04", "2024-01-09"},
		{"weekly sunday only", WeeklyOnWeekdays{Weekdays: NewWeekdaySet(7)}, "2024-01-07", "2024-01-14"},
		{"weekly empty set falls back to next day", WeeklyOnWeekdays{}, "2024-01-04", "2024-01-05"},
		{"monthly day clamps to 28", MonthlyOnDay{Day: 31}, "2024-01-15", "2024-02-28"},
		{"monthly day plain", MonthlyOnDay{Day: 25}, "2024-03-25", "2024-04-25"},
		{"monthly day december rollover", MonthlyOnDay{Day: 5}, "2024-12-10", "2025-01-05"},
		{"monthly last day leap year", MonthlyOnLastDay{}, "2024-01-10", "2024-02-29"},
		{"monthly last day common year", MonthlyOnLastDay{}, "2023-01-10", "2023-02-28"},
		{"monthly last day december rollover", MonthlyOnLastDay{}, "2023-12-31", "2024-01-31"},
		{"interval", IntervalDays{N: 3}, "2024-01-30", "2024-02-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.rule, MustDate(tt.ref))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolveTerminal(t *testing.T) {
	ref := MustDate("2024-01-01")

	for _, rule := range []Rule{None{}, IntervalDays{N: 3, CompletionGated: true}, IntervalDays{N: 0}, nil} {
		_, ok := Resolve(rule, ref)
		assert.False(t, ok, "rule %v should be terminal", rule)
	}
}

func TestFirstOnOrAfter(t *testing.T) {
	tests := []struct {
		name   string
		rule   Rule
		anchor string
		from   string
		want   string
	}{
		{"daily starts at from", Daily{}, "", "2024-05-10", "2024-05-10"},
		{"daily respects future anchor", Daily{}, "2024-05-20", "2024-05-10", "2024-05-20"},
		{"weekly includes from", WeeklyOnWeekdays{Weekdays: NewWeekdaySet(5)}, "", "2024-05-10", "2024-05-10"},
		{"monthly same month", MonthlyOnDay{Day: 25}, "", "2024-10-19", "2024-10-25"},
		{"monthly already passed", MonthlyOnDay{Day: 5}, "", "2024-10-19", "2024-11-05"},
		{"monthly on from", MonthlyOnDay{Day: 19}, "", "2024-10-19", "2024-10-19"},
		{"last day", MonthlyOnLastDay{}, "", "2024-02-03", "2024-02-29"},
		{"interval aligned to anchor", IntervalDays{N: 3}, "2024-01-01", "2024-01-06", "2024-01-07"},
		{"interval exactly on phase", IntervalDays{N: 3}, "2024-01-01", "2024-01-07", "2024-01-07"},
		{"interval without anchor", IntervalDays{N: 3}, "", "2024-01-06", "2024-01-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var anchor Date
			if tt.anchor != "" {
				anchor = MustDate(tt.anchor)
			}
			got, ok := FirstOnOrAfter(tt.rule, anchor, MustDate(tt.from))
			require.True(t, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}

	_, ok := FirstOnOrAfter(IntervalDays{N: 2, CompletionGated: true}, Date{}, MustDate("2024-01-01"))
	assert.False(t, ok)
}

func TestAfterCompletion(t *testing.T) {
	rule := IntervalDays{N: 3, CompletionGated: true}

	// Scheduled on the 10th, completed on the 15th: the chain moves to the 18th.
	got, ok := AfterCompletion(rule, MustDate("2024-03-15"))
	require.True(t, ok)
	assert.Equal(t, "2024-03-18", got.String())

	_, ok = AfterCompletion(IntervalDays{N: 3}, MustDate("2024-03-15"))
	assert.False(t, ok)
}

func TestOccurrenceKey(t *testing.T) {
	day := MustDate("2024-01-02")
	assert.Equal(t, OccurrenceKey(7, day), OccurrenceKey(7, day))
	assert.NotEqual(t, OccurrenceKey(7, day), OccurrenceKey(8, day))
	assert.NotEqual(t, OccurrenceKey(7, day), OccurrenceKey(7, day.AddDays(1)))
}
