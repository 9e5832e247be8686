package recurrence

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocDecode(t *testing.T) {
	tests := []struct {
		name    string
		doc     Doc
		want    Rule
		wantErr string
	}{
		{"none", Doc{Kind: KindNone}, None{}, ""},
		{"daily", Doc{Kind: KindDaily}, Daily{}, ""},
		{"weekly", Doc{Kind: KindWeekly, Weekdays: []int{4, 2}}, WeeklyOnWeekdays{Weekdays: NewWeekdaySet(2, 4)}, ""},
		{"monthly day", Doc{Kind: KindMonthlyDay, MonthlyDay: 31}, MonthlyOnDay{Day: 31}, ""},
		{"last day", Doc{Kind: KindMonthlyLastDay}, MonthlyOnLastDay{}, ""},
		{"gated interval", Doc{Kind: KindInterval, Interval: 3, CompletionGated: true}, IntervalDays{N: 3, CompletionGated: true}, ""},
		{"missing kind", Doc{}, nil, "missing rule kind"},
		{"unknown kind", Doc{Kind: "yearly"}, nil, "unknown rule kind"},
		{"empty weekdays", Doc{Kind: KindWeekly}, nil, "at least one weekday"},
		{"weekday out of range", Doc{Kind: KindWeekly, Weekdays: []int{0}}, nil, "between 1 and 7"},
		{"monthly day zero", Doc{Kind: KindMonthlyDay}, nil, "between 1 and 31"},
		{"interval zero", Doc{Kind: KindInterval}, nil, "positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.doc.Decode()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, errors.Is(err, ErrInvalidRule))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeClampsMonthlyDay(t *testing.T) {
	doc := Encode(MonthlyOnDay{Day: 31})
	assert.Equal(t, KindMonthlyDay, doc.Kind)
	assert.Equal(t, 28, doc.MonthlyDay)

	doc = Encode(WeeklyOnWeekdays{Weekdays: NewWeekdaySet(7, 1)})
	assert.Equal(t, []int{1, 7}, doc.Weekdays)
}

func TestDocJSONShape(t *testing.T) {
	raw, err := json.Marshal(Encode(IntervalDays{N: 2, CompletionGated: true}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"interval","interval":2,"completionGated":true}`, string(raw))
}

func TestDateScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan([]byte("2024-03-01 00:00:00+00:00")))
	assert.Equal(t, "2024-03-01", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
}

func TestWindow(t *testing.T) {
	w := HorizonWindow(MustDate("2024-01-01"), 14)
	assert.Equal(t, "2024-01-15", w.End.String())
	assert.Equal(t, 15, w.Days())
	assert.True(t, w.Contains(MustDate("2024-01-15")))
	assert.False(t, w.Contains(MustDate("2024-01-16")))
}
