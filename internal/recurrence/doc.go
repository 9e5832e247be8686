package recurrence

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidRule is matched by every *DecodeError.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// DecodeError reports stored or submitted rule data that cannot form a Rule.
type DecodeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("recurrence rule: %s=%s: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("recurrence rule: %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrInvalidRule
}

// Doc is the persisted shape of a rule: {kind, interval?, weekdays?, monthlyDay?, completionGated?}.
// Rows embed it (templates) or snapshot it (tasks); Decode is the only way back to a Rule.
type Doc struct {
	Kind            Kind  `gorm:"size:32" json:"kind"`
	Interval        int   `json:"interval,omitempty"`
	Weekdays        []int `gorm:"serializer:json" json:"weekdays,omitempty"`
	MonthlyDay      int   `json:"monthlyDay,omitempty"`
	CompletionGated bool  `json:"completionGated,omitempty"`
}

// Decode validates d and returns the tagged rule it describes.
func (d Doc) Decode() (Rule, error) {
	var rule Rule
	switch d.Kind {
	case KindNone:
		rule = None{}
	case KindDaily:
		rule = Daily{}
	case KindWeekly:
		for _, wd := range d.Weekdays {
			if wd < 1 || wd > 7 {
				return nil, &DecodeError{Field: "weekdays", Value: strconv.Itoa(wd), Reason: "weekday must be between 1 and 7"}
			}
		}
		rule = WeeklyOnWeekdays{Weekdays: NewWeekdaySet(d.Weekdays...)}
	case KindMonthlyDay:
		if d.MonthlyDay > 31 {
			return nil, &DecodeError{Field: "monthlyDay", Value: strconv.Itoa(d.MonthlyDay), Reason: "must be between 1 and 31"}
		}
		rule = MonthlyOnDay{Day: d.MonthlyDay}
	case KindMonthlyLastDay:
		rule = MonthlyOnLastDay{}
	case KindInterval:
		rule = IntervalDays{N: d.Interval, CompletionGated: d.CompletionGated}
	case "":
		return nil, &DecodeError{Field: "kind", Reason: "missing rule kind"}
	default:
		return nil, &DecodeError{Field: "kind", Value: string(d.Kind), Reason: "unknown rule kind"}
	}
	if err := Validate(rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Encode returns the persisted shape of rule. Monthly days are stored clamped.
func Encode(rule Rule) Doc {
	switch r := rule.(type) {
	case Daily:
		return Doc{Kind: KindDaily}
	case WeeklyOnWeekdays:
		return Doc{Kind: KindWeekly, Weekdays: r.Weekdays.Days()}
	case MonthlyOnDay:
		return Doc{Kind: KindMonthlyDay, MonthlyDay: clampMonthDay(r.Day)}
	case MonthlyOnLastDay:
		return Doc{Kind: KindMonthlyLastDay}
	case IntervalDays:
		return Doc{Kind: KindInterval, Interval: r.N, CompletionGated: r.CompletionGated}
	default:
		return Doc{Kind: KindNone}
	}
}

// Normalize returns d with duplicate weekdays removed and sorted.
func (d Doc) Normalize() Doc {
	if len(d.Weekdays) > 0 {
		d.Weekdays = sortedUnique(d.Weekdays)
	}
	return d
}
