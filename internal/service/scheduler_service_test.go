package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDailySpec(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "00:05", want: "0 5 0 * * *"},
		{in: "21:30", want: "0 30 21 * * *"},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := buildDailySpec(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterHourlyTriggers(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)

	var mu sync.Mutex
	fired := map[int]int{}
	ids, err := s.RegisterHourlyTriggers(func(hour int) {
		mu.Lock()
		fired[hour]++
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Len(t, ids, 24)

	entries := s.Entries()
	require.Len(t, entries, 24)

	// Every trigger fires at a distinct hour and is bound to that hour.
	base := time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC)
	hours := map[int]bool{}
	for _, e := range entries {
		next := e.Schedule.Next(base)
		assert.Zero(t, next.Minute())
		hours[next.Hour()] = true
		e.Job.Run()
	}
	assert.Len(t, hours, 24)
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, 1, fired[hour], "hour %d", hour)
	}
}

func TestScheduleIntervalRejectsNonPositive(t *testing.T) {
	s := NewSchedulerService(time.UTC, nil)
	_, err := s.ScheduleInterval(0, func() {})
	assert.Error(t, err)

	_, err = s.ScheduleInterval(6*time.Hour, func() {})
	assert.NoError(t, err)
}
