package billingperiod

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthlyPeriod(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart string
		wantEnd   string
	}{
		{
			name:      "february non leap year",
			now:       time.Date(2025, 2, 10, 12, 30, 0, 0, time.UTC),
			wantStart: "2025-02-01",
			wantEnd:   "2025-02-28",
		},
		{
			name:      "february leap year",
			now:       time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			wantStart: "2024-02-01",
			wantEnd:   "2024-02-29",
		},
		{
			name:      "thirty one day month",
			now:       time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC),
			wantStart: "2025-01-01",
			wantEnd:   "2025-01-31",
		},
		{
			name:      "december",
			now:       time.Date(2025, 12, 15, 8, 0, 0, 0, time.UTC),
			wantStart: "2025-12-01",
			wantEnd:   "2025-12-31",
		},
		{
			name:      "non utc input is normalized",
			now:       time.Date(2025, 3, 1, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*3600)),
			wantStart: "2025-02-01",
			wantEnd:   "2025-02-28",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := MonthlyPeriod(tt.now)
			assert.Equal(t, tt.wantStart, p.StartDate())
			assert.Equal(t, tt.wantEnd, p.EndDate())
		})
	}
}

func TestIssuanceTimeEOM(t *testing.T) {
	got := IssuanceTimeEOM(date(2025, 2, 28))
	assert.Equal(t, time.Date(2025, 2, 28, 23, 55, 0, 0, time.UTC), got)
}

func TestNextIssuanceTimeAfter(t *testing.T) {
	t.Run("rolls december into january", func(t *testing.T) {
		got := NextIssuanceTimeAfter(date(2025, 12, 31))
		assert.Equal(t, time.Date(2026, 1, 31, 23, 55, 0, 0, time.UTC), got)
	})

	t.Run("january into february non leap", func(t *testing.T) {
		got := NextIssuanceTimeAfter(date(2025, 1, 31))
		assert.Equal(t, time.Date(2025, 2, 28, 23, 55, 0, 0, time.UTC), got)
	})

	t.Run("january into february leap", func(t *testing.T) {
		got := NextIssuanceTimeAfter(date(2024, 1, 31))
		assert.Equal(t, time.Date(2024, 2, 29, 23, 55, 0, 0, time.UTC), got)
	})
}

func TestDueAt(t *testing.T) {
	issued := time.Date(2025, 1, 31, 23, 55, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 3, 23, 55, 0, 0, time.UTC), DueAt(issued, 3))
}

func TestIsFirstMonthFree(t *testing.T) {
	start := date(2025, 3, 1)
	end := date(2025, 3, 31)

	t.Run("created mid month", func(t *testing.T) {
		created := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)
		assert.True(t, IsFirstMonthFree(created, start, end))
	})

	t.Run("created at lower bound", func(t *testing.T) {
		created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		assert.True(t, IsFirstMonthFree(created, start, end))
	})

	t.Run("created at upper bound", func(t *testing.T) {
		created := time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC)
		assert.True(t, IsFirstMonthFree(created, start, end))
	})

	t.Run("created in previous month", func(t *testing.T) {
		created := time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)
		assert.False(t, IsFirstMonthFree(created, start, end))
	})

	t.Run("created in following month", func(t *testing.T) {
		created := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
		assert.False(t, IsFirstMonthFree(created, start, end))
	})
}
