package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	t.Run("Valid date", func(t *testing.T) {
		d, err := ParseDate("2024-01-15")
		assert.NoError(t, err)
		assert.Equal(t, date(2024, time.January, 15), d)
	})

	t.Run("Invalid format", func(t *testing.T) {
		_, err := ParseDate("2024/01/15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid date format")
	})

	t.Run("Invalid month", func(t *testing.T) {
		_, err := ParseDate("2024-13-15")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "month must be between 1 and 12")
	})

	t.Run("Day past month end", func(t *testing.T) {
		_, err := ParseDate("2023-02-29")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "day must be between 1 and 28")
	})
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year     int
		month    int
		expected int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 11, 30},
		{2000, 2, 29},
		{1900, 2, 28},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, DaysInMonth(tt.year, tt.month))
		})
	}
}

func TestAddMonths(t *testing.T) {
	t.Run("Plain month steps", func(t *testing.T) {
		start := date(2025, time.March, 15)
		assert.Equal(t, date(2025, time.April, 15), AddMonths(start, 1))
		assert.Equal(t, date(2028, time.March, 15), AddMonths(start, 36))
	})

	t.Run("Year rollover", func(t *testing.T) {
		assert.Equal(t, date(2026, time.February, 10), AddMonths(date(2025, time.November, 10), 3))
	})

	t.Run("Clamps to month end", func(t *testing.T) {
		assert.Equal(t, date(2025, time.February, 28), AddMonths(date(2025, time.January, 31), 1))
		assert.Equal(t, date(2024, time.February, 29), AddMonths(date(2024, time.January, 31), 1))
		assert.Equal(t, date(2025, time.March, 31), AddMonths(date(2025, time.January, 31), 2))
	})

	t.Run("Negative months", func(t *testing.T) {
		assert.Equal(t, date(2024, time.December, 5), AddMonths(date(2025, time.January, 5), -1))
	})
}

func TestMonthsBetween(t *testing.T) {
	assert.Equal(t, 36, MonthsBetween(date(2025, time.January, 1), date(2027, time.December, 31)))
	assert.Equal(t, 12, MonthsBetween(date(2025, time.March, 15), date(2026, time.March, 14)))
	assert.Equal(t, 0, MonthsBetween(date(2025, time.March, 15), date(2025, time.March, 20)))
	assert.Equal(t, 0, MonthsBetween(date(2025, time.March, 15), date(2025, time.March, 1)))
}
