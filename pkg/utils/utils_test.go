package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSymbols(t *testing.T) {
	got := NormalizeSymbols([]string{" aapl", "MSFT", "", "AAPL", "nvda "})
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, got)
}

func TestClampAndRound(t *testing.T) {
	assert.Equal(t, 0.2, Clamp(0.15, 0.2, 2.0))
	assert.Equal(t, 2.0, Clamp(3, 0.2, 2.0))
	assert.Equal(t, 1.5, Clamp(1.5, 0.2, 2.0))
	assert.Equal(t, 100.47, RoundTo(100.4700000001, 2))
}

func TestLoadLocationFallback(t *testing.T) {
	assert.Equal(t, time.UTC, LoadLocation(""))
	assert.Equal(t, time.UTC, LoadLocation("Not/AZone"))
}

func TestMinutesOfDayAndWeekend(t *testing.T) {
	ts := time.Date(2024, 6, 8, 9, 45, 0, 0, time.UTC) // Saturday
	assert.Equal(t, 585, MinutesOfDay(ts))
	assert.True(t, IsWeekend(ts))
	assert.False(t, IsWeekend(ts.AddDate(0, 0, 2)))
}
