package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gridNow = time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC)

func TestGridCoversFullWindow(t *testing.T) {
	w := DefaultWindow()
	grid := w.Grid(gridNow)

	require.Len(t, grid, 30*16, "30 days of 16 half-hour slots")

	for _, slot := range grid {
		hour := slot.Hour()
		assert.GreaterOrEqual(t, hour, 9, "slot %s before opening", slot)
		assert.Less(t, hour, 17, "slot %s after closing", slot)
		assert.Zero(t, slot.Minute()%30, "slot %s off the half-hour", slot)
		assert.Zero(t, slot.Second())
	}

	first := grid[0]
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), first)

	last := grid[len(grid)-1]
	assert.Equal(t, time.Date(2026, 3, 31, 16, 30, 0, 0, time.UTC), last)
}

func TestGridRollsForward(t *testing.T) {
	w := DefaultWindow()

	today := w.Grid(gridNow)
	tomorrow := w.Grid(gridNow.AddDate(0, 0, 1))

	require.Len(t, tomorrow, len(today))

	// A day later the grid drops today's slots and gains a new final day.
	assert.Equal(t, today[16], tomorrow[0], "tomorrow's first slot is today's day-two slot")
	assert.Equal(t, time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), tomorrow[len(tomorrow)-16])
}

func TestGridForDay(t *testing.T) {
	w := DefaultWindow()

	day := w.GridForDay(gridNow, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	require.Len(t, day, 16)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), day[0])
	assert.Equal(t, time.Date(2026, 3, 10, 16, 30, 0, 0, time.UTC), day[15])

	assert.Nil(t, w.GridForDay(gridNow, gridNow.AddDate(0, 0, -1)), "yesterday is outside the window")
	assert.Nil(t, w.GridForDay(gridNow, gridNow.AddDate(0, 0, 30)), "day 30 is outside the window")
	assert.NotNil(t, w.GridForDay(gridNow, gridNow.AddDate(0, 0, 29)), "day 29 is the last window day")
}

func TestContains(t *testing.T) {
	w := DefaultWindow()

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"opening slot", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), true},
		{"last slot of day", time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC), true},
		{"mid-window day", time.Date(2026, 3, 15, 13, 30, 0, 0, time.UTC), true},
		{"off the half-hour", time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC), false},
		{"before opening", time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC), false},
		{"at closing", time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), false},
		{"before window", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"past window end", time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, w.Contains(gridNow, tc.t))
		})
	}
}

func TestNextIDStrictlyIncreasing(t *testing.T) {
	now := time.Now()

	prev := NextID(now)
	for i := 0; i < 1000; i++ {
		id := NextID(now)
		require.Greater(t, id, prev, "ids from the same instant must still increase")
		prev = id
	}
}
