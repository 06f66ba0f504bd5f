package booking

import (
	"math"
	"time"
)

// Window describes the bookable slot grid: which hours of a day carry slots,
// how far apart the slot instants sit and how many days ahead the grid
// extends from "today".
type Window struct {
	Days         int
	DayStartHour int
	DayEndHour   int // exclusive: the last slot starts one interval before it
	SlotInterval time.Duration
}

// DefaultWindow is the clinic's standard grid: 30 days of 30-minute slots
// between 09:00 and 17:00.
func DefaultWindow() Window {
	return Window{
		Days:         30,
		DayStartHour: 9,
		DayEndHour:   17,
		SlotInterval: 30 * time.Minute,
	}
}

// Grid returns every candidate slot instant in the window, starting on the
// calendar day of now. The grid is recomputed from the clock on every call,
// so the window rolls forward as days pass instead of draining.
func (w Window) Grid(now time.Time) []time.Time {
	out := make([]time.Time, 0, w.Days*w.slotsPerDay())
	for i := 0; i < w.Days; i++ {
		out = append(out, w.day(now, i)...)
	}
	return out
}

// GridForDay returns the slot instants on date's calendar day, or nil when
// the day lies outside the window.
func (w Window) GridForDay(now, date time.Time) []time.Time {
	first := truncateToDay(now)
	target := truncateToDay(date.In(now.Location()))

	// Round so a DST transition between the two midnights cannot skew the
	// day count.
	offset := int(math.Round(target.Sub(first).Hours() / 24))
	if offset < 0 || offset >= w.Days {
		return nil
	}
	return w.day(now, offset)
}

// Contains reports whether t falls exactly on a grid boundary inside the
// window relative to now.
func (w Window) Contains(now, t time.Time) bool {
	t = t.In(now.Location())

	first := truncateToDay(now)
	if t.Before(first) || !t.Before(first.AddDate(0, 0, w.Days)) {
		return false
	}

	dayStart := time.Date(t.Year(), t.Month(), t.Day(), w.DayStartHour, 0, 0, 0, t.Location())
	dayEnd := time.Date(t.Year(), t.Month(), t.Day(), w.DayEndHour, 0, 0, 0, t.Location())
	if t.Before(dayStart) || !t.Before(dayEnd) {
		return false
	}

	return t.Sub(dayStart)%w.SlotInterval == 0
}

func (w Window) day(now time.Time, offset int) []time.Time {
	d := truncateToDay(now).AddDate(0, 0, offset)
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), w.DayStartHour, 0, 0, 0, d.Location())
	dayEnd := time.Date(d.Year(), d.Month(), d.Day(), w.DayEndHour, 0, 0, 0, d.Location())

	out := make([]time.Time, 0, w.slotsPerDay())
	for cur := dayStart; cur.Before(dayEnd); cur = cur.Add(w.SlotInterval) {
		out = append(out, cur)
	}
	return out
}

func (w Window) slotsPerDay() int {
	span := time.Duration(w.DayEndHour-w.DayStartHour) * time.Hour
	if w.SlotInterval <= 0 {
		return 0
	}
	return int(span / w.SlotInterval)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
