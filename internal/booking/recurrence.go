package booking

import "time"

// Occurrences expands a recurring booking into its occurrence instants,
// starting with the booking's own start time and bounded by count. Only the
// series is produced here; materializing child bookings stays with the
// caller, which books each occurrence through the normal conflict check.
// Custom patterns are opaque to this module and yield the first occurrence
// only.
func Occurrences(b *Booking, count int) []time.Time {
	if count <= 0 {
		return nil
	}
	if !b.IsRecurring {
		return []time.Time{b.StartTime}
	}

	var step func(time.Time, int) time.Time
	switch b.RecurrencePattern {
	case RecurrenceWeekly:
		step = func(t time.Time, n int) time.Time { return t.AddDate(0, 0, 7*n) }
	case RecurrenceMonthly:
		step = func(t time.Time, n int) time.Time { return t.AddDate(0, n, 0) }
	default:
		return []time.Time{b.StartTime}
	}

	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, step(b.StartTime, i))
	}
	return out
}

// OccurrencesUntil expands a recurring booking up to and including the last
// occurrence at or before until.
func OccurrencesUntil(b *Booking, until time.Time) []time.Time {
	if b.StartTime.After(until) {
		return nil
	}
	if !b.IsRecurring {
		return []time.Time{b.StartTime}
	}

	// Bounded expansion: take a generous count and trim. Weekly over ten
	// years stays near 520 entries, so this never balloons.
	const maxOccurrences = 1024
	all := Occurrences(b, maxOccurrences)

	out := all[:0:0]
	for _, t := range all {
		if t.After(until) {
			break
		}
		out = append(out, t)
	}
	return out
}
