package booking

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusConfirmed   Status = "confirmed"
	StatusCancelled   Status = "cancelled"
	StatusRescheduled Status = "rescheduled"
)

// Active reports whether a booking in this status still occupies its slot.
func (s Status) Active() bool {
	return s == StatusConfirmed || s == StatusRescheduled
}

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = ""
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
	RecurrenceCustom  RecurrencePattern = "custom"
)

func (p RecurrencePattern) valid() bool {
	switch p {
	case RecurrenceWeekly, RecurrenceMonthly, RecurrenceCustom:
		return true
	}
	return false
}

// Booking is a confirmed, cancelled or rescheduled appointment record tied to
// one patient, one doctor and one slot instant. Bookings are never physically
// deleted; cancel and reschedule are status transitions.
type Booking struct {
	ID                int64
	PatientID         uuid.UUID
	DoctorID          uuid.UUID
	StartTime         time.Time
	IsRecurring       bool
	RecurrencePattern RecurrencePattern
	Status            Status
	CreatedAt         time.Time
}

// Slot is a candidate bookable instant for one doctor. Slots are derived from
// the window grid on demand and never persisted.
type Slot struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

var lastID atomic.Int64

// NextID returns a process-unique increasing id. Ids are millisecond
// timestamps, bumped past the previous id when two calls land on the same
// millisecond.
func NextID(now time.Time) int64 {
	for {
		candidate := now.UnixMilli()
		prev := lastID.Load()
		if candidate <= prev {
			candidate = prev + 1
		}
		if lastID.CompareAndSwap(prev, candidate) {
			return candidate
		}
	}
}
