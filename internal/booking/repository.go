package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking is already cancelled")

	// ErrPersistence marks a failed write to the backing store. The
	// in-memory state is unchanged when it is returned.
	ErrPersistence = errors.New("booking store write failed")
)

// Repository contains all storage interactions needed by the service.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Booking, error)

	// GetActiveAt returns the confirmed or rescheduled booking occupying a
	// doctor's slot instant; ErrBookingNotFound when the instant is free.
	GetActiveAt(ctx context.Context, doctorID uuid.UUID, start time.Time) (*Booking, error)

	// ListActiveInRange returns active bookings for one doctor with
	// start >= from and start < to.
	ListActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Booking, error)

	Create(ctx context.Context, b *Booking) error
	SetStatus(ctx context.Context, id int64, status Status) error

	// Reschedule moves the booking's start time and sets its status to
	// rescheduled in one write.
	Reschedule(ctx context.Context, id int64, newStart time.Time) error

	// ListUpcoming returns a patient's confirmed bookings with
	// start > now, ascending by start time.
	ListUpcoming(ctx context.Context, patientID uuid.UUID, now time.Time) ([]Booking, error)

	// ListRecurring returns a patient's bookings flagged as recurring.
	ListRecurring(ctx context.Context, patientID uuid.UUID) ([]Booking, error)
}
