package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/caredesk/appointment-booking/internal/metrics"
	redisclient "github.com/caredesk/appointment-booking/internal/redis"
	"github.com/caredesk/appointment-booking/pkg/logging"
)

var (
	ErrSlotUnavailable = errors.New("slot already has an active booking")
	ErrSlotBeingBooked = errors.New("slot is currently being booked, please retry")
	ErrSlotOffGrid     = errors.New("start time is not on the bookable slot grid")
	ErrInvalidPattern  = errors.New("unknown recurrence pattern")
)

// LockKeyFunc builds the critical-section key guarding a booking attempt.
// The default scopes the lock to {doctor, instant}; a deployment that wants
// the legacy single-provider behavior can inject a key that drops the doctor
// dimension.
type LockKeyFunc func(doctorID uuid.UUID, start time.Time) string

func DefaultLockKey(doctorID uuid.UUID, start time.Time) string {
	return fmt.Sprintf("slot:%s:%d", doctorID, start.UTC().Unix())
}

// ReminderCanceller lets the service revoke the reminder attached to a
// booking it cancels. Implementations treat a booking without a reminder as
// a no-op.
type ReminderCanceller interface {
	CancelForBooking(ctx context.Context, appointmentID int64) error
}

// ServiceConfig carries the service collaborators that have usable defaults.
type ServiceConfig struct {
	Window    Window
	LockKey   LockKeyFunc
	Now       func() time.Time
	Reminders ReminderCanceller // optional
	Logger    *logging.Logger
}

// Service is the only writer of booking records and the single source of
// truth for conflict rejection.
type Service struct {
	repo      Repository
	locker    redisclient.Locker
	window    Window
	lockKey   LockKeyFunc
	now       func() time.Time
	reminders ReminderCanceller
	log       *logging.Logger
}

func NewService(repo Repository, locker redisclient.Locker, cfg ServiceConfig) *Service {
	if cfg.Window.Days == 0 {
		cfg.Window = DefaultWindow()
	}
	if cfg.LockKey == nil {
		cfg.LockKey = DefaultLockKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Service{
		repo:      repo,
		locker:    locker,
		window:    cfg.Window,
		lockKey:   cfg.LockKey,
		now:       cfg.Now,
		reminders: cfg.Reminders,
		log:       cfg.Logger,
	}
}

// Book reserves a slot instant for a patient. The per-slot distributed lock
// keeps two concurrent requests for the same instant from both passing the
// conflict check.
func (s *Service) Book(ctx context.Context, patientID, doctorID uuid.UUID, start time.Time, isRecurring bool, pattern RecurrencePattern) (*Booking, error) {
	now := s.now()

	if !s.window.Contains(now, start) {
		return nil, ErrSlotOffGrid
	}
	if isRecurring && !pattern.valid() {
		return nil, ErrInvalidPattern
	}
	if !isRecurring {
		pattern = RecurrenceNone
	}

	var created *Booking

	err := s.locker.WithLock(ctx, s.lockKey(doctorID, start), func(lockCtx context.Context) error {
		existing, err := s.repo.GetActiveAt(lockCtx, doctorID, start)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return fmt.Errorf("check active booking: %w", err)
		}
		if existing != nil {
			return ErrSlotUnavailable
		}

		b := &Booking{
			ID:                NextID(now),
			PatientID:         patientID,
			DoctorID:          doctorID,
			StartTime:         start,
			IsRecurring:       isRecurring,
			RecurrencePattern: pattern,
			Status:            StatusConfirmed,
			CreatedAt:         now,
		}
		if err := s.repo.Create(lockCtx, b); err != nil {
			return fmt.Errorf("create booking: %w", err)
		}

		created = b
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			metrics.BookingConflicts.Inc()
			return nil, ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotUnavailable) {
			metrics.BookingConflicts.Inc()
		}
		return nil, err
	}

	metrics.BookingsCreated.Inc()
	s.log.Info("booking created",
		"booking_id", created.ID,
		"patient_id", patientID,
		"doctor_id", doctorID,
		"start_time", start,
		"recurring", isRecurring,
	)
	return created, nil
}

// Get returns one booking by id.
func (s *Service) Get(ctx context.Context, id int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}
	return b, nil
}

// Cancel marks a booking cancelled and revokes its reminder. A repeated
// cancel reports ErrAlreadyCancelled so callers can tell it from an unknown
// id.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if b.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	if err := s.repo.SetStatus(ctx, id, StatusCancelled); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	metrics.BookingsCancelled.Inc()

	if s.reminders != nil {
		if err := s.reminders.CancelForBooking(ctx, id); err != nil {
			// The booking is already cancelled; a reminder store failure
			// must not undo that, so log and move on.
			s.log.Error("cancel reminder for booking", "booking_id", id, "error", err)
		}
	}

	s.log.Info("booking cancelled", "booking_id", id)
	return nil
}

// Reschedule moves a booking to a new slot instant. The new instant gets the
// same conflict check as a fresh booking.
func (s *Service) Reschedule(ctx context.Context, id int64, newStart time.Time) error {
	now := s.now()

	if !s.window.Contains(now, newStart) {
		return ErrSlotOffGrid
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load booking: %w", err)
	}
	if b.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	err = s.locker.WithLock(ctx, s.lockKey(b.DoctorID, newStart), func(lockCtx context.Context) error {
		existing, err := s.repo.GetActiveAt(lockCtx, b.DoctorID, newStart)
		if err != nil && !errors.Is(err, ErrBookingNotFound) {
			return fmt.Errorf("check active booking: %w", err)
		}
		if existing != nil && existing.ID != id {
			return ErrSlotUnavailable
		}

		if err := s.repo.Reschedule(lockCtx, id, newStart); err != nil {
			return fmt.Errorf("reschedule booking: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return ErrSlotBeingBooked
		}
		if errors.Is(err, ErrSlotUnavailable) {
			metrics.BookingConflicts.Inc()
		}
		return err
	}

	s.log.Info("booking rescheduled", "booking_id", id, "new_start", newStart)
	return nil
}

// Upcoming returns the patient's confirmed future bookings, soonest first.
// The list is recomputed on every call.
func (s *Service) Upcoming(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	list, err := s.repo.ListUpcoming(ctx, patientID, s.now())
	if err != nil {
		return nil, fmt.Errorf("list upcoming bookings: %w", err)
	}
	return list, nil
}

// Recurring returns the patient's bookings flagged as recurring.
func (s *Service) Recurring(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	list, err := s.repo.ListRecurring(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list recurring bookings: %w", err)
	}
	return list, nil
}

// AvailableSlots returns the doctor's free grid instants on date's calendar
// day: the day's grid minus instants occupied by an active booking.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	now := s.now()

	grid := s.window.GridForDay(now, date)
	if len(grid) == 0 {
		return nil, nil
	}

	from := grid[0]
	to := grid[len(grid)-1].Add(s.window.SlotInterval)

	active, err := s.repo.ListActiveInRange(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}

	booked := make(map[int64]struct{}, len(active))
	for _, b := range active {
		booked[b.StartTime.Unix()] = struct{}{}
	}

	slots := make([]Slot, 0, len(grid))
	for _, instant := range grid {
		if _, taken := booked[instant.Unix()]; taken {
			continue
		}
		slots = append(slots, Slot{
			DoctorID: doctorID,
			Start:    instant,
			End:      instant.Add(s.window.SlotInterval),
		})
	}
	return slots, nil
}
