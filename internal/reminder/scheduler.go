package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caredesk/appointment-booking/internal/booking"
	"github.com/caredesk/appointment-booking/internal/metrics"
	"github.com/caredesk/appointment-booking/pkg/logging"
)

var (
	ErrInvalidLead    = errors.New("reminder lead must be positive")
	ErrUnknownChannel = errors.New("unknown notification channel")
)

// Clock abstracts time so tests can fast-forward deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is the disposable handle of an armed callback. Stop reports whether
// the callback was prevented from running.
type Timer interface {
	Stop() bool
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

const fireTimeout = 15 * time.Second

// Scheduler derives a reminder from a booking, persists it and arms a timer
// for its fire instant. Cancellation disposes the armed timer handle before
// touching the status flag, so a cancelled reminder can never fire.
type Scheduler struct {
	store      Store
	dispatcher *Dispatcher
	clock      Clock
	log        *logging.Logger

	mu     sync.Mutex
	timers map[int64]Timer // keyed by appointment id
}

func NewScheduler(store Store, dispatcher *Dispatcher, clock Clock, log *logging.Logger) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if log == nil {
		log = logging.Default()
	}
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		clock:      clock,
		log:        log,
		timers:     make(map[int64]Timer),
	}
}

// Schedule computes the fire instant (booking start minus lead), persists
// the reminder and arms its timer. A fire instant already in the past fires
// on the spot. The scheduler keeps only the appointment id, never the
// booking itself.
func (s *Scheduler) Schedule(ctx context.Context, b *booking.Booking, lead time.Duration, channels []Channel, caregiver *Caregiver) (*Reminder, error) {
	if lead <= 0 {
		return nil, ErrInvalidLead
	}
	for _, ch := range channels {
		if !ch.Requestable() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
		}
	}
	if len(channels) == 0 {
		// Mirror the form default: email when nothing is ticked.
		channels = []Channel{ChannelEmail}
	}

	now := s.clock.Now()
	r := &Reminder{
		ID:            booking.NextID(now),
		AppointmentID: b.ID,
		PatientID:     b.PatientID,
		FireAt:        b.StartTime.Add(-lead),
		Channels:      channels,
		Caregiver:     caregiver,
		Status:        StatusScheduled,
		CreatedAt:     now,
	}

	if err := s.store.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save reminder: %w", err)
	}

	s.arm(r.AppointmentID, r.FireAt)
	metrics.RemindersScheduled.Inc()
	s.log.Info("reminder scheduled",
		"appointment_id", r.AppointmentID,
		"fire_at", r.FireAt,
		"channels", len(channels),
	)
	return r, nil
}

// Rearm loads every still-scheduled reminder from the store and arms timers
// for them. Called once at process start so reminders created by a previous
// run keep firing.
func (s *Scheduler) Rearm(ctx context.Context) (int, error) {
	list, err := s.store.ListScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled reminders: %w", err)
	}
	for i := range list {
		s.arm(list[i].AppointmentID, list[i].FireAt)
	}
	return len(list), nil
}

func (s *Scheduler) arm(appointmentID int64, fireAt time.Time) {
	delay := fireAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[appointmentID]; ok {
		old.Stop()
	}
	s.timers[appointmentID] = s.clock.AfterFunc(delay, func() {
		s.fire(appointmentID)
	})
}

func (s *Scheduler) fire(appointmentID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	s.mu.Lock()
	delete(s.timers, appointmentID)
	s.mu.Unlock()

	r, err := s.store.GetByAppointment(ctx, appointmentID)
	if err != nil {
		s.log.Error("load reminder at fire time", "appointment_id", appointmentID, "error", err)
		return
	}
	// A cancellation that raced the timer wins here.
	if r.Status != StatusScheduled {
		return
	}

	s.dispatcher.Dispatch(ctx, r)

	if err := s.store.SetStatus(ctx, appointmentID, StatusSent); err != nil {
		s.log.Error("mark reminder sent", "appointment_id", appointmentID, "error", err)
	}
}

// Cancel stops and releases the armed timer, then marks the reminder
// cancelled and notifies staff. Repeated cancels are no-ops.
func (s *Scheduler) Cancel(ctx context.Context, appointmentID int64) error {
	s.mu.Lock()
	if t, ok := s.timers[appointmentID]; ok {
		t.Stop()
		delete(s.timers, appointmentID)
	}
	s.mu.Unlock()

	r, err := s.store.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if r.Status == StatusCancelled {
		return nil
	}

	if err := s.store.SetStatus(ctx, appointmentID, StatusCancelled); err != nil {
		return fmt.Errorf("mark reminder cancelled: %w", err)
	}

	s.dispatcher.NotifyStaffCancellation(ctx, r)
	s.log.Info("reminder cancelled", "appointment_id", appointmentID)
	return nil
}

// CancelForBooking is the hook the booking service calls on cancellation.
// Unlike Cancel it treats a booking without a reminder as a no-op.
func (s *Scheduler) CancelForBooking(ctx context.Context, appointmentID int64) error {
	err := s.Cancel(ctx, appointmentID)
	if errors.Is(err, ErrReminderNotFound) {
		return nil
	}
	return err
}
