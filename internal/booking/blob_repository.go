package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// BlobRepository persists the entire booking collection as one JSON value
// under a single key, the way the original client kept it in origin-scoped
// browser storage. Reads are served from memory; every mutation serializes
// the full collection, and the in-memory state is replaced only after the
// write succeeds, so a failed write never leaves memory ahead of the store.
type BlobRepository struct {
	client *redis.Client
	key    string

	mu       sync.RWMutex
	bookings []Booking
}

// bookingRecord is the wire form of a Booking. Timestamps round-trip through
// RFC 3339 with nanoseconds, ids and status as-is.
type bookingRecord struct {
	ID                int64     `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	StartTime         time.Time `json:"start_time"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

func toRecord(b Booking) bookingRecord {
	return bookingRecord{
		ID:                b.ID,
		PatientID:         b.PatientID,
		DoctorID:          b.DoctorID,
		StartTime:         b.StartTime,
		IsRecurring:       b.IsRecurring,
		RecurrencePattern: string(b.RecurrencePattern),
		Status:            string(b.Status),
		CreatedAt:         b.CreatedAt,
	}
}

func fromRecord(rec bookingRecord) Booking {
	return Booking{
		ID:                rec.ID,
		PatientID:         rec.PatientID,
		DoctorID:          rec.DoctorID,
		StartTime:         rec.StartTime,
		IsRecurring:       rec.IsRecurring,
		RecurrencePattern: RecurrencePattern(rec.RecurrencePattern),
		Status:            Status(rec.Status),
		CreatedAt:         rec.CreatedAt,
	}
}

// NewBlobRepository loads the existing collection from the key, if any.
func NewBlobRepository(ctx context.Context, client *redis.Client, key string) (*BlobRepository, error) {
	r := &BlobRepository{client: client, key: key}

	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r, nil
		}
		return nil, fmt.Errorf("load bookings blob: %w", err)
	}

	var records []bookingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode bookings blob: %w", err)
	}

	r.bookings = make([]Booking, 0, len(records))
	for _, rec := range records {
		r.bookings = append(r.bookings, fromRecord(rec))
	}
	return r, nil
}

// persist writes the candidate collection; callers commit it to memory only
// when persist returns nil.
func (r *BlobRepository) persist(ctx context.Context, bookings []Booking) error {
	records := make([]bookingRecord, 0, len(bookings))
	for _, b := range bookings {
		records = append(records, toRecord(b))
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersistence, err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrPersistence, r.key, err)
	}
	return nil
}

// snapshot returns a private copy mutations can be applied to.
func (r *BlobRepository) snapshot() []Booking {
	out := make([]Booking, len(r.bookings))
	copy(out, r.bookings)
	return out
}

func (r *BlobRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.bookings {
		if r.bookings[i].ID == id {
			b := r.bookings[i]
			return &b, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (r *BlobRepository) GetActiveAt(ctx context.Context, doctorID uuid.UUID, start time.Time) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Linear scan; the working set is bounded by the window size plus
	// historical bookings.
	for i := range r.bookings {
		b := r.bookings[i]
		if b.DoctorID == doctorID && b.Status.Active() && b.StartTime.Equal(start) {
			return &b, nil
		}
	}
	return nil, ErrBookingNotFound
}

func (r *BlobRepository) ListActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.DoctorID != doctorID || !b.Status.Active() {
			continue
		}
		if b.StartTime.Before(from) || !b.StartTime.Before(to) {
			continue
		}
		out = append(out, b)
	}
	sortByStart(out)
	return out, nil
}

func (r *BlobRepository) Create(ctx context.Context, b *Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := append(r.snapshot(), *b)
	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.bookings = next
	return nil
}

func (r *BlobRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	return r.update(ctx, id, func(b *Booking) {
		b.Status = status
	})
}

func (r *BlobRepository) Reschedule(ctx context.Context, id int64, newStart time.Time) error {
	return r.update(ctx, id, func(b *Booking) {
		b.StartTime = newStart
		b.Status = StatusRescheduled
	})
}

func (r *BlobRepository) update(ctx context.Context, id int64, mutate func(*Booking)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snapshot()
	idx := -1
	for i := range next {
		if next[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrBookingNotFound
	}

	mutate(&next[idx])
	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.bookings = next
	return nil
}

func (r *BlobRepository) ListUpcoming(ctx context.Context, patientID uuid.UUID, now time.Time) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.PatientID == patientID && b.Status == StatusConfirmed && b.StartTime.After(now) {
			out = append(out, b)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *BlobRepository) ListRecurring(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Booking
	for _, b := range r.bookings {
		if b.PatientID == patientID && b.IsRecurring {
			out = append(out, b)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(list []Booking) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].StartTime.Before(list[j].StartTime)
	})
}
