package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; tests substitute a
// pgxmock pool.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const bookingColumns = `id, patient_id, doctor_id, start_time, is_recurring, recurrence_pattern, status, created_at`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var pattern string

	err := row.Scan(
		&b.ID,
		&b.PatientID,
		&b.DoctorID,
		&b.StartTime,
		&b.IsRecurring,
		&pattern,
		&b.Status,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.RecurrencePattern = RecurrencePattern(pattern)
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) GetActiveAt(ctx context.Context, doctorID uuid.UUID, start time.Time) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE doctor_id = $1
		  AND start_time = $2
		  AND status IN ('confirmed', 'rescheduled')
	`, doctorID, start)
	return scanBooking(row)
}

func (r *PgRepository) ListActiveInRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE doctor_id = $1
		  AND start_time >= $2
		  AND start_time < $3
		  AND status IN ('confirmed', 'rescheduled')
		ORDER BY start_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) Create(ctx context.Context, b *Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (id, patient_id, doctor_id, start_time, is_recurring, recurrence_pattern, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, b.ID, b.PatientID, b.DoctorID, b.StartTime, b.IsRecurring, string(b.RecurrencePattern), string(b.Status), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert booking: %w", ErrPersistence, err)
	}
	return nil
}

func (r *PgRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("%w: update status: %w", ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id int64, newStart time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET start_time = $2, status = 'rescheduled'
		WHERE id = $1
	`, id, newStart)
	if err != nil {
		return fmt.Errorf("%w: reschedule: %w", ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgRepository) ListUpcoming(ctx context.Context, patientID uuid.UUID, now time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE patient_id = $1
		  AND start_time > $2
		  AND status = 'confirmed'
		ORDER BY start_time
	`, patientID, now)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgRepository) ListRecurring(ctx context.Context, patientID uuid.UUID) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE patient_id = $1
		  AND is_recurring
		ORDER BY start_time
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}
