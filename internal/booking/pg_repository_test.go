package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pgColumns = []string{
	"id", "patient_id", "doctor_id", "start_time",
	"is_recurring", "recurrence_pattern", "status", "created_at",
}

func newPgRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPgRepository(mock), mock
}

func TestPgGetByID(t *testing.T) {
	repo, mock := newPgRepo(t)
	start := slotAt(10, 9, 0)

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow(int64(42), testPatient, testDoctor, start, false, "", "confirmed", testNow))

	got, err := repo.GetByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.True(t, got.StartTime.Equal(start))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetByIDNotFound(t *testing.T) {
	repo, mock := newPgRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE id = \$1`).
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows(pgColumns))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgGetActiveAt(t *testing.T) {
	repo, mock := newPgRepo(t)
	start := slotAt(10, 9, 0)

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE doctor_id = \$1`).
		WithArgs(testDoctor, start).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow(int64(1), testPatient, testDoctor, start, false, "", "rescheduled", testNow))

	got, err := repo.GetActiveAt(context.Background(), testDoctor, start)
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, got.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreate(t *testing.T) {
	repo, mock := newPgRepo(t)
	b := testBooking(7, slotAt(10, 9, 0))

	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(b.ID, b.PatientID, b.DoctorID, b.StartTime, b.IsRecurring, "", "confirmed", b.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCreateWrapsPersistenceError(t *testing.T) {
	repo, mock := newPgRepo(t)
	b := testBooking(7, slotAt(10, 9, 0))

	mock.ExpectExec(`INSERT INTO bookings`).
		WithArgs(b.ID, b.PatientID, b.DoctorID, b.StartTime, b.IsRecurring, "", "confirmed", b.CreatedAt).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), b)
	assert.ErrorIs(t, err, ErrPersistence)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSetStatus(t *testing.T) {
	repo, mock := newPgRepo(t)

	mock.ExpectExec(`UPDATE bookings\s+SET status = \$2`).
		WithArgs(int64(7), "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetStatus(context.Background(), 7, StatusCancelled))

	mock.ExpectExec(`UPDATE bookings\s+SET status = \$2`).
		WithArgs(int64(404), "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.SetStatus(context.Background(), 404, StatusCancelled), ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgReschedule(t *testing.T) {
	repo, mock := newPgRepo(t)
	newStart := slotAt(11, 14, 0)

	mock.ExpectExec(`UPDATE bookings\s+SET start_time = \$2`).
		WithArgs(int64(7), newStart).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Reschedule(context.Background(), 7, newStart))

	mock.ExpectExec(`UPDATE bookings\s+SET start_time = \$2`).
		WithArgs(int64(404), newStart).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.ErrorIs(t, repo.Reschedule(context.Background(), 404, newStart), ErrBookingNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListUpcoming(t *testing.T) {
	repo, mock := newPgRepo(t)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE patient_id = \$1\s+AND start_time > \$2`).
		WithArgs(testPatient, now).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow(int64(1), testPatient, testDoctor, slotAt(5, 9, 0), false, "", "confirmed", testNow).
			AddRow(int64(2), testPatient, testDoctor, slotAt(20, 15, 0), false, "", "confirmed", testNow))

	list, err := repo.ListUpcoming(context.Background(), testPatient, now)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgListRecurring(t *testing.T) {
	repo, mock := newPgRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM bookings\s+WHERE patient_id = \$1\s+AND is_recurring`).
		WithArgs(testPatient).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow(int64(1), testPatient, testDoctor, slotAt(10, 9, 0), true, "weekly", "confirmed", testNow))

	list, err := repo.ListRecurring(context.Background(), testPatient)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsRecurring)
	assert.Equal(t, RecurrenceWeekly, list[0].RecurrencePattern)

	require.NoError(t, mock.ExpectationsWereMet())
}
