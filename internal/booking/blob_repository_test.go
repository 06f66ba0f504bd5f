package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blobKey = "caredesk:bookings"

func newBlobRepo(t *testing.T) (*BlobRepository, *miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo, err := NewBlobRepository(context.Background(), client, blobKey)
	require.NoError(t, err)
	return repo, mr, client
}

func testBooking(id int64, start time.Time) *Booking {
	return &Booking{
		ID:        id,
		PatientID: testPatient,
		DoctorID:  testDoctor,
		StartTime: start,
		Status:    StatusConfirmed,
		CreatedAt: testNow,
	}
}

func TestBlobRoundTrip(t *testing.T) {
	repo, _, client := newBlobRepo(t)
	ctx := context.Background()

	orig := &Booking{
		ID:                42,
		PatientID:         testPatient,
		DoctorID:          testDoctor,
		StartTime:         slotAt(10, 9, 30),
		IsRecurring:       true,
		RecurrencePattern: RecurrenceWeekly,
		Status:            StatusConfirmed,
		CreatedAt:         testNow,
	}
	require.NoError(t, repo.Create(ctx, orig))

	// A fresh repository reading the same key sees an equivalent booking.
	reloaded, err := NewBlobRepository(ctx, client, blobKey)
	require.NoError(t, err)

	got, err := reloaded.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, got.ID)
	assert.Equal(t, orig.PatientID, got.PatientID)
	assert.Equal(t, orig.DoctorID, got.DoctorID)
	assert.True(t, got.StartTime.Equal(orig.StartTime))
	assert.True(t, got.IsRecurring)
	assert.Equal(t, RecurrenceWeekly, got.RecurrencePattern)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.True(t, got.CreatedAt.Equal(orig.CreatedAt))
}

func TestBlobMissingKeyStartsEmpty(t *testing.T) {
	repo, _, _ := newBlobRepo(t)

	_, err := repo.GetByID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBlobGetActiveAt(t *testing.T) {
	repo, _, _ := newBlobRepo(t)
	ctx := context.Background()
	start := slotAt(10, 9, 0)

	require.NoError(t, repo.Create(ctx, testBooking(1, start)))

	got, err := repo.GetActiveAt(ctx, testDoctor, start)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)

	_, err = repo.GetActiveAt(ctx, testDoctor, slotAt(10, 9, 30))
	assert.ErrorIs(t, err, ErrBookingNotFound)

	_, err = repo.GetActiveAt(ctx, uuid.New(), start)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	// A cancelled booking no longer occupies the instant.
	require.NoError(t, repo.SetStatus(ctx, 1, StatusCancelled))
	_, err = repo.GetActiveAt(ctx, testDoctor, start)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBlobSetStatusPersists(t *testing.T) {
	repo, _, client := newBlobRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testBooking(1, slotAt(10, 9, 0))))
	require.NoError(t, repo.SetStatus(ctx, 1, StatusCancelled))

	reloaded, err := NewBlobRepository(ctx, client, blobKey)
	require.NoError(t, err)
	got, err := reloaded.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	assert.ErrorIs(t, repo.SetStatus(ctx, 404, StatusCancelled), ErrBookingNotFound)
}

func TestBlobReschedule(t *testing.T) {
	repo, _, _ := newBlobRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testBooking(1, slotAt(10, 9, 0))))

	newStart := slotAt(11, 14, 0)
	require.NoError(t, repo.Reschedule(ctx, 1, newStart))

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.StartTime.Equal(newStart))
	assert.Equal(t, StatusRescheduled, got.Status)
}

func TestBlobFailedWriteLeavesMemoryUnchanged(t *testing.T) {
	repo, mr, _ := newBlobRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testBooking(1, slotAt(10, 9, 0))))

	mr.SetError("redis gone")
	defer mr.SetError("")

	err := repo.Create(ctx, testBooking(2, slotAt(10, 9, 30)))
	require.ErrorIs(t, err, ErrPersistence)

	err = repo.SetStatus(ctx, 1, StatusCancelled)
	require.ErrorIs(t, err, ErrPersistence)

	mr.SetError("")

	// Memory never got ahead of the store: the failed create is absent and
	// the failed status flip did not apply.
	_, err = repo.GetByID(ctx, 2)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestBlobListUpcoming(t *testing.T) {
	repo, _, _ := newBlobRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testBooking(2, slotAt(20, 15, 0))))
	require.NoError(t, repo.Create(ctx, testBooking(1, slotAt(5, 9, 0))))
	require.NoError(t, repo.Create(ctx, testBooking(3, slotAt(1, 9, 0)))) // in the past

	other := testBooking(4, slotAt(6, 9, 0))
	other.PatientID = uuid.New()
	require.NoError(t, repo.Create(ctx, other))

	list, err := repo.ListUpcoming(ctx, testPatient, testNow)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID, "ascending by start time")
	assert.Equal(t, int64(2), list[1].ID)
}

func TestBlobListActiveInRange(t *testing.T) {
	repo, _, _ := newBlobRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testBooking(1, slotAt(10, 9, 0))))
	require.NoError(t, repo.Create(ctx, testBooking(2, slotAt(10, 16, 30))))
	require.NoError(t, repo.Create(ctx, testBooking(3, slotAt(11, 9, 0)))) // next day

	from := slotAt(10, 9, 0)
	to := slotAt(10, 17, 0)

	list, err := repo.ListActiveInRange(ctx, testDoctor, from, to)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, int64(2), list[1].ID)
}

func TestBlobListRecurring(t *testing.T) {
	repo, _, _ := newBlobRepo(t)
	ctx := context.Background()

	rec := testBooking(1, slotAt(10, 9, 0))
	rec.IsRecurring = true
	rec.RecurrencePattern = RecurrenceMonthly
	require.NoError(t, repo.Create(ctx, rec))
	require.NoError(t, repo.Create(ctx, testBooking(2, slotAt(10, 9, 30))))

	list, err := repo.ListRecurring(ctx, testPatient)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)
	assert.Equal(t, RecurrenceMonthly, list[0].RecurrencePattern)
}
