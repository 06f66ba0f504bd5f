package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*Worker, *memStore, *captureNotifier) {
	t.Helper()

	store := newMemStore()
	email := &captureNotifier{}
	dispatcher := NewDispatcher(quietLogger())
	dispatcher.Register(ChannelEmail, email)

	worker := NewWorker(store, dispatcher, quietLogger())
	worker.now = func() time.Time { return schedNow }
	return worker, store, email
}

func TestProcessDue(t *testing.T) {
	worker, store, email := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Reminder{
		ID: 1, AppointmentID: 1, PatientID: schedPatient,
		FireAt:   schedNow.Add(-time.Hour),
		Channels: []Channel{ChannelEmail},
		Status:   StatusScheduled,
	}))
	require.NoError(t, store.Save(ctx, &Reminder{
		ID: 2, AppointmentID: 2, PatientID: schedPatient,
		FireAt:   schedNow.Add(time.Hour),
		Channels: []Channel{ChannelEmail},
		Status:   StatusScheduled,
	}))

	n, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the overdue reminder fires")
	assert.Equal(t, []int64{1}, email.calls)

	fired, err := store.GetByAppointment(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusSent, fired.Status)

	pending, err := store.GetByAppointment(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, pending.Status)
}

func TestProcessDueIdempotentAcrossSweeps(t *testing.T) {
	worker, store, email := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Reminder{
		ID: 1, AppointmentID: 1, PatientID: schedPatient,
		FireAt:   schedNow.Add(-time.Hour),
		Channels: []Channel{ChannelEmail},
		Status:   StatusScheduled,
	}))

	n, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "a sent reminder is not swept again")
	assert.Equal(t, 1, email.count())
}

func TestProcessDueSkipsCancelled(t *testing.T) {
	worker, store, email := newTestWorker(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Reminder{
		ID: 1, AppointmentID: 1, PatientID: schedPatient,
		FireAt:   schedNow.Add(-time.Hour),
		Channels: []Channel{ChannelEmail},
		Status:   StatusCancelled,
	}))

	n, err := worker.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, email.count())
}
