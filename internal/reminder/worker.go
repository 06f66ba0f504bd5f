package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/caredesk/appointment-booking/pkg/logging"
)

// Worker sweeps the store for reminders whose fire time passed with no live
// timer attending to them, such as reminders armed by a process that has
// since restarted. It runs alongside the in-process scheduler and shares
// its dispatcher.
type Worker struct {
	store      Store
	dispatcher *Dispatcher
	log        *logging.Logger
	now        func() time.Time
}

func NewWorker(store Store, dispatcher *Dispatcher, log *logging.Logger) *Worker {
	if log == nil {
		log = logging.Default()
	}
	return &Worker{
		store:      store,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// ProcessDue fires every due reminder once and marks it sent. Returns the
// number fired.
func (w *Worker) ProcessDue(ctx context.Context) (int, error) {
	due, err := w.store.ListDue(ctx, w.now())
	if err != nil {
		return 0, fmt.Errorf("list due reminders: %w", err)
	}

	if len(due) == 0 {
		return 0, nil
	}

	w.log.Info("processing due reminders", "count", len(due))

	processed := 0
	for i := range due {
		r := &due[i]

		// Dispatch before marking: a crash between the two can at worst
		// re-send on the next sweep, never silently drop.
		w.dispatcher.Dispatch(ctx, r)
		if err := w.store.SetStatus(ctx, r.AppointmentID, StatusSent); err != nil {
			w.log.Error("mark reminder sent", "appointment_id", r.AppointmentID, "error", err)
			continue
		}
		processed++
	}

	return processed, nil
}
