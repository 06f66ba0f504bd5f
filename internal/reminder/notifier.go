package reminder

import (
	"context"
	"fmt"

	"github.com/caredesk/appointment-booking/internal/metrics"
	"github.com/caredesk/appointment-booking/pkg/logging"
)

// Notifier delivers a reminder over one channel. Implementations are
// best-effort and fire-and-forget; there is no delivery acknowledgement.
type Notifier interface {
	Notify(ctx context.Context, r *Reminder) error
}

// ChannelResult records one delivery attempt.
type ChannelResult struct {
	Channel Channel
	Err     error
}

// Dispatcher fans a reminder out to its configured channels. Each channel
// failure is caught and logged on its own, so one failing channel never
// blocks the rest, and the outcome is recorded per channel rather than as a
// single aggregate flag.
type Dispatcher struct {
	notifiers map[Channel]Notifier
	log       *logging.Logger
}

// NewDispatcher wires the default log-line notifiers for every channel.
// The real delivery providers live behind the external API this module
// does not call.
func NewDispatcher(log *logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.Default()
	}
	d := &Dispatcher{
		notifiers: make(map[Channel]Notifier),
		log:       log,
	}
	for _, ch := range []Channel{ChannelEmail, ChannelSMS, ChannelPush, channelCaregiver, channelStaff} {
		d.notifiers[ch] = &logNotifier{channel: ch, log: log}
	}
	return d
}

// Register swaps in a notifier for one channel; used by tests and by
// deployments with a real provider.
func (d *Dispatcher) Register(ch Channel, n Notifier) {
	d.notifiers[ch] = n
}

// Dispatch fires every configured channel. The caregiver notification fires
// whenever a caregiver is attached, independent of the channel list.
func (d *Dispatcher) Dispatch(ctx context.Context, r *Reminder) []ChannelResult {
	results := make([]ChannelResult, 0, len(r.Channels)+1)

	for _, ch := range r.Channels {
		results = append(results, d.attempt(ctx, ch, r))
	}

	if r.Caregiver != nil {
		results = append(results, d.attempt(ctx, channelCaregiver, r))
	}

	return results
}

// NotifyStaffCancellation tells the staff channel that a booking's reminder
// was revoked because the booking itself was cancelled.
func (d *Dispatcher) NotifyStaffCancellation(ctx context.Context, r *Reminder) {
	res := d.attempt(ctx, channelStaff, r)
	if res.Err != nil {
		d.log.Error("staff cancellation notification failed",
			"appointment_id", r.AppointmentID, "error", res.Err)
	}
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, r *Reminder) ChannelResult {
	n, ok := d.notifiers[ch]
	if !ok {
		err := fmt.Errorf("no notifier for channel %q", ch)
		metrics.ReminderNotifications.WithLabelValues(string(ch), "error").Inc()
		d.log.Error("reminder channel skipped", "channel", ch, "appointment_id", r.AppointmentID, "error", err)
		return ChannelResult{Channel: ch, Err: err}
	}

	if err := n.Notify(ctx, r); err != nil {
		metrics.ReminderNotifications.WithLabelValues(string(ch), "error").Inc()
		d.log.Error("reminder channel failed", "channel", ch, "appointment_id", r.AppointmentID, "error", err)
		return ChannelResult{Channel: ch, Err: err}
	}

	metrics.ReminderNotifications.WithLabelValues(string(ch), "sent").Inc()
	return ChannelResult{Channel: ch}
}

// logNotifier is the log-line stand-in for a real delivery provider.
type logNotifier struct {
	channel Channel
	log     *logging.Logger
}

func (n *logNotifier) Notify(ctx context.Context, r *Reminder) error {
	n.log.Info("reminder notification",
		"channel", n.channel,
		"appointment_id", r.AppointmentID,
		"patient_id", r.PatientID,
		"fire_at", r.FireAt,
	)
	return nil
}
