package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Bookings successfully created.",
	})

	BookingsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Bookings transitioned to cancelled.",
	})

	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_conflicts_total",
		Help: "Booking attempts rejected because the slot was taken or locked.",
	})

	RemindersScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reminders_scheduled_total",
		Help: "Reminders accepted and armed.",
	})

	ReminderNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reminder_notifications_total",
		Help: "Reminder notification attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
)
