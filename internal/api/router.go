package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/caredesk/appointment-booking/pkg/logging"
)

type RouterConfig struct {
	Bookings    BookingService
	Reminders   ReminderService
	PgPool      *pgxpool.Pool // nil on the redis backend
	Redis       *redis.Client
	DefaultLead time.Duration // reminder lead when the request omits one
	Env         string
	Version     string
	Logger      *logging.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/bookings", createBookingHandler(cfg.Bookings))
	r.Get("/bookings/upcoming", upcomingBookingsHandler(cfg.Bookings))
	r.Get("/bookings/recurring", recurringBookingsHandler(cfg.Bookings))
	r.Get("/bookings/{id}", getBookingHandler(cfg.Bookings))
	r.Put("/bookings/{id}/cancel", cancelBookingHandler(cfg.Bookings))
	r.Post("/bookings/{id}/reschedule", rescheduleBookingHandler(cfg.Bookings))

	r.Get("/slots", availableSlotsHandler(cfg.Bookings))

	r.Post("/reminders", scheduleReminderHandler(cfg.Bookings, cfg.Reminders, cfg.DefaultLead))
	r.Delete("/reminders/{appointment_id}", cancelReminderHandler(cfg.Reminders))

	return r
}
