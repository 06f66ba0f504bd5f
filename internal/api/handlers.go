package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/caredesk/appointment-booking/internal/booking"
	"github.com/caredesk/appointment-booking/internal/reminder"
	redisclient "github.com/caredesk/appointment-booking/internal/redis"
)

// BookingService is the slice of the booking service the handlers call.
type BookingService interface {
	Book(ctx context.Context, patientID, doctorID uuid.UUID, start time.Time, isRecurring bool, pattern booking.RecurrencePattern) (*booking.Booking, error)
	Get(ctx context.Context, id int64) (*booking.Booking, error)
	Cancel(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, newStart time.Time) error
	Upcoming(ctx context.Context, patientID uuid.UUID) ([]booking.Booking, error)
	Recurring(ctx context.Context, patientID uuid.UUID) ([]booking.Booking, error)
	AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]booking.Slot, error)
}

// ReminderService is the slice of the reminder scheduler the handlers call.
type ReminderService interface {
	Schedule(ctx context.Context, b *booking.Booking, lead time.Duration, channels []reminder.Channel, caregiver *reminder.Caregiver) (*reminder.Reminder, error)
	Cancel(ctx context.Context, appointmentID int64) error
}

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		start, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", "start_time must be RFC 3339")
			return
		}

		b, err := svc.Book(r.Context(), patientID, doctorID, start, req.IsRecurring, booking.RecurrencePattern(req.RecurrencePattern))
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func getBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		b, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		if err := svc.Cancel(r.Context(), id); err != nil {
			handleBookingError(w, err)
			return
		}

		b, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func rescheduleBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		var req RescheduleBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		newStart, err := time.Parse(time.RFC3339, req.NewStartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_new_start_time", "new_start_time must be RFC 3339")
			return
		}

		if err := svc.Reschedule(r.Context(), id, newStart); err != nil {
			handleBookingError(w, err)
			return
		}

		b, err := svc.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func upcomingBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		list, err := svc.Upcoming(r.Context(), patientID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]BookingResponse, 0, len(list))
		for i := range list {
			out = append(out, toBookingResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func recurringBookingsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		list, err := svc.Recurring(r.Context(), patientID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]BookingResponse, 0, len(list))
		for i := range list {
			out = append(out, toBookingResponse(&list[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func availableSlotsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		date, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := svc.AvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		if slots == nil {
			slots = []booking.Slot{}
		}
		writeJSON(w, http.StatusOK, slots)
	}
}

func scheduleReminderHandler(bookings BookingService, reminders ReminderService, defaultLead time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ScheduleReminderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		b, err := bookings.Get(r.Context(), req.AppointmentID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		channels := make([]reminder.Channel, 0, len(req.Channels))
		for _, ch := range req.Channels {
			channels = append(channels, reminder.Channel(ch))
		}

		var caregiver *reminder.Caregiver
		if req.Caregiver != nil {
			caregiver = &reminder.Caregiver{
				Name:     req.Caregiver.Name,
				Phone:    req.Caregiver.Phone,
				Email:    req.Caregiver.Email,
				Relation: req.Caregiver.Relation,
			}
		}

		lead := time.Duration(req.LeadHours * float64(time.Hour))
		if req.LeadHours == 0 {
			lead = defaultLead
		}
		rem, err := reminders.Schedule(r.Context(), b, lead, channels, caregiver)
		if err != nil {
			handleReminderError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toReminderResponse(rem))
	}
}

func cancelReminderHandler(reminders ReminderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "appointment_id")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be an integer")
			return
		}

		if err := reminders.Cancel(r.Context(), id); err != nil {
			handleReminderError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func bookingID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be an integer")
		return 0, false
	}
	return id, true
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "booking_already_cancelled", err.Error())
	case errors.Is(err, booking.ErrSlotOffGrid):
		writeError(w, http.StatusBadRequest, "slot_off_grid", err.Error())
	case errors.Is(err, booking.ErrInvalidPattern):
		writeError(w, http.StatusBadRequest, "invalid_recurrence_pattern", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotBeingBooked),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, "storage_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleReminderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, reminder.ErrReminderNotFound):
		writeError(w, http.StatusNotFound, "reminder_not_found", err.Error())
	case errors.Is(err, reminder.ErrInvalidLead):
		writeError(w, http.StatusBadRequest, "invalid_lead", err.Error())
	case errors.Is(err, reminder.ErrUnknownChannel):
		writeError(w, http.StatusBadRequest, "unknown_channel", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
