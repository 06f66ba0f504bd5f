package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/caredesk/appointment-booking/internal/booking"
	"github.com/caredesk/appointment-booking/internal/reminder"
)

type CreateBookingRequest struct {
	PatientID         string `json:"patient_id"`
	DoctorID          string `json:"doctor_id"`
	StartTime         string `json:"start_time"` // RFC 3339
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
}

type RescheduleBookingRequest struct {
	NewStartTime string `json:"new_start_time"` // RFC 3339
}

type BookingResponse struct {
	ID                int64     `json:"id"`
	PatientID         uuid.UUID `json:"patient_id"`
	DoctorID          uuid.UUID `json:"doctor_id"`
	StartTime         time.Time `json:"start_time"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern,omitempty"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
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

type CaregiverPayload struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Relation string `json:"relation,omitempty"`
}

type ScheduleReminderRequest struct {
	AppointmentID int64             `json:"appointment_id"`
	LeadHours     float64           `json:"lead_hours"`
	Channels      []string          `json:"channels"`
	Caregiver     *CaregiverPayload `json:"caregiver,omitempty"`
}

type ReminderResponse struct {
	ID            int64     `json:"id"`
	AppointmentID int64     `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	FireAt        time.Time `json:"fire_at"`
	Channels      []string  `json:"channels"`
	Status        string    `json:"status"`
}

func toReminderResponse(r *reminder.Reminder) ReminderResponse {
	channels := make([]string, 0, len(r.Channels))
	for _, ch := range r.Channels {
		channels = append(channels, string(ch))
	}
	return ReminderResponse{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		PatientID:     r.PatientID,
		FireAt:        r.FireAt,
		Channels:      channels,
		Status:        string(r.Status),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
