package reminder

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusCancelled Status = "cancelled"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"

	// Internal channels: never requested by callers, fired by the
	// dispatcher itself.
	channelCaregiver Channel = "caregiver"
	channelStaff     Channel = "staff"
)

// Requestable reports whether callers may ask for this channel.
func (c Channel) Requestable() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Caregiver is the optional contact notified alongside the patient.
type Caregiver struct {
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	Relation string `json:"relation,omitempty"`
}

// Reminder is a scheduled notification derived from one booking. It holds
// the appointment id by value only, never a handle to the booking record.
type Reminder struct {
	ID            int64
	AppointmentID int64
	PatientID     uuid.UUID
	FireAt        time.Time
	Channels      []Channel
	Caregiver     *Caregiver
	Status        Status
	CreatedAt     time.Time
}
