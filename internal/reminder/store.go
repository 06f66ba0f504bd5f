package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrReminderNotFound = errors.New("reminder not found")

// Store persists reminders keyed by their appointment id (one reminder per
// booking).
type Store interface {
	Save(ctx context.Context, r *Reminder) error
	GetByAppointment(ctx context.Context, appointmentID int64) (*Reminder, error)
	SetStatus(ctx context.Context, appointmentID int64, status Status) error

	// ListDue returns reminders still scheduled whose fire time is at or
	// before now.
	ListDue(ctx context.Context, now time.Time) ([]Reminder, error)

	// ListScheduled returns every reminder still in the scheduled state,
	// due or not.
	ListScheduled(ctx context.Context) ([]Reminder, error)
}

type reminderRecord struct {
	ID            int64      `json:"id"`
	AppointmentID int64      `json:"appointment_id"`
	PatientID     uuid.UUID  `json:"patient_id"`
	FireAt        time.Time  `json:"fire_at"`
	Channels      []Channel  `json:"channels"`
	Caregiver     *Caregiver `json:"caregiver,omitempty"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toReminderRecord(r *Reminder) reminderRecord {
	return reminderRecord{
		ID:            r.ID,
		AppointmentID: r.AppointmentID,
		PatientID:     r.PatientID,
		FireAt:        r.FireAt,
		Channels:      r.Channels,
		Caregiver:     r.Caregiver,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
	}
}

func fromReminderRecord(rec reminderRecord) Reminder {
	return Reminder{
		ID:            rec.ID,
		AppointmentID: rec.AppointmentID,
		PatientID:     rec.PatientID,
		FireAt:        rec.FireAt,
		Channels:      rec.Channels,
		Caregiver:     rec.Caregiver,
		Status:        rec.Status,
		CreatedAt:     rec.CreatedAt,
	}
}

// RedisStore keeps each reminder as one JSON value in a hash, field name
// being the appointment id.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) field(appointmentID int64) string {
	return strconv.FormatInt(appointmentID, 10)
}

func (s *RedisStore) Save(ctx context.Context, r *Reminder) error {
	data, err := json.Marshal(toReminderRecord(r))
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, s.field(r.AppointmentID), data).Err(); err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}

func (s *RedisStore) GetByAppointment(ctx context.Context, appointmentID int64) (*Reminder, error) {
	data, err := s.client.HGet(ctx, s.key, s.field(appointmentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("load reminder: %w", err)
	}

	var rec reminderRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode reminder: %w", err)
	}
	r := fromReminderRecord(rec)
	return &r, nil
}

func (s *RedisStore) SetStatus(ctx context.Context, appointmentID int64, status Status) error {
	r, err := s.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	r.Status = status
	return s.Save(ctx, r)
}

func (s *RedisStore) ListDue(ctx context.Context, now time.Time) ([]Reminder, error) {
	return s.list(ctx, func(r *Reminder) bool {
		return r.Status == StatusScheduled && !r.FireAt.After(now)
	})
}

func (s *RedisStore) ListScheduled(ctx context.Context) ([]Reminder, error) {
	return s.list(ctx, func(r *Reminder) bool {
		return r.Status == StatusScheduled
	})
}

func (s *RedisStore) list(ctx context.Context, keep func(*Reminder) bool) ([]Reminder, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}

	var out []Reminder
	for _, data := range all {
		var rec reminderRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode reminder: %w", err)
		}
		r := fromReminderRecord(rec)
		if keep(&r) {
			out = append(out, r)
		}
	}
	return out, nil
}
