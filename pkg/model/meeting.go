package model

import (
	"time"
)

// Stored meeting statuses. Running and completed are never persisted, they
// are derived at read time from the clock (DisplayStatus).
const (
	MeetingScheduled   = "scheduled"
	MeetingConfirmed   = "confirmed"
	MeetingCancelled   = "cancelled"
	MeetingRescheduled = "rescheduled"
	MeetingPolling     = "polling"

	MeetingRunning   = "running"
	MeetingCompleted = "completed"
)

// Metadata keys the engine understands. Everything else in the metadata map
// is opaque caller state and round-trips untouched.
const (
	MetaPollID      = "poll_id"
	MetaPollPending = "poll_pending"
)

type Participant struct {
	Email string `json:"email" bson:"email" validate:"required,email"`
	Name  string `json:"name" bson:"name" validate:"required,min=1,max=100"`
}

type Meeting struct {
	ID             string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	Title          string         `json:"title" bson:"title" validate:"required,min=2,max=200"`
	Description    string         `json:"description,omitempty" bson:"description" validate:"omitempty,max=2000"`
	OrganizerEmail string         `json:"organizer_email" bson:"organizer_email" validate:"required,email"`
	Participants   []Participant  `json:"participants" bson:"participants" validate:"required,min=1,max=200,dive"`
	StartTime      time.Time      `json:"start_time" bson:"start_time" validate:"required"`
	EndTime        time.Time      `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status         string         `json:"status" bson:"status" validate:"required,oneof=scheduled confirmed cancelled rescheduled polling"`
	Metadata       map[string]any `json:"metadata,omitempty" bson:"metadata"`
	CreatedAt      time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time      `json:"updated_at" bson:"updated_at" validate:"omitempty"`

	// DisplayStatus is the clock-derived projection of Status, filled on
	// reads and never persisted.
	DisplayStatus string `json:"display_status,omitempty" bson:"-" validate:"omitempty"`
}

type MeetingUpdate struct {
	Title       string         `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Description *string        `json:"description,omitempty" validate:"omitempty,max=2000"`
	StartTime   *time.Time     `json:"start_time,omitempty" validate:"omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty" validate:"omitempty"`
	Status      string         `json:"status,omitempty" validate:"omitempty,oneof=scheduled confirmed cancelled rescheduled polling"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PollPending reports whether the meeting is waiting on an open poll,
// either via the stored status or the metadata flag the poll workflow sets.
func (m *Meeting) PollPending() bool {
	if m.Status == MeetingPolling {
		return true
	}
	if m.Metadata == nil {
		return false
	}
	pending, ok := m.Metadata[MetaPollPending].(bool)
	return ok && pending
}

// ParticipantEmails returns the participant emails in declaration order.
func (m *Meeting) ParticipantEmails() []string {
	emails := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		emails = append(emails, p.Email)
	}
	return emails
}
