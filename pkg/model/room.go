package model

import "time"

// Room is static reference data seeded at startup.
type Room struct {
	ID       string   `json:"id" bson:"_id" validate:"required,min=2,max=50"`
	Name     string   `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Capacity int      `json:"capacity" bson:"capacity" validate:"required,min=1,max=500"`
	Location string   `json:"location" bson:"location" validate:"required,min=2,max=200"`
	Features []string `json:"features,omitempty" bson:"features"`
	Notes    string   `json:"notes,omitempty" bson:"notes"`
}

const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// RoomBooking binds a meeting to a room for a time range. Only confirmed
// bookings participate in conflict checks.
type RoomBooking struct {
	ID           string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	RoomID       string    `json:"room_id" bson:"room_id" validate:"required"`
	MeetingID    string    `json:"meeting_id" bson:"meeting_id" validate:"required,mongodb"`
	MeetingTitle string    `json:"meeting_title" bson:"meeting_title" validate:"required,min=2,max=200"`
	StartTime    time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime      time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status       string    `json:"status" bson:"status" validate:"required,oneof=confirmed cancelled"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// BookRoomRequest binds a meeting to a room. Times default to the
// meeting's own bounds when omitted.
type BookRoomRequest struct {
	MeetingID string     `json:"meeting_id" validate:"required,mongodb"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// BookingConflict describes one existing booking blocking a candidate
// range, with enough context for the caller to explain the conflict.
type BookingConflict struct {
	MeetingID    string    `json:"meeting_id" bson:"meeting_id"`
	MeetingTitle string    `json:"meeting_title" bson:"meeting_title"`
	StartTime    time.Time `json:"start_time" bson:"start_time"`
	EndTime      time.Time `json:"end_time" bson:"end_time"`
}

// RoomAvailability is computed per request, never persisted.
type RoomAvailability struct {
	Room        Room              `json:"room"`
	IsAvailable bool              `json:"is_available"`
	Conflicts   []BookingConflict `json:"conflicts,omitempty"`
}

// SlotLock is an advisory lock preventing two requests from committing a
// booking for the same room slot at once. Expired locks are reaped by a
// TTL index; duplicate-key on insert means another request holds the slot.
type SlotLock struct {
	ID        string    `json:"id" bson:"_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
