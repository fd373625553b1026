package model

import (
	"time"

	"convene/pkg/timeutil"
)

// BusyBlock is an externally reported occupied interval for one
// participant. The engine never mutates these.
type BusyBlock struct {
	Participant string    `json:"participant" bson:"participant"`
	StartTime   time.Time `json:"start_time" bson:"start_time"`
	EndTime     time.Time `json:"end_time" bson:"end_time"`
}

func (b BusyBlock) Interval() timeutil.Interval {
	return timeutil.Interval{Start: b.StartTime, End: b.EndTime}
}

type SuggestRequest struct {
	Participants         []string  `json:"participants" validate:"required,min=1,max=200,dive,email"`
	DurationMinutes      int       `json:"duration_minutes" validate:"required"`
	WindowStart          time.Time `json:"window_start" validate:"required"`
	WindowEnd            time.Time `json:"window_end" validate:"required"`
	SlotIncrementMinutes int       `json:"slot_increment_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	MaxSuggestions       int       `json:"max_suggestions,omitempty" validate:"omitempty,min=1,max=100"`
}

// Suggestion is a candidate meeting slot. Its duration always equals the
// requested duration and it never overlaps a busy block of any participant
// whose calendar data was available.
type Suggestion struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// SuggestResult carries partial-data information as first-class fields:
// an unreachable calendar is not an error, it is a participant the caller
// must be told about.
type SuggestResult struct {
	Suggestions                []Suggestion      `json:"suggestions"`
	ParticipantsMissing        []string          `json:"participants_missing"`
	ParticipantsMissingDetails map[string]string `json:"participants_missing_details,omitempty"`
}
