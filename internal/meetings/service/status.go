package service

import (
	"time"

	"convene/pkg/model"
)

// ResolveStatus derives the displayed status of a meeting at the given
// instant. Running and completed are never stored; they exist only in this
// projection, so it must be re-evaluated on every read.
//
// Precedence: cancelled is terminal and overrides everything. A pending poll
// (stored polling status or the poll_pending metadata flag) comes next,
// since time bounds of a meeting still under vote are provisional. Only then
// does wall-clock refinement apply.
func ResolveStatus(m *model.Meeting, now time.Time) string {
	if m.Status == model.MeetingCancelled {
		return model.MeetingCancelled
	}
	if m.PollPending() {
		return model.MeetingPolling
	}
	if !now.Before(m.StartTime) && now.Before(m.EndTime) {
		return model.MeetingRunning
	}
	if !now.Before(m.EndTime) {
		return model.MeetingCompleted
	}
	if m.Status == model.MeetingRescheduled {
		return model.MeetingRescheduled
	}
	return m.Status
}

// Editable reports whether a meeting may still be mutated. Completed and
// cancelled meetings are frozen.
func Editable(m *model.Meeting, now time.Time) bool {
	switch ResolveStatus(m, now) {
	case model.MeetingCompleted, model.MeetingCancelled:
		return false
	}
	return true
}
