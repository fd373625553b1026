package service

import (
	"testing"
	"time"

	"convene/pkg/model"
)

func TestResolveStatus(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		m    model.Meeting
		want string
	}{
		{
			name: "scheduled meeting in progress becomes running",
			m: model.Meeting{
				Status:    model.MeetingScheduled,
				StartTime: now.Add(-time.Hour),
				EndTime:   now.Add(time.Hour),
			},
			want: model.MeetingRunning,
		},
		{
			name: "meeting that just ended becomes completed",
			m: model.Meeting{
				Status:    model.MeetingScheduled,
				StartTime: now.Add(-time.Hour),
				EndTime:   now.Add(-time.Minute),
			},
			want: model.MeetingCompleted,
		},
		{
			name: "cancelled overrides time bounds",
			m: model.Meeting{
				Status:    model.MeetingCancelled,
				StartTime: now.Add(-time.Hour),
				EndTime:   now.Add(time.Hour),
			},
			want: model.MeetingCancelled,
		},
		{
			name: "polling status wins over running window",
			m: model.Meeting{
				Status:    model.MeetingPolling,
				StartTime: now.Add(-time.Hour),
				EndTime:   now.Add(time.Hour),
			},
			want: model.MeetingPolling,
		},
		{
			name: "poll_pending metadata wins over a confirmed status",
			m: model.Meeting{
				Status:    model.MeetingConfirmed,
				StartTime: now.Add(time.Hour),
				EndTime:   now.Add(2 * time.Hour),
				Metadata:  map[string]any{model.MetaPollPending: true},
			},
			want: model.MeetingPolling,
		},
		{
			name: "future scheduled meeting keeps its stored status",
			m: model.Meeting{
				Status:    model.MeetingScheduled,
				StartTime: now.Add(time.Hour),
				EndTime:   now.Add(2 * time.Hour),
			},
			want: model.MeetingScheduled,
		},
		{
			name: "future confirmed meeting keeps its stored status",
			m: model.Meeting{
				Status:    model.MeetingConfirmed,
				StartTime: now.Add(time.Hour),
				EndTime:   now.Add(2 * time.Hour),
			},
			want: model.MeetingConfirmed,
		},
		{
			name: "rescheduled surfaces before the meeting starts",
			m: model.Meeting{
				Status:    model.MeetingRescheduled,
				StartTime: now.Add(time.Hour),
				EndTime:   now.Add(2 * time.Hour),
			},
			want: model.MeetingRescheduled,
		},
		{
			name: "rescheduled meeting past its end is completed",
			m: model.Meeting{
				Status:    model.MeetingRescheduled,
				StartTime: now.Add(-2 * time.Hour),
				EndTime:   now.Add(-time.Hour),
			},
			want: model.MeetingCompleted,
		},
		{
			name: "start boundary is inclusive",
			m: model.Meeting{
				Status:    model.MeetingScheduled,
				StartTime: now,
				EndTime:   now.Add(time.Hour),
			},
			want: model.MeetingRunning,
		},
		{
			name: "end boundary is exclusive",
			m: model.Meeting{
				Status:    model.MeetingScheduled,
				StartTime: now.Add(-time.Hour),
				EndTime:   now,
			},
			want: model.MeetingCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveStatus(&tt.m, now); got != tt.want {
				t.Errorf("ResolveStatus() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditable(t *testing.T) {
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	editable := &model.Meeting{
		Status:    model.MeetingScheduled,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	}
	if !Editable(editable, now) {
		t.Error("future scheduled meeting should be editable")
	}

	completed := &model.Meeting{
		Status:    model.MeetingScheduled,
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-time.Hour),
	}
	if Editable(completed, now) {
		t.Error("completed meeting should not be editable")
	}

	cancelled := &model.Meeting{
		Status:    model.MeetingCancelled,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(2 * time.Hour),
	}
	if Editable(cancelled, now) {
		t.Error("cancelled meeting should not be editable")
	}

	running := &model.Meeting{
		Status:    model.MeetingScheduled,
		StartTime: now.Add(-time.Minute),
		EndTime:   now.Add(time.Hour),
	}
	if !Editable(running, now) {
		t.Error("running meeting should still be editable")
	}
}
