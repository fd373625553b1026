package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"convene/internal/availability/source"
	"convene/pkg/config"
	apperrors "convene/pkg/errors"
	"convene/pkg/logger"
	"convene/pkg/model"
	"convene/pkg/timeutil"
)

type mockBusySource struct {
	fetchFunc func(ctx context.Context, participant string, window timeutil.Interval) ([]model.BusyBlock, error)
	calls     atomic.Int64
}

func (m *mockBusySource) Fetch(ctx context.Context, participant string, window timeutil.Interval) ([]model.BusyBlock, error) {
	m.calls.Add(1)
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, participant, window)
	}
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SlotIncrementMin: 30,
		MaxSuggestions:   10,
		FetchPoolSize:    4,
		SuggestTimeout:   5 * time.Second,
		Log: logger.New(logger.Config{
			Level:   "error",
			Service: "test",
		}),
	}
}

func newService(t *testing.T, src source.BusySource, cfg *config.Config) AvailabilityService {
	t.Helper()
	fetcher := source.NewFetcher(src, cfg.FetchPoolSize, cfg.Log)
	return NewAvailabilityService(fetcher, cfg)
}

func at(hour, min int) time.Time {
	return time.Date(2026, time.March, 2, hour, min, 0, 0, time.UTC)
}

func busyBlock(participant string, start, end time.Time) model.BusyBlock {
	return model.BusyBlock{Participant: participant, StartTime: start, EndTime: end}
}

func TestSuggest_FirstFreeSlotAfterBusyBlock(t *testing.T) {
	// 3 participants, one busy [09:00, 10:00), duration 30m,
	// window [09:00, 11:00), increment 30m, first suggestion [10:00, 10:30).
	src := &mockBusySource{
		fetchFunc: func(_ context.Context, participant string, _ timeutil.Interval) ([]model.BusyBlock, error) {
			if participant == "busy@example.com" {
				return []model.BusyBlock{busyBlock(participant, at(9, 0), at(10, 0))}, nil
			}
			return nil, nil
		},
	}
	svc := newService(t, src, testConfig(t))

	result, err := svc.Suggest(context.Background(), &model.SuggestRequest{
		Participants:         []string{"a@example.com", "busy@example.com", "c@example.com"},
		DurationMinutes:      30,
		WindowStart:          at(9, 0),
		WindowEnd:            at(11, 0),
		SlotIncrementMinutes: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Suggestions) == 0 {
		t.Fatal("expected suggestions, got none")
	}
	first := result.Suggestions[0]
	if !first.StartTime.Equal(at(10, 0)) || !first.EndTime.Equal(at(10, 30)) {
		t.Errorf("first suggestion = [%v, %v), want [10:00, 10:30)", first.StartTime, first.EndTime)
	}
	if len(result.ParticipantsMissing) != 0 {
		t.Errorf("expected no missing participants, got %v", result.ParticipantsMissing)
	}
}

func TestSuggest_PropertiesHold(t *testing.T) {
	src := &mockBusySource{
		fetchFunc: func(_ context.Context, participant string, _ timeutil.Interval) ([]model.BusyBlock, error) {
			switch participant {
			case "a@example.com":
				return []model.BusyBlock{busyBlock(participant, at(10, 0), at(11, 0))}, nil
			case "b@example.com":
				return []model.BusyBlock{busyBlock(participant, at(13, 0), at(14, 30))}, nil
			}
			return nil, nil
		},
	}
	svc := newService(t, src, testConfig(t))

	req := &model.SuggestRequest{
		Participants:         []string{"a@example.com", "b@example.com"},
		DurationMinutes:      60,
		WindowStart:          at(9, 0),
		WindowEnd:            at(17, 0),
		SlotIncrementMinutes: 30,
		MaxSuggestions:       5,
	}
	result, err := svc.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Suggestions) > req.MaxSuggestions {
		t.Errorf("got %d suggestions, max is %d", len(result.Suggestions), req.MaxSuggestions)
	}

	busy := []timeutil.Interval{
		{Start: at(10, 0), End: at(11, 0)},
		{Start: at(13, 0), End: at(14, 30)},
	}
	window := timeutil.Interval{Start: req.WindowStart, End: req.WindowEnd}
	var prev time.Time
	for i, s := range result.Suggestions {
		if got := s.EndTime.Sub(s.StartTime); got != 60*time.Minute {
			t.Errorf("suggestion %d duration = %v, want 1h", i, got)
		}
		if !window.Covers(timeutil.Interval{Start: s.StartTime, End: s.EndTime}) {
			t.Errorf("suggestion %d [%v, %v) outside window", i, s.StartTime, s.EndTime)
		}
		for _, b := range busy {
			if timeutil.Overlaps(timeutil.Interval{Start: s.StartTime, End: s.EndTime}, b) {
				t.Errorf("suggestion %d overlaps busy block %v", i, b)
			}
		}
		if i > 0 && s.StartTime.Before(prev) {
			t.Errorf("suggestions out of chronological order at %d", i)
		}
		prev = s.StartTime
	}
}

func TestSuggest_FailedFetchBecomesMissingParticipant(t *testing.T) {
	src := &mockBusySource{
		fetchFunc: func(_ context.Context, participant string, _ timeutil.Interval) ([]model.BusyBlock, error) {
			if participant == "broken@example.com" {
				return nil, errors.New("connection refused")
			}
			return []model.BusyBlock{busyBlock(participant, at(9, 0), at(10, 0))}, nil
		},
	}
	svc := newService(t, src, testConfig(t))

	result, err := svc.Suggest(context.Background(), &model.SuggestRequest{
		Participants:    []string{"ok@example.com", "broken@example.com"},
		DurationMinutes: 30,
		WindowStart:     at(9, 0),
		WindowEnd:       at(12, 0),
	})
	if err != nil {
		t.Fatalf("fetch failure must not fail the request: %v", err)
	}

	if len(result.ParticipantsMissing) != 1 || result.ParticipantsMissing[0] != "broken@example.com" {
		t.Fatalf("participants_missing = %v, want [broken@example.com]", result.ParticipantsMissing)
	}
	if result.ParticipantsMissingDetails["broken@example.com"] == "" {
		t.Error("missing participant must carry a human-readable reason")
	}
	// suggestions still computed from the remaining participant
	if len(result.Suggestions) == 0 {
		t.Fatal("expected suggestions from remaining participants")
	}
	if !result.Suggestions[0].StartTime.Equal(at(10, 0)) {
		t.Errorf("first suggestion starts at %v, want 10:00", result.Suggestions[0].StartTime)
	}
}

func TestSuggest_AllParticipantsMissing(t *testing.T) {
	src := &mockBusySource{
		fetchFunc: func(context.Context, string, timeutil.Interval) ([]model.BusyBlock, error) {
			return nil, errors.New("no access")
		},
	}
	svc := newService(t, src, testConfig(t))

	result, err := svc.Suggest(context.Background(), &model.SuggestRequest{
		Participants:    []string{"a@example.com", "b@example.com"},
		DurationMinutes: 30,
		WindowStart:     at(9, 0),
		WindowEnd:       at(12, 0),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// "no data" must never be treated as "fully free"
	if len(result.Suggestions) != 0 {
		t.Errorf("expected no suggestions, got %v", result.Suggestions)
	}
	if len(result.ParticipantsMissing) != 2 {
		t.Errorf("expected both participants missing, got %v", result.ParticipantsMissing)
	}
}

func TestSuggest_InvalidRequestFailsBeforeFetch(t *testing.T) {
	src := &mockBusySource{}
	svc := newService(t, src, testConfig(t))

	tests := []struct {
		name string
		req  model.SuggestRequest
	}{
		{
			name: "non-positive duration",
			req: model.SuggestRequest{
				Participants:    []string{"a@example.com"},
				DurationMinutes: 0,
				WindowStart:     at(9, 0),
				WindowEnd:       at(12, 0),
			},
		},
		{
			name: "inverted window",
			req: model.SuggestRequest{
				Participants:    []string{"a@example.com"},
				DurationMinutes: 30,
				WindowStart:     at(12, 0),
				WindowEnd:       at(9, 0),
			},
		},
		{
			name: "no participants",
			req: model.SuggestRequest{
				DurationMinutes: 30,
				WindowStart:     at(9, 0),
				WindowEnd:       at(12, 0),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Suggest(context.Background(), &tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			appErr := apperrors.AsAppError(err)
			if appErr.Code != apperrors.CodeInvalidInput {
				t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeInvalidInput)
			}
		})
	}

	if src.calls.Load() != 0 {
		t.Errorf("invalid requests must not reach the busy source, got %d fetches", src.calls.Load())
	}
}

func TestSuggest_DeterministicOrderingUnderConcurrency(t *testing.T) {
	// Fetches complete in scrambled order; the suggestion list must not care.
	src := &mockBusySource{
		fetchFunc: func(_ context.Context, participant string, _ timeutil.Interval) ([]model.BusyBlock, error) {
			if participant == "slow@example.com" {
				time.Sleep(20 * time.Millisecond)
				return []model.BusyBlock{busyBlock(participant, at(9, 0), at(10, 0))}, nil
			}
			return []model.BusyBlock{busyBlock(participant, at(11, 0), at(12, 0))}, nil
		},
	}
	svc := newService(t, src, testConfig(t))

	req := &model.SuggestRequest{
		Participants:         []string{"slow@example.com", "fast@example.com", "faster@example.com"},
		DurationMinutes:      60,
		WindowStart:          at(9, 0),
		WindowEnd:            at(13, 0),
		SlotIncrementMinutes: 60,
	}

	baseline, err := svc.Suggest(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		result, err := svc.Suggest(context.Background(), req)
		if err != nil {
			t.Fatalf("iteration %d: unexpected error: %v", i, err)
		}
		if len(result.Suggestions) != len(baseline.Suggestions) {
			t.Fatalf("iteration %d: suggestion count changed", i)
		}
		for j := range result.Suggestions {
			if !result.Suggestions[j].StartTime.Equal(baseline.Suggestions[j].StartTime) {
				t.Errorf("iteration %d: suggestion %d differs from baseline", i, j)
			}
		}
	}
}

func TestWalkCandidates_SuggestionTruncation(t *testing.T) {
	window := timeutil.Interval{Start: at(9, 0), End: at(17, 0)}
	suggestions := walkCandidates(nil, window, 30*time.Minute, 30*time.Minute, 3)
	if len(suggestions) != 3 {
		t.Errorf("expected 3 suggestions, got %d", len(suggestions))
	}
}
