package service

import (
	"context"
	"time"

	"convene/internal/availability/source"
	"convene/pkg/config"
	apperrors "convene/pkg/errors"
	"convene/pkg/model"
	"convene/pkg/timeutil"
)

type AvailabilityService interface {
	Suggest(ctx context.Context, req *model.SuggestRequest) (*model.SuggestResult, error)
}

type availabilityService struct {
	fetcher *source.Fetcher
	cfg     *config.Config
	now     func() time.Time
}

func NewAvailabilityService(fetcher *source.Fetcher, cfg *config.Config) AvailabilityService {
	return &availabilityService{
		fetcher: fetcher,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Suggest computes candidate slots satisfying every reachable participant's
// calendar. Participants whose calendars cannot be read are excluded from
// the intersection and reported back by name; they never fail the request.
func (s *availabilityService) Suggest(ctx context.Context, req *model.SuggestRequest) (*model.SuggestResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	increment := time.Duration(req.SlotIncrementMinutes) * time.Minute
	if req.SlotIncrementMinutes <= 0 {
		increment = time.Duration(s.cfg.SlotIncrementMin) * time.Minute
	}
	maxSuggestions := req.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = s.cfg.MaxSuggestions
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute
	window := timeutil.NewInterval(req.WindowStart, req.WindowEnd)

	// The whole fan-out runs under one outer deadline so the request stays
	// bounded even when several fetches are slow.
	ctx, cancel := context.WithTimeout(ctx, s.cfg.SuggestTimeout)
	defer cancel()

	outcomes := s.fetcher.FetchAll(ctx, req.Participants, window)

	var busy []timeutil.Interval
	missing := make([]string, 0)
	missingDetails := make(map[string]string)
	availableCount := 0

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			missing = append(missing, outcome.Participant)
			missingDetails[outcome.Participant] = outcome.FailReason
			continue
		}
		availableCount++
		for _, block := range outcome.Blocks {
			busy = append(busy, block.Interval())
		}
	}

	result := &model.SuggestResult{
		Suggestions:                []model.Suggestion{},
		ParticipantsMissing:        missing,
		ParticipantsMissingDetails: missingDetails,
	}

	// No participant's data means no basis for suggestions. "No data" must
	// not be mistaken for "fully free."
	if availableCount == 0 {
		s.cfg.Log.Warn("No participant calendars available for suggestion",
			"participants", len(req.Participants),
		)
		return result, nil
	}

	result.Suggestions = walkCandidates(busy, window, duration, increment, maxSuggestions)

	s.cfg.Log.Debug("Availability computed",
		"participants", len(req.Participants),
		"missing", len(missing),
		"suggestions", len(result.Suggestions),
	)
	return result, nil
}

// walkCandidates probes start times across the window at the configured
// increment. A candidate is valid iff it overlaps none of the merged busy
// intervals. Candidates come out in chronological order, which is the
// ranking policy: earliest feasible time wins.
func walkCandidates(busy []timeutil.Interval, window timeutil.Interval, duration, increment time.Duration, maxSuggestions int) []model.Suggestion {
	merged := timeutil.MergeBusy(busy)
	suggestions := []model.Suggestion{}

	for start := window.Start; !start.Add(duration).After(window.End); start = start.Add(increment) {
		candidate := timeutil.Interval{Start: start, End: start.Add(duration)}

		conflict := false
		for _, b := range merged {
			if timeutil.Overlaps(candidate, b) {
				conflict = true
				break
			}
			// merged is sorted; once past the candidate there is nothing
			// left to collide with
			if !b.Start.Before(candidate.End) {
				break
			}
		}
		if conflict {
			continue
		}

		suggestions = append(suggestions, model.Suggestion{
			StartTime: candidate.Start,
			EndTime:   candidate.End,
		})
		if len(suggestions) >= maxSuggestions {
			break
		}
	}

	return suggestions
}

// validate rejects malformed requests before any calendar I/O happens.
func (s *availabilityService) validate(req *model.SuggestRequest) error {
	if len(req.Participants) == 0 {
		return apperrors.InvalidInput("at least one participant is required")
	}
	if req.DurationMinutes <= 0 {
		return apperrors.InvalidInput("duration_minutes must be positive")
	}
	if !req.WindowEnd.After(req.WindowStart) {
		return apperrors.InvalidInput("window_end must be after window_start")
	}
	window := req.WindowEnd.Sub(req.WindowStart)
	if time.Duration(req.DurationMinutes)*time.Minute > window {
		return apperrors.InvalidInput("duration does not fit inside the search window")
	}
	return nil
}
