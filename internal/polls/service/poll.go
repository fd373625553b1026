package service

import (
	"context"
	"errors"
	"time"

	meetingsservice "convene/internal/meetings/service"
	pollserrors "convene/internal/polls/errors"
	"convene/internal/polls/repository"
	"convene/internal/polls/validator"
	"convene/pkg/config"
	apperrors "convene/pkg/errors"
	"convene/pkg/events"
	"convene/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

type PollService interface {
	CreatePoll(ctx context.Context, meetingID string, req *model.PollCreateRequest) (*model.Poll, error)
	GetByID(ctx context.Context, id string) (*model.Poll, error)
	Vote(ctx context.Context, pollID string, req *model.VoteRequest) (*model.Poll, error)
	Close(ctx context.Context, id string) (*model.Poll, error)
	Finalize(ctx context.Context, id string, req *model.FinalizeRequest) (*model.Poll, error)
}

type pollService struct {
	repo      repository.PollRepository
	meetings  meetingsservice.MeetingService
	validator *validator.PollValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewPollService(
	repo repository.PollRepository,
	meetings meetingsservice.MeetingService,
	validator *validator.PollValidator,
	publisher events.Publisher,
	cfg *config.Config,
) PollService {
	return &pollService{
		repo:      repo,
		meetings:  meetings,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *pollService) CreatePoll(ctx context.Context, meetingID string, req *model.PollCreateRequest) (*model.Poll, error) {
	if meetingID == "" {
		return nil, apperrors.InvalidInput("Meeting ID cannot be empty")
	}
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Poll validation failed", "meeting_id", meetingID, "error", err)
		return nil, apperrors.Validation("Poll validation failed", map[string]any{"error": err.Error()})
	}

	poll := &model.Poll{
		ID:        uuid.New().String(),
		MeetingID: meetingID,
		Status:    model.PollOpen,
		Deadline:  req.Deadline,
		Options:   make([]model.PollOption, 0, len(req.Options)),
	}
	for _, opt := range req.Options {
		poll.Options = append(poll.Options, model.PollOption{
			ID:        uuid.New().String(),
			StartTime: opt.StartTime,
			EndTime:   opt.EndTime,
			Votes:     []string{},
		})
	}

	// Marking the meeting and inserting the poll commit together, so a
	// failure on either side leaves no meeting stuck in polling and no
	// orphaned poll.
	err := s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.meetings.MarkPolling(sessCtx, meetingID, poll.ID); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, poll); err != nil {
			return apperrors.Internal("Failed to create poll", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to create poll", "meeting_id", meetingID, "error", err)
		return nil, err
	}

	s.publish(ctx, events.TypePollCreated, poll)

	s.cfg.Log.Info("Poll created successfully",
		"poll_id", poll.ID,
		"meeting_id", meetingID,
		"options", len(poll.Options),
	)
	return poll, nil
}

func (s *pollService) GetByID(ctx context.Context, id string) (*model.Poll, error) {
	poll, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	s.lazyClose(ctx, poll, time.Now().UTC())
	return poll, nil
}

func (s *pollService) Vote(ctx context.Context, pollID string, req *model.VoteRequest) (*model.Poll, error) {
	if err := s.validator.ValidateVote(req); err != nil {
		s.cfg.Log.Warn("Vote validation failed", "poll_id", pollID, "error", err)
		return nil, apperrors.Validation("Vote validation failed", map[string]any{"error": err.Error()})
	}

	poll, err := s.find(ctx, pollID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !poll.AcceptingVotes(now) {
		s.lazyClose(ctx, poll, now)
		return nil, apperrors.Forbidden("Poll is closed for voting").
			WithDetails(map[string]any{"poll_id": pollID})
	}
	if poll.Option(req.OptionID) == nil {
		return nil, apperrors.NotFoundWithID("Poll option", req.OptionID)
	}

	if err := s.repo.MoveVote(ctx, pollID, req.OptionID, req.Voter); err != nil {
		if errors.Is(err, pollserrors.ErrClosed) {
			return nil, apperrors.Forbidden("Poll is closed for voting").
				WithDetails(map[string]any{"poll_id": pollID})
		}
		s.cfg.Log.Error("Failed to record vote", "poll_id", pollID, "voter", req.Voter, "error", err)
		return nil, apperrors.Internal("Failed to record vote", err)
	}

	s.cfg.Log.Info("Vote recorded",
		"poll_id", pollID,
		"option_id", req.OptionID,
		"voter", req.Voter,
	)
	return s.find(ctx, pollID)
}

func (s *pollService) Close(ctx context.Context, id string) (*model.Poll, error) {
	poll, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if poll.Status == model.PollClosed {
		return poll, nil
	}

	if err := s.repo.Close(ctx, id); err != nil {
		if errors.Is(err, pollserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Poll", id)
		}
		s.cfg.Log.Error("Failed to close poll", "poll_id", id, "error", err)
		return nil, apperrors.Internal("Failed to close poll", err)
	}

	poll.Status = model.PollClosed
	s.publish(ctx, events.TypePollClosed, poll)

	s.cfg.Log.Info("Poll closed", "poll_id", id)
	return poll, nil
}

// Finalize settles the poll on a winning option. With no override the
// option with the most votes wins, ties broken by earliest start. Repeated
// calls return the recorded winner unchanged; concurrent calls converge on
// whichever write landed first.
func (s *pollService) Finalize(ctx context.Context, id string, req *model.FinalizeRequest) (*model.Poll, error) {
	if err := s.validator.ValidateFinalize(req); err != nil {
		s.cfg.Log.Warn("Finalize validation failed", "poll_id", id, "error", err)
		return nil, apperrors.Validation("Finalize validation failed", map[string]any{"error": err.Error()})
	}

	poll, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if poll.WinningOptionID != "" {
		if req.OptionID != "" && req.OptionID != poll.WinningOptionID {
			return nil, apperrors.Conflict("Poll is already finalized with a different option").
				WithDetails(map[string]any{"poll_id": id, "winning_option_id": poll.WinningOptionID})
		}
		return poll, nil
	}

	winnerID := req.OptionID
	if winnerID == "" {
		winnerID = poll.Winner().ID
	} else if poll.Option(winnerID) == nil {
		return nil, apperrors.NotFoundWithID("Poll option", winnerID)
	}

	won, err := s.repo.SetWinner(ctx, id, winnerID)
	if err != nil {
		s.cfg.Log.Error("Failed to finalize poll", "poll_id", id, "error", err)
		return nil, apperrors.Internal("Failed to finalize poll", err)
	}
	if !won {
		// Lost the race. The recorded winner stands.
		return s.find(ctx, id)
	}

	poll.Status = model.PollClosed
	poll.WinningOptionID = winnerID
	s.publish(ctx, events.TypePollFinalized, poll)

	winner := poll.Option(winnerID)
	if _, err := s.meetings.ApplySchedule(ctx, poll.MeetingID, winner.StartTime, winner.EndTime); err != nil {
		// The winner is recorded either way. The meeting can still be
		// moved through ApplySchedule once the underlying problem clears.
		s.cfg.Log.Warn("Failed to apply winning slot to meeting",
			"poll_id", id,
			"meeting_id", poll.MeetingID,
			"error", err,
		)
	}

	s.cfg.Log.Info("Poll finalized",
		"poll_id", id,
		"winning_option_id", winnerID,
		"votes", len(winner.Votes),
	)
	return poll, nil
}

// --- Helpers ---

func (s *pollService) find(ctx context.Context, id string) (*model.Poll, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Poll ID cannot be empty")
	}

	poll, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, pollserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Poll", id)
		}
		return nil, apperrors.Internal("Failed to retrieve poll", err)
	}

	return poll, nil
}

// lazyClose persists the closed status of a poll whose deadline passed
// while it was still stored as open. Best effort: a failure keeps the
// stored status stale, which every write path already treats as closed.
func (s *pollService) lazyClose(ctx context.Context, poll *model.Poll, now time.Time) {
	if poll.Status != model.PollOpen || !poll.DeadlinePassed(now) {
		return
	}

	if err := s.repo.Close(ctx, poll.ID); err != nil {
		s.cfg.Log.Warn("Failed to persist deadline close", "poll_id", poll.ID, "error", err)
	} else {
		s.publish(ctx, events.TypePollClosed, poll)
	}
	poll.Status = model.PollClosed
}

func (s *pollService) publish(ctx context.Context, eventType string, poll *model.Poll) {
	event, err := events.New(eventType, poll.MeetingID, poll)
	if err != nil {
		s.cfg.Log.Warn("Failed to build poll event", "type", eventType, "poll_id", poll.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish poll event", "type", eventType, "poll_id", poll.ID, "error", err)
	}
}
