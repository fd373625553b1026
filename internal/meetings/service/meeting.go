package service

import (
	"context"
	"errors"
	"sync"
	"time"

	meetingserrors "convene/internal/meetings/errors"
	"convene/internal/meetings/repository"
	"convene/internal/meetings/validator"
	"convene/pkg/config"
	apperrors "convene/pkg/errors"
	"convene/pkg/events"
	"convene/pkg/model"
)

type MeetingService interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	GetByID(ctx context.Context, id string) (*model.Meeting, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Meeting, int64, error)
	Update(ctx context.Context, id string, updates *model.MeetingUpdate) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
	MarkPolling(ctx context.Context, id, pollID string) error
	ApplySchedule(ctx context.Context, id string, startTime, endTime time.Time) (*model.Meeting, error)
}

type meetingService struct {
	repo      repository.MeetingRepository
	validator *validator.MeetingValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewMeetingService(
	repo repository.MeetingRepository,
	validator *validator.MeetingValidator,
	publisher events.Publisher,
	cfg *config.Config,
) MeetingService {
	return &meetingService{
		repo:      repo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *meetingService) Create(ctx context.Context, meeting *model.Meeting) error {
	s.applyDefaults(meeting)
	if err := s.validate(meeting); err != nil {
		return err
	}

	if err := s.repo.Create(ctx, meeting); err != nil {
		s.cfg.Log.Error("Failed to create meeting", "error", err)
		return apperrors.Internal("Failed to create meeting", err)
	}

	meeting.DisplayStatus = ResolveStatus(meeting, time.Now().UTC())
	s.publish(ctx, events.TypeMeetingScheduled, meeting)

	s.cfg.Log.Info("Meeting created successfully",
		"id", meeting.ID,
		"organizer", meeting.OrganizerEmail,
		"start_time", meeting.StartTime,
	)
	return nil
}

func (s *meetingService) GetByID(ctx context.Context, id string) (*model.Meeting, error) {
	meeting, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	meeting.DisplayStatus = ResolveStatus(meeting, time.Now().UTC())
	return meeting, nil
}

func (s *meetingService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Meeting, int64, error) {
	var count int64
	var meetings []*model.Meeting
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx)
		if errCount != nil {
			s.cfg.Log.Error("Failed to count meetings", "error", errCount)
			errCount = apperrors.Internal("Failed to count meetings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		meetings, errFind = s.repo.FindAll(ctx, limit, offset)
		if errFind != nil {
			s.cfg.Log.Error("Failed to list meetings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve meetings", errFind)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	now := time.Now().UTC()
	for _, m := range meetings {
		m.DisplayStatus = ResolveStatus(m, now)
	}

	return meetings, count, nil
}

func (s *meetingService) Update(ctx context.Context, id string, updates *model.MeetingUpdate) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if !Editable(existing, now) {
		return apperrors.Forbidden("Meeting can no longer be edited").
			WithDetails(map[string]any{"id": id, "status": ResolveStatus(existing, now)})
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Meeting update validation failed", "id", id, "error", err)
		return apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeUpdates(existing, updates)
	if err := s.validate(merged); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Meeting", id)
		}
		s.cfg.Log.Error("Failed to update meeting", "id", id, "error", err)
		return apperrors.Internal("Failed to update meeting", err)
	}

	timeChanged := !merged.StartTime.Equal(existing.StartTime) || !merged.EndTime.Equal(existing.EndTime)
	switch {
	case merged.Status == model.MeetingCancelled && existing.Status != model.MeetingCancelled:
		s.publish(ctx, events.TypeMeetingCancelled, merged)
	case timeChanged:
		s.publish(ctx, events.TypeMeetingRescheduled, merged)
	}

	s.cfg.Log.Info("Meeting updated successfully", "id", id)
	return nil
}

func (s *meetingService) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	if len(metadata) == 0 {
		return apperrors.InvalidInput("Metadata cannot be empty")
	}

	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if !Editable(existing, now) {
		return apperrors.Forbidden("Meeting can no longer be edited").
			WithDetails(map[string]any{"id": id, "status": ResolveStatus(existing, now)})
	}

	if err := s.repo.UpdateMetadata(ctx, id, metadata); err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Meeting", id)
		}
		s.cfg.Log.Error("Failed to update meeting metadata", "id", id, "error", err)
		return apperrors.Internal("Failed to update meeting metadata", err)
	}

	s.cfg.Log.Info("Meeting metadata updated", "id", id, "keys", len(metadata))
	return nil
}

func (s *meetingService) Delete(ctx context.Context, id string) error {
	meeting, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Meeting", id)
		}
		s.cfg.Log.Error("Failed to delete meeting", "id", id, "error", err)
		return apperrors.Internal("Failed to delete meeting", err)
	}

	s.publish(ctx, events.TypeMeetingCancelled, meeting)

	s.cfg.Log.Info("Meeting deleted successfully", "id", id)
	return nil
}

// MarkPolling puts the meeting under an open poll: stored status flips to
// polling and the poll markers land in metadata. Rejected while another
// poll is still pending.
func (s *meetingService) MarkPolling(ctx context.Context, id, pollID string) error {
	meeting, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if !Editable(meeting, now) {
		return apperrors.Forbidden("Meeting can no longer be edited").
			WithDetails(map[string]any{"id": id, "status": ResolveStatus(meeting, now)})
	}
	if meeting.PollPending() {
		return apperrors.Conflict("Meeting already has a pending poll").
			WithDetails(map[string]any{"id": id, "poll_id": meeting.Metadata[model.MetaPollID]})
	}

	meeting.Status = model.MeetingPolling
	if meeting.Metadata == nil {
		meeting.Metadata = map[string]any{}
	}
	meeting.Metadata[model.MetaPollID] = pollID
	meeting.Metadata[model.MetaPollPending] = true

	if err := s.repo.Update(ctx, id, meeting); err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Meeting", id)
		}
		s.cfg.Log.Error("Failed to mark meeting as polling", "id", id, "error", err)
		return apperrors.Internal("Failed to mark meeting as polling", err)
	}

	s.cfg.Log.Info("Meeting marked as polling", "id", id, "poll_id", pollID)
	return nil
}

// ApplySchedule moves the meeting to a decided time slot, typically the
// winner of a finalized poll. The polling markers are cleared and the
// status settles on confirmed.
func (s *meetingService) ApplySchedule(ctx context.Context, id string, startTime, endTime time.Time) (*model.Meeting, error) {
	if !endTime.After(startTime) {
		return nil, apperrors.InvalidInput("end_time must be after start_time")
	}

	meeting, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch ResolveStatus(meeting, now) {
	case model.MeetingCancelled:
		return nil, apperrors.Forbidden("Cannot schedule a cancelled meeting")
	case model.MeetingCompleted:
		return nil, apperrors.Forbidden("Cannot schedule a completed meeting")
	}

	meeting.StartTime = startTime
	meeting.EndTime = endTime
	meeting.Status = model.MeetingConfirmed
	if meeting.Metadata == nil {
		meeting.Metadata = map[string]any{}
	}
	meeting.Metadata[model.MetaPollPending] = false

	if err := s.repo.Update(ctx, id, meeting); err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Meeting", id)
		}
		s.cfg.Log.Error("Failed to apply schedule", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to apply schedule", err)
	}

	meeting.DisplayStatus = ResolveStatus(meeting, now)
	s.publish(ctx, events.TypeMeetingRescheduled, meeting)

	s.cfg.Log.Info("Schedule applied to meeting",
		"id", id,
		"start_time", startTime,
		"end_time", endTime,
	)
	return meeting, nil
}

// --- Helpers ---

func (s *meetingService) find(ctx context.Context, id string) (*model.Meeting, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Meeting ID cannot be empty")
	}

	meeting, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, meetingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Meeting", id)
		}
		if errors.Is(err, meetingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid meeting ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve meeting", err)
	}

	return meeting, nil
}

func (s *meetingService) applyDefaults(m *model.Meeting) {
	if m.Status == "" {
		m.Status = model.MeetingScheduled
	}
}

func (s *meetingService) mergeUpdates(existing *model.Meeting, updates *model.MeetingUpdate) *model.Meeting {
	merged := *existing

	if updates.Title != "" {
		merged.Title = updates.Title
	}
	if updates.Description != nil {
		merged.Description = *updates.Description
	}
	if updates.StartTime != nil {
		merged.StartTime = *updates.StartTime
	}
	if updates.EndTime != nil {
		merged.EndTime = *updates.EndTime
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}
	if updates.Metadata != nil {
		merged.Metadata = updates.Metadata
	}

	return &merged
}

func (s *meetingService) validate(meeting *model.Meeting) error {
	if err := s.validator.Validate(meeting); err != nil {
		s.cfg.Log.Warn("Meeting validation failed", "error", err)
		return apperrors.Validation("Meeting validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

// publish is best effort. A lost event degrades notifications, never the
// write that already committed.
func (s *meetingService) publish(ctx context.Context, eventType string, meeting *model.Meeting) {
	event, err := events.New(eventType, meeting.ID, meeting)
	if err != nil {
		s.cfg.Log.Warn("Failed to build meeting event", "type", eventType, "id", meeting.ID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish meeting event", "type", eventType, "id", meeting.ID, "error", err)
	}
}
