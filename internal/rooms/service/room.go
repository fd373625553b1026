package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	meetingsservice "convene/internal/meetings/service"
	roomserrors "convene/internal/rooms/errors"
	"convene/internal/rooms/repository"
	"convene/internal/rooms/validator"
	"convene/pkg/config"
	apperrors "convene/pkg/errors"
	"convene/pkg/events"
	"convene/pkg/model"
	"convene/pkg/timeutil"

	"go.mongodb.org/mongo-driver/mongo"
)

type RoomService interface {
	GetAll(ctx context.Context) ([]*model.Room, error)
	GetByID(ctx context.Context, id string) (*model.Room, error)
	CheckAvailability(ctx context.Context, startTime, endTime time.Time, excludeMeetingID string) ([]model.RoomAvailability, error)
	Book(ctx context.Context, roomID string, req *model.BookRoomRequest) (*model.RoomBooking, error)
}

type roomService struct {
	rooms     repository.RoomRepository
	bookings  repository.BookingRepository
	locks     repository.SlotLockRepository
	meetings  meetingsservice.MeetingService
	validator *validator.RoomValidator
	publisher events.Publisher
	cfg       *config.Config
}

func NewRoomService(
	rooms repository.RoomRepository,
	bookings repository.BookingRepository,
	locks repository.SlotLockRepository,
	meetings meetingsservice.MeetingService,
	validator *validator.RoomValidator,
	publisher events.Publisher,
	cfg *config.Config,
) RoomService {
	return &roomService{
		rooms:     rooms,
		bookings:  bookings,
		locks:     locks,
		meetings:  meetings,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *roomService) GetAll(ctx context.Context) ([]*model.Room, error) {
	rooms, err := s.rooms.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}
	return rooms, nil
}

func (s *roomService) GetByID(ctx context.Context, id string) (*model.Room, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Room ID cannot be empty")
	}

	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, roomserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Room", id)
		}
		return nil, apperrors.Internal("Failed to retrieve room", err)
	}

	return room, nil
}

// CheckAvailability reports, for every room in the catalog, whether the
// half-open range [startTime, endTime) is free of confirmed bookings.
// Bookings of excludeMeetingID do not count against their own meeting.
func (s *roomService) CheckAvailability(ctx context.Context, startTime, endTime time.Time, excludeMeetingID string) ([]model.RoomAvailability, error) {
	window := timeutil.Interval{Start: startTime, End: endTime}
	if !window.IsValid() {
		return nil, apperrors.InvalidInput("end_time must be after start_time")
	}

	rooms, err := s.rooms.FindAll(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list rooms for availability check", "error", err)
		return nil, apperrors.Internal("Failed to retrieve rooms", err)
	}

	availability := make([]model.RoomAvailability, 0, len(rooms))
	for _, room := range rooms {
		conflicts, err := s.conflictsFor(ctx, room.ID, window, excludeMeetingID)
		if err != nil {
			return nil, err
		}
		availability = append(availability, model.RoomAvailability{
			Room:        *room,
			IsAvailable: len(conflicts) == 0,
			Conflicts:   conflicts,
		})
	}

	return availability, nil
}

// Book commits a booking for the meeting in the given room. The conflict
// check runs twice: once up front for an early answer, and again inside a
// transaction under an advisory slot lock, so two requests racing for the
// same slot cannot both commit.
func (s *roomService) Book(ctx context.Context, roomID string, req *model.BookRoomRequest) (*model.RoomBooking, error) {
	if err := s.validator.ValidateBooking(req); err != nil {
		s.cfg.Log.Warn("Room booking validation failed", "room_id", roomID, "error", err)
		return nil, apperrors.Validation("Room booking validation failed", map[string]any{"error": err.Error()})
	}

	room, err := s.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	meeting, err := s.meetings.GetByID(ctx, req.MeetingID)
	if err != nil {
		return nil, err
	}
	switch meeting.DisplayStatus {
	case model.MeetingCancelled:
		return nil, apperrors.Forbidden("Cannot book a room for a cancelled meeting")
	case model.MeetingCompleted:
		return nil, apperrors.Forbidden("Cannot book a room for a completed meeting")
	}

	window := timeutil.Interval{Start: meeting.StartTime, End: meeting.EndTime}
	if req.StartTime != nil && req.EndTime != nil {
		window = timeutil.Interval{Start: *req.StartTime, End: *req.EndTime}
	}
	if !window.IsValid() {
		return nil, apperrors.InvalidInput("end_time must be after start_time")
	}

	lockID, err := s.acquireSlotLock(ctx, room.ID, window.Start)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.locks.Delete(ctx, lockID); releaseErr != nil {
			s.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
	}()

	booking := &model.RoomBooking{
		RoomID:       room.ID,
		MeetingID:    meeting.ID,
		MeetingTitle: meeting.Title,
		StartTime:    window.Start,
		EndTime:      window.End,
		Status:       model.BookingConfirmed,
	}

	err = s.bookings.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		conflicts, err := s.conflictsFor(sessCtx, room.ID, window, meeting.ID)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return apperrors.Conflict("Room is already booked in the requested range").
				WithDetails(map[string]any{"room_id": room.ID, "conflicts": conflicts})
		}
		if err := s.bookings.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create room booking", err)
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to book room", "room_id", room.ID, "meeting_id", meeting.ID, "error", err)
		return nil, err
	}

	s.publish(ctx, booking)

	s.cfg.Log.Info("Room booked",
		"room_id", room.ID,
		"meeting_id", meeting.ID,
		"start_time", booking.StartTime,
	)
	return booking, nil
}

// --- Helpers ---

func (s *roomService) conflictsFor(ctx context.Context, roomID string, window timeutil.Interval, excludeMeetingID string) ([]model.BookingConflict, error) {
	bookings, err := s.bookings.FindConfirmedOverlapping(ctx, roomID, window.Start, window.End)
	if err != nil {
		s.cfg.Log.Error("Failed to check room bookings", "room_id", roomID, "error", err)
		return nil, apperrors.Internal("Failed to check room bookings", err)
	}

	var conflicts []model.BookingConflict
	for _, b := range bookings {
		if excludeMeetingID != "" && b.MeetingID == excludeMeetingID {
			continue
		}
		booked := timeutil.Interval{Start: b.StartTime, End: b.EndTime}
		if timeutil.Overlaps(booked, window) {
			conflicts = append(conflicts, model.BookingConflict{
				MeetingID:    b.MeetingID,
				MeetingTitle: b.MeetingTitle,
				StartTime:    b.StartTime,
				EndTime:      b.EndTime,
			})
		}
	}

	return conflicts, nil
}

func (s *roomService) acquireSlotLock(ctx context.Context, roomID string, startTime time.Time) (string, error) {
	lockID := fmt.Sprintf("room_lock_%s_%d", roomID, startTime.Unix())

	lock := &model.SlotLock{
		ID:        lockID,
		ExpiresAt: time.Now().Add(s.cfg.BookingLockTTL),
	}

	_, err := s.locks.Create(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.Conflict("This room slot is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire slot lock", err)
	}

	return lockID, nil
}

func (s *roomService) publish(ctx context.Context, booking *model.RoomBooking) {
	event, err := events.New(events.TypeRoomBooked, booking.MeetingID, booking)
	if err != nil {
		s.cfg.Log.Warn("Failed to build booking event", "room_id", booking.RoomID, "error", err)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Warn("Failed to publish booking event", "room_id", booking.RoomID, "error", err)
	}
}
