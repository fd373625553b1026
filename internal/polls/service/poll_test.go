package service

import (
	"context"
	"slices"
	"testing"
	"time"

	pollserrors "convene/internal/polls/errors"
	"convene/internal/polls/validator"
	"convene/pkg/config"
	mongotx "convene/pkg/db/mongo"
	apperrors "convene/pkg/errors"
	"convene/pkg/events"
	"convene/pkg/logger"
	"convene/pkg/model"
)

type mockPollRepository struct {
	createFunc    func(ctx context.Context, poll *model.Poll) error
	findByIDFunc  func(ctx context.Context, id string) (*model.Poll, error)
	moveVoteFunc  func(ctx context.Context, pollID, optionID, voter string) error
	closeFunc     func(ctx context.Context, id string) error
	setWinnerFunc func(ctx context.Context, id, optionID string) (bool, error)

	closeCalls     int
	setWinnerCalls int
}

func (m *mockPollRepository) Create(ctx context.Context, poll *model.Poll) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, poll)
	}
	return nil
}

func (m *mockPollRepository) FindByID(ctx context.Context, id string) (*model.Poll, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, pollserrors.ErrNotFound
}

func (m *mockPollRepository) MoveVote(ctx context.Context, pollID, optionID, voter string) error {
	if m.moveVoteFunc != nil {
		return m.moveVoteFunc(ctx, pollID, optionID, voter)
	}
	return nil
}

func (m *mockPollRepository) Close(ctx context.Context, id string) error {
	m.closeCalls++
	if m.closeFunc != nil {
		return m.closeFunc(ctx, id)
	}
	return nil
}

func (m *mockPollRepository) SetWinner(ctx context.Context, id, optionID string) (bool, error) {
	m.setWinnerCalls++
	if m.setWinnerFunc != nil {
		return m.setWinnerFunc(ctx, id, optionID)
	}
	return true, nil
}

func (m *mockPollRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(nil)
}

type mockMeetingService struct {
	markPollingFunc   func(ctx context.Context, id, pollID string) error
	applyScheduleFunc func(ctx context.Context, id string, startTime, endTime time.Time) (*model.Meeting, error)

	applied []model.Meeting
}

func (m *mockMeetingService) Create(context.Context, *model.Meeting) error { return nil }
func (m *mockMeetingService) GetByID(context.Context, string) (*model.Meeting, error) {
	return nil, nil
}
func (m *mockMeetingService) GetAll(context.Context, int, int64) ([]*model.Meeting, int64, error) {
	return nil, 0, nil
}
func (m *mockMeetingService) Update(context.Context, string, *model.MeetingUpdate) error { return nil }
func (m *mockMeetingService) UpdateMetadata(context.Context, string, map[string]any) error {
	return nil
}
func (m *mockMeetingService) Delete(context.Context, string) error { return nil }

func (m *mockMeetingService) MarkPolling(ctx context.Context, id, pollID string) error {
	if m.markPollingFunc != nil {
		return m.markPollingFunc(ctx, id, pollID)
	}
	return nil
}

func (m *mockMeetingService) ApplySchedule(ctx context.Context, id string, startTime, endTime time.Time) (*model.Meeting, error) {
	m.applied = append(m.applied, model.Meeting{ID: id, StartTime: startTime, EndTime: endTime})
	if m.applyScheduleFunc != nil {
		return m.applyScheduleFunc(ctx, id, startTime, endTime)
	}
	return &model.Meeting{ID: id, StartTime: startTime, EndTime: endTime}, nil
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	var types []string
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func testPollConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		MaxPollOptions: 20,
		Log: logger.New(logger.Config{
			Level:   "error",
			Service: "test",
		}),
	}
}

func newPollService(t *testing.T, repo *mockPollRepository, meetings *mockMeetingService, pub events.Publisher) PollService {
	t.Helper()
	cfg := testPollConfig(t)
	if meetings == nil {
		meetings = &mockMeetingService{}
	}
	if pub == nil {
		pub = events.Noop{}
	}
	return NewPollService(repo, meetings, validator.NewPollValidator(cfg.MaxPollOptions, cfg.Log), pub, cfg)
}

func at(hour int) time.Time {
	return time.Date(2026, time.March, 2, hour, 0, 0, 0, time.UTC)
}

// twoOptionPoll has option A at 09:00 with one vote and option B at 10:00
// with none.
func twoOptionPoll() *model.Poll {
	return &model.Poll{
		ID:        "11111111-1111-4111-8111-111111111111",
		MeetingID: "65f1a2b3c4d5e6f7a8b9c0d1",
		Status:    model.PollOpen,
		Options: []model.PollOption{
			{
				ID:        "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa",
				StartTime: at(9),
				EndTime:   at(10),
				Votes:     []string{"alice@example.com"},
			},
			{
				ID:        "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb",
				StartTime: at(10),
				EndTime:   at(11),
				Votes:     []string{},
			},
		},
	}
}

func TestCreatePoll_MarksMeetingPolling(t *testing.T) {
	var markedMeeting, markedPoll string
	meetings := &mockMeetingService{
		markPollingFunc: func(_ context.Context, id, pollID string) error {
			markedMeeting, markedPoll = id, pollID
			return nil
		},
	}
	repo := &mockPollRepository{}
	pub := &recordingPublisher{}
	svc := newPollService(t, repo, meetings, pub)

	deadline := time.Now().Add(48 * time.Hour)
	poll, err := svc.CreatePoll(context.Background(), "65f1a2b3c4d5e6f7a8b9c0d1", &model.PollCreateRequest{
		Options: []model.PollOptionInput{
			{StartTime: at(9), EndTime: at(10)},
			{StartTime: at(10), EndTime: at(11)},
		},
		Deadline: &deadline,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.Status != model.PollOpen {
		t.Errorf("status = %q, want %q", poll.Status, model.PollOpen)
	}
	if len(poll.Options) != 2 {
		t.Fatalf("options = %d, want 2", len(poll.Options))
	}
	if poll.Options[0].ID == "" || poll.Options[0].ID == poll.Options[1].ID {
		t.Error("option ids must be distinct and non-empty")
	}
	if markedMeeting != poll.MeetingID || markedPoll != poll.ID {
		t.Errorf("meeting marked with (%s, %s), want (%s, %s)", markedMeeting, markedPoll, poll.MeetingID, poll.ID)
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.TypePollCreated {
		t.Errorf("published events = %v, want [%s]", got, events.TypePollCreated)
	}
}

func TestCreatePoll_ConflictWhenPollAlreadyPending(t *testing.T) {
	meetings := &mockMeetingService{
		markPollingFunc: func(context.Context, string, string) error {
			return apperrors.Conflict("Meeting already has a pending poll")
		},
	}
	repo := &mockPollRepository{
		createFunc: func(context.Context, *model.Poll) error {
			t.Fatal("poll must not be inserted when marking fails")
			return nil
		},
	}
	svc := newPollService(t, repo, meetings, nil)

	_, err := svc.CreatePoll(context.Background(), "65f1a2b3c4d5e6f7a8b9c0d1", &model.PollCreateRequest{
		Options: []model.PollOptionInput{{StartTime: at(9), EndTime: at(10)}},
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeConflict)
	}
}

func TestCreatePoll_RejectsTooManyOptions(t *testing.T) {
	svc := newPollService(t, &mockPollRepository{}, nil, nil)

	options := make([]model.PollOptionInput, 21)
	for i := range options {
		options[i] = model.PollOptionInput{
			StartTime: at(9).Add(time.Duration(i) * time.Hour),
			EndTime:   at(10).Add(time.Duration(i) * time.Hour),
		}
	}

	_, err := svc.CreatePoll(context.Background(), "65f1a2b3c4d5e6f7a8b9c0d1", &model.PollCreateRequest{
		Options: options,
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeValidation {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeValidation)
	}
}

func TestVote_MovesBetweenOptions(t *testing.T) {
	stored := twoOptionPoll()
	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
		moveVoteFunc: func(_ context.Context, _, optionID, voter string) error {
			for i := range stored.Options {
				votes := stored.Options[i].Votes
				if idx := slices.Index(votes, voter); idx >= 0 {
					stored.Options[i].Votes = slices.Delete(votes, idx, idx+1)
				}
			}
			opt := stored.Option(optionID)
			if !slices.Contains(opt.Votes, voter) {
				opt.Votes = append(opt.Votes, voter)
			}
			return nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	// alice starts on option A; voting for B moves her, not duplicates her.
	poll, err := svc.Vote(context.Background(), stored.ID, &model.VoteRequest{
		OptionID: stored.Options[1].ID,
		Voter:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(poll.Options[0].Votes); n != 0 {
		t.Errorf("old option still has %d votes", n)
	}
	if got := poll.Options[1].Votes; len(got) != 1 || got[0] != "alice@example.com" {
		t.Errorf("target option votes = %v", got)
	}

	// Re-voting for the same option stays a single entry.
	poll, err = svc.Vote(context.Background(), stored.ID, &model.VoteRequest{
		OptionID: stored.Options[1].ID,
		Voter:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(poll.Options[1].Votes); n != 1 {
		t.Errorf("votes duplicated: %d entries", n)
	}
}

func TestVote_ForbiddenAfterDeadline(t *testing.T) {
	stored := twoOptionPoll()
	past := time.Now().UTC().Add(-time.Hour)
	stored.Deadline = &past

	moveCalled := false
	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
		moveVoteFunc: func(context.Context, string, string, string) error {
			moveCalled = true
			return nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	_, err := svc.Vote(context.Background(), stored.ID, &model.VoteRequest{
		OptionID: stored.Options[0].ID,
		Voter:    "bob@example.com",
	})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeForbidden)
	}
	if moveCalled {
		t.Error("vote mutation reached the repository after the deadline")
	}
	if repo.closeCalls != 1 {
		t.Errorf("lazy close persisted %d times, want 1", repo.closeCalls)
	}
}

func TestVote_ForbiddenWhenClosed(t *testing.T) {
	stored := twoOptionPoll()
	stored.Status = model.PollClosed

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	_, err := svc.Vote(context.Background(), stored.ID, &model.VoteRequest{
		OptionID: stored.Options[0].ID,
		Voter:    "bob@example.com",
	})
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeForbidden {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeForbidden)
	}
	if repo.closeCalls != 0 {
		t.Error("already-closed poll should not be closed again")
	}
}

func TestVote_UnknownOptionNotFound(t *testing.T) {
	stored := twoOptionPoll()
	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	_, err := svc.Vote(context.Background(), stored.ID, &model.VoteRequest{
		OptionID: "cccccccc-cccc-4ccc-8ccc-cccccccccccc",
		Voter:    "bob@example.com",
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeNotFound {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeNotFound)
	}
}

func TestGetByID_LazyClosesPastDeadline(t *testing.T) {
	stored := twoOptionPoll()
	past := time.Now().UTC().Add(-time.Minute)
	stored.Deadline = &past

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	poll, err := svc.GetByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.Status != model.PollClosed {
		t.Errorf("status = %q, want %q", poll.Status, model.PollClosed)
	}
	if repo.closeCalls != 1 {
		t.Errorf("close persisted %d times, want 1", repo.closeCalls)
	}
}

func TestClose_Idempotent(t *testing.T) {
	stored := twoOptionPoll()
	stored.Status = model.PollClosed

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	pub := &recordingPublisher{}
	svc := newPollService(t, repo, nil, pub)

	poll, err := svc.Close(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.Status != model.PollClosed {
		t.Errorf("status = %q, want %q", poll.Status, model.PollClosed)
	}
	if repo.closeCalls != 0 {
		t.Error("closed poll should not be written again")
	}
	if len(pub.events) != 0 {
		t.Errorf("no event expected on a no-op close, got %v", pub.types())
	}
}

func TestFinalize_MostVotesWins(t *testing.T) {
	stored := twoOptionPoll()
	stored.Options[1].Votes = []string{"bob@example.com", "carol@example.com"}

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	meetings := &mockMeetingService{}
	pub := &recordingPublisher{}
	svc := newPollService(t, repo, meetings, pub)

	poll, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.WinningOptionID != stored.Options[1].ID {
		t.Errorf("winner = %s, want %s", poll.WinningOptionID, stored.Options[1].ID)
	}
	if poll.Status != model.PollClosed {
		t.Errorf("status = %q, want %q", poll.Status, model.PollClosed)
	}
	if len(meetings.applied) != 1 {
		t.Fatalf("ApplySchedule called %d times, want 1", len(meetings.applied))
	}
	if !meetings.applied[0].StartTime.Equal(stored.Options[1].StartTime) {
		t.Error("meeting not moved to the winning slot")
	}
	if got := pub.types(); len(got) != 1 || got[0] != events.TypePollFinalized {
		t.Errorf("published events = %v, want [%s]", got, events.TypePollFinalized)
	}
}

func TestFinalize_TieBrokenByEarliestStart(t *testing.T) {
	stored := twoOptionPoll()
	stored.Options[0].Votes = []string{"alice@example.com"}
	stored.Options[1].Votes = []string{"bob@example.com"}

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	poll, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.WinningOptionID != stored.Options[0].ID {
		t.Errorf("winner = %s, want earliest option %s", poll.WinningOptionID, stored.Options[0].ID)
	}
}

func TestFinalize_ManualOverride(t *testing.T) {
	stored := twoOptionPoll()
	stored.Options[0].Votes = []string{"alice@example.com", "bob@example.com"}

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	poll, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{
		OptionID: stored.Options[1].ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.WinningOptionID != stored.Options[1].ID {
		t.Errorf("winner = %s, want the override %s", poll.WinningOptionID, stored.Options[1].ID)
	}
}

func TestFinalize_IdempotentOnceDecided(t *testing.T) {
	stored := twoOptionPoll()
	stored.Status = model.PollClosed
	stored.WinningOptionID = stored.Options[0].ID

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	meetings := &mockMeetingService{}
	svc := newPollService(t, repo, meetings, nil)

	first, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.WinningOptionID != second.WinningOptionID {
		t.Errorf("finalize not idempotent: %s then %s", first.WinningOptionID, second.WinningOptionID)
	}
	if repo.setWinnerCalls != 0 {
		t.Errorf("winner written %d times for an already finalized poll", repo.setWinnerCalls)
	}
	if len(meetings.applied) != 0 {
		t.Error("schedule re-applied on an idempotent finalize")
	}
}

func TestFinalize_ConflictOnDifferentOverride(t *testing.T) {
	stored := twoOptionPoll()
	stored.Status = model.PollClosed
	stored.WinningOptionID = stored.Options[0].ID

	repo := &mockPollRepository{
		findByIDFunc: func(context.Context, string) (*model.Poll, error) {
			clone := *stored
			return &clone, nil
		},
	}
	svc := newPollService(t, repo, nil, nil)

	_, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{
		OptionID: stored.Options[1].ID,
	})
	if err == nil {
		t.Fatal("expected conflict error")
	}
	if appErr := apperrors.AsAppError(err); appErr.Code != apperrors.CodeConflict {
		t.Errorf("error code = %s, want %s", appErr.Code, apperrors.CodeConflict)
	}
}

func TestFinalize_ConcurrentCallsConverge(t *testing.T) {
	stored := twoOptionPoll()
	racedWinner := stored.Options[1].ID

	repo := &mockPollRepository{}
	repo.findByIDFunc = func(context.Context, string) (*model.Poll, error) {
		clone := *stored
		if repo.setWinnerCalls > 0 {
			// Another finalize landed between our read and write.
			clone.Status = model.PollClosed
			clone.WinningOptionID = racedWinner
		}
		return &clone, nil
	}
	repo.setWinnerFunc = func(context.Context, string, string) (bool, error) {
		return false, nil
	}
	meetings := &mockMeetingService{}
	svc := newPollService(t, repo, meetings, nil)

	poll, err := svc.Finalize(context.Background(), stored.ID, &model.FinalizeRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if poll.WinningOptionID != racedWinner {
		t.Errorf("winner = %s, want the raced winner %s", poll.WinningOptionID, racedWinner)
	}
	if len(meetings.applied) != 0 {
		t.Error("loser of the finalize race must not move the meeting")
	}
}
