package model

import "time"

const (
	PollOpen   = "open"
	PollClosed = "closed"
)

// Poll is a time poll attached to a meeting. Options are embedded: votes
// move between options atomically within one document update, which is what
// keeps the one-vote-per-voter invariant safe under concurrent votes.
type Poll struct {
	ID              string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	MeetingID       string       `json:"meeting_id" bson:"meeting_id" validate:"required,mongodb"`
	Status          string       `json:"status" bson:"status" validate:"required,oneof=open closed"`
	Options         []PollOption `json:"options" bson:"options" validate:"required,min=1,dive"`
	Deadline        *time.Time   `json:"deadline,omitempty" bson:"deadline,omitempty"`
	WinningOptionID string       `json:"winning_option_id,omitempty" bson:"winning_option_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt       time.Time    `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type PollOption struct {
	ID        string    `json:"id" bson:"id" validate:"required,uuid4"`
	StartTime time.Time `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Votes     []string  `json:"votes" bson:"votes" validate:"omitempty,dive,email"`
}

type PollOptionInput struct {
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required,gtfield=StartTime"`
}

type PollCreateRequest struct {
	Options  []PollOptionInput `json:"options" validate:"required,min=1,dive"`
	Deadline *time.Time        `json:"deadline,omitempty"`
}

type VoteRequest struct {
	OptionID string `json:"option_id" validate:"required,uuid4"`
	Voter    string `json:"voter_email" validate:"required,email"`
}

// FinalizeRequest carries an optional manual override. Empty means count
// the votes.
type FinalizeRequest struct {
	OptionID string `json:"option_id,omitempty" validate:"omitempty,uuid4"`
}

// DeadlinePassed reports whether the poll's deadline lies at or before now.
// A poll with no deadline never expires on its own.
func (p *Poll) DeadlinePassed(now time.Time) bool {
	return p.Deadline != nil && !now.Before(*p.Deadline)
}

// AcceptingVotes is the effective-open check: the stored status must be
// open AND the deadline must not have passed. The status field is flipped
// lazily, so both conditions matter.
func (p *Poll) AcceptingVotes(now time.Time) bool {
	return p.Status == PollOpen && !p.DeadlinePassed(now)
}

func (p *Poll) Option(optionID string) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// Winner computes the winning option: most votes, tie broken by earliest
// start time. Assumes at least one option exists.
func (p *Poll) Winner() *PollOption {
	var winner *PollOption
	for i := range p.Options {
		opt := &p.Options[i]
		if winner == nil {
			winner = opt
			continue
		}
		if len(opt.Votes) > len(winner.Votes) {
			winner = opt
			continue
		}
		if len(opt.Votes) == len(winner.Votes) && opt.StartTime.Before(winner.StartTime) {
			winner = opt
		}
	}
	return winner
}
