package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pollserrors "convene/internal/polls/errors"
	"convene/pkg/config"
	mongotx "convene/pkg/db/mongo"
	"convene/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Polls"
)

type PollRepository interface {
	Create(ctx context.Context, poll *model.Poll) error
	FindByID(ctx context.Context, id string) (*model.Poll, error)
	MoveVote(ctx context.Context, pollID, optionID, voter string) error
	Close(ctx context.Context, id string) error
	SetWinner(ctx context.Context, id, optionID string) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoPollRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoPollRepository(cfg *config.Config) PollRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPollRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoPollRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoPollRepository) Create(ctx context.Context, poll *model.Poll) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	poll.CreatedAt = now
	poll.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, poll); err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}
	return nil
}

func (r *mongoPollRepository) FindByID(ctx context.Context, id string) (*model.Poll, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var poll model.Poll
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&poll)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, pollserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find poll: %w", err)
	}

	return &poll, nil
}

// MoveVote removes the voter from every option and adds them to the target,
// inside one transaction so concurrent voters never interleave half-applied.
// The second update matches only an open poll containing the target option;
// zero matches there means the poll flipped closed or the option is gone.
func (r *mongoPollRepository) MoveVote(ctx context.Context, pollID, optionID, voter string) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		now := time.Now().UTC().Truncate(time.Millisecond)

		_, err := r.collection.UpdateOne(sessCtx,
			bson.M{"_id": pollID, "status": model.PollOpen},
			bson.M{"$pull": bson.M{"options.$[].votes": voter}},
		)
		if err != nil {
			return fmt.Errorf("failed to clear previous vote: %w", err)
		}

		result, err := r.collection.UpdateOne(sessCtx,
			bson.M{"_id": pollID, "status": model.PollOpen, "options.id": optionID},
			bson.M{
				"$addToSet": bson.M{"options.$.votes": voter},
				"$set":      bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return fmt.Errorf("failed to record vote: %w", err)
		}
		if result.MatchedCount == 0 {
			return pollserrors.ErrClosed
		}

		return nil
	})
}

func (r *mongoPollRepository) Close(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     model.PollClosed,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to close poll: %w", err)
	}
	if result.MatchedCount == 0 {
		return pollserrors.ErrNotFound
	}

	return nil
}

// SetWinner records the winning option only when none has been recorded
// yet. Returns false when another finalize already won the race; the caller
// re-reads to converge on that outcome.
func (r *mongoPollRepository) SetWinner(ctx context.Context, id, optionID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{
			"_id": id,
			"$or": []bson.M{
				{"winning_option_id": bson.M{"$exists": false}},
				{"winning_option_id": ""},
			},
		},
		bson.M{"$set": bson.M{
			"status":            model.PollClosed,
			"winning_option_id": optionID,
			"updated_at":        time.Now().UTC().Truncate(time.Millisecond),
		}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to set poll winner: %w", err)
	}

	return result.MatchedCount > 0, nil
}

func (r *mongoPollRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
