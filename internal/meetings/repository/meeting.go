package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	meetingserrors "convene/internal/meetings/errors"
	"convene/pkg/config"
	mongotx "convene/pkg/db/mongo"
	"convene/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Meetings"
)

type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) error
	FindByID(ctx context.Context, id string) (*model.Meeting, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Meeting, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id string, meeting *model.Meeting) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoMeetingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoMeetingRepository(cfg *config.Config) MeetingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoMeetingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless already inside a
// transaction. A SessionContext cannot be wrapped without breaking
// transaction semantics, so it passes through with a no-op cancel.
func (r *mongoMeetingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

func (r *mongoMeetingRepository) Create(ctx context.Context, meeting *model.Meeting) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, meeting)
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		meeting.ID = oid.Hex()
	}
	return nil
}

func (r *mongoMeetingRepository) FindByID(ctx context.Context, id string) (*model.Meeting, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", meetingserrors.ErrInvalidID, id)
	}

	var meeting model.Meeting
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&meeting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, meetingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find meeting: %w", err)
	}

	return &meeting, nil
}

func (r *mongoMeetingRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Meeting, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: 1}}).
		SetLimit(int64(limit)).
		SetSkip(offset)

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find meetings: %w", err)
	}
	defer cursor.Close(ctx)

	var meetings []*model.Meeting
	if err = cursor.All(ctx, &meetings); err != nil {
		return nil, fmt.Errorf("failed to decode meetings: %w", err)
	}

	return meetings, nil
}

func (r *mongoMeetingRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count meetings: %w", err)
	}

	return count, nil
}

func (r *mongoMeetingRepository) Update(ctx context.Context, id string, meeting *model.Meeting) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", meetingserrors.ErrInvalidID, id)
	}

	update := bson.M{
		"$set": bson.M{
			"title":           meeting.Title,
			"description":     meeting.Description,
			"organizer_email": meeting.OrganizerEmail,
			"participants":    meeting.Participants,
			"start_time":      meeting.StartTime,
			"end_time":        meeting.EndTime,
			"status":          meeting.Status,
			"metadata":        meeting.Metadata,
			"updated_at":      time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}

	if result.MatchedCount == 0 {
		return meetingserrors.ErrNotFound
	}

	return nil
}

// UpdateMetadata merges the given keys into the metadata map without
// touching the rest of the document.
func (r *mongoMeetingRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", meetingserrors.ErrInvalidID, id)
	}

	set := bson.M{
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}
	for key, value := range metadata {
		set["metadata."+key] = value
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update meeting metadata: %w", err)
	}

	if result.MatchedCount == 0 {
		return meetingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoMeetingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", meetingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete meeting: %w", err)
	}

	if result.DeletedCount == 0 {
		return meetingserrors.ErrNotFound
	}

	return nil
}

func (r *mongoMeetingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
