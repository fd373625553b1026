package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	roomserrors "convene/internal/rooms/errors"
	"convene/pkg/config"
	"convene/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Rooms"
)

type RoomRepository interface {
	FindAll(ctx context.Context) ([]*model.Room, error)
	FindByID(ctx context.Context, id string) (*model.Room, error)
	Seed(ctx context.Context, rooms []model.Room) error
}

type mongoRoomRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRoomRepository(cfg *config.Config) RoomRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoomRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRoomRepository) FindAll(ctx context.Context) ([]*model.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []*model.Room
	if err = cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("failed to decode rooms: %w", err)
	}

	return rooms, nil
}

func (r *mongoRoomRepository) FindByID(ctx context.Context, id string) (*model.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var room model.Room
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, roomserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find room: %w", err)
	}

	return &room, nil
}

// Seed upserts the room catalog. Rerunning with the same catalog is a
// no-op, so it is safe on every startup.
func (r *mongoRoomRepository) Seed(ctx context.Context, rooms []model.Room) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, room := range rooms {
		_, err := r.collection.UpdateOne(ctx,
			bson.M{"_id": room.ID},
			bson.M{"$set": room},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("failed to seed room %s: %w", room.ID, err)
		}
	}

	return nil
}
