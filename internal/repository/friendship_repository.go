package repository

import (
	"context"
	"time"

	"propchat/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const friendshipsCollection = "friendships"

type FriendshipRepository interface {
	GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Friendship, error)
	Create(ctx context.Context, friendship entity.Friendship) (entity.Friendship, error)
	SetActive(ctx context.Context, friendshipId string, active bool) error
	IndexActiveByParty(ctx context.Context, partyId string) ([]entity.Friendship, error)
}

type friendshipRepository struct {
	db mongo.Database
}

func NewFriendshipRepository(db mongo.Database) FriendshipRepository {
	return &friendshipRepository{
		db: db,
	}
}

func (r *friendshipRepository) GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Friendship, error) {
	collection := r.db.Collection(friendshipsCollection)
	filter := bson.M{
		"partyLow":  partyLow,
		"partyHigh": partyHigh,
	}

	var friendship entity.Friendship
	err := collection.FindOne(ctx, filter).Decode(&friendship)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Friendship{}, ErrFriendshipNotFound
		}
		return entity.Friendship{}, err
	}

	return friendship, nil
}

func (r *friendshipRepository) Create(ctx context.Context, friendship entity.Friendship) (entity.Friendship, error) {
	collection := r.db.Collection(friendshipsCollection)
	if friendship.Id == "" {
		friendship.Id = uuid.New().String()
	}
	now := time.Now()
	friendship.CreatedAt = now
	friendship.UpdatedAt = now

	_, err := collection.InsertOne(ctx, friendship)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.Friendship{}, ErrDuplicate
		}
		return entity.Friendship{}, err
	}

	return friendship, nil
}

func (r *friendshipRepository) SetActive(ctx context.Context, friendshipId string, active bool) error {
	collection := r.db.Collection(friendshipsCollection)
	filter := bson.M{"_id": friendshipId}
	update := bson.M{
		"$set": bson.M{
			"isActive":  active,
			"updatedAt": time.Now(),
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrFriendshipNotFound
	}

	return nil
}

// IndexActiveByParty returns active friendships on either side of the pair
func (r *friendshipRepository) IndexActiveByParty(ctx context.Context, partyId string) ([]entity.Friendship, error) {
	collection := r.db.Collection(friendshipsCollection)
	filter := bson.M{
		"isActive": true,
		"$or": bson.A{
			bson.M{"partyLow": partyId},
			bson.M{"partyHigh": partyId},
		},
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var friendships []entity.Friendship
	if err := cursor.All(ctx, &friendships); err != nil {
		return nil, err
	}

	return friendships, nil
}
