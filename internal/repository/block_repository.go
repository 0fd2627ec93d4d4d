package repository

import (
	"context"
	"time"

	"propchat/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const blocksCollection = "blocks"

type BlockRepository interface {
	Exists(ctx context.Context, blockerId, blockedId string) (bool, error)
	ExistsEither(ctx context.Context, partyA, partyB string) (bool, error)
	Create(ctx context.Context, block entity.Block) (entity.Block, error)
	Delete(ctx context.Context, blockerId, blockedId string) error
	IndexByBlocker(ctx context.Context, blockerId string) ([]entity.Block, error)
}

type blockRepository struct {
	db mongo.Database
}

func NewBlockRepository(db mongo.Database) BlockRepository {
	return &blockRepository{
		db: db,
	}
}

func (r *blockRepository) Exists(ctx context.Context, blockerId, blockedId string) (bool, error) {
	collection := r.db.Collection(blocksCollection)
	filter := bson.M{
		"blockerId": blockerId,
		"blockedId": blockedId,
	}

	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// ExistsEither reports a block row in either direction
func (r *blockRepository) ExistsEither(ctx context.Context, partyA, partyB string) (bool, error) {
	collection := r.db.Collection(blocksCollection)
	filter := bson.M{
		"$or": bson.A{
			bson.M{"blockerId": partyA, "blockedId": partyB},
			bson.M{"blockerId": partyB, "blockedId": partyA},
		},
	}

	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *blockRepository) Create(ctx context.Context, block entity.Block) (entity.Block, error) {
	collection := r.db.Collection(blocksCollection)
	if block.Id == "" {
		block.Id = uuid.New().String()
	}
	if block.CreatedAt.IsZero() {
		block.CreatedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, block)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.Block{}, ErrDuplicate
		}
		return entity.Block{}, err
	}

	return block, nil
}

func (r *blockRepository) Delete(ctx context.Context, blockerId, blockedId string) error {
	collection := r.db.Collection(blocksCollection)
	filter := bson.M{
		"blockerId": blockerId,
		"blockedId": blockedId,
	}

	res, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrBlockNotFound
	}

	return nil
}

func (r *blockRepository) IndexByBlocker(ctx context.Context, blockerId string) ([]entity.Block, error) {
	collection := r.db.Collection(blocksCollection)
	filter := bson.M{"blockerId": blockerId}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var blocks []entity.Block
	if err := cursor.All(ctx, &blocks); err != nil {
		return nil, err
	}

	return blocks, nil
}
