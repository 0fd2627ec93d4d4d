package repository

import (
	"context"
	"time"

	"propchat/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const residentsCollection = "residents"

type ResidentRepository interface {
	Get(ctx context.Context, residentId string) (entity.Resident, error)
	GetByUserId(ctx context.Context, userId string) (entity.Resident, error)
	IndexByIds(ctx context.Context, residentIds []string) ([]entity.Resident, error)
	Create(ctx context.Context, resident entity.Resident) (entity.Resident, error)
}

type residentRepository struct {
	db mongo.Database
}

func NewResidentRepository(db mongo.Database) ResidentRepository {
	return &residentRepository{
		db: db,
	}
}

func (r *residentRepository) Get(ctx context.Context, residentId string) (entity.Resident, error) {
	return r.findOne(ctx, bson.M{"_id": residentId})
}

// GetByUserId resolves the resident record behind an authenticated account
func (r *residentRepository) GetByUserId(ctx context.Context, userId string) (entity.Resident, error) {
	return r.findOne(ctx, bson.M{"userId": userId})
}

func (r *residentRepository) IndexByIds(ctx context.Context, residentIds []string) ([]entity.Resident, error) {
	collection := r.db.Collection(residentsCollection)
	filter := bson.M{"_id": bson.M{"$in": residentIds}}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var residents []entity.Resident
	if err := cursor.All(ctx, &residents); err != nil {
		return nil, err
	}

	return residents, nil
}

func (r *residentRepository) Create(ctx context.Context, resident entity.Resident) (entity.Resident, error) {
	collection := r.db.Collection(residentsCollection)
	if resident.Id == "" {
		resident.Id = uuid.New().String()
	}
	if resident.CreatedAt.IsZero() {
		resident.CreatedAt = time.Now()
	}

	_, err := collection.InsertOne(ctx, resident)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.Resident{}, ErrDuplicate
		}
		return entity.Resident{}, err
	}

	return resident, nil
}

func (r *residentRepository) findOne(ctx context.Context, filter bson.M) (entity.Resident, error) {
	collection := r.db.Collection(residentsCollection)

	var resident entity.Resident
	err := collection.FindOne(ctx, filter).Decode(&resident)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Resident{}, ErrResidentNotFound
		}
		return entity.Resident{}, err
	}

	return resident, nil
}
