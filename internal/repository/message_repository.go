package repository

import (
	"context"

	"propchat/internal/entity"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

type MessageRepository interface {
	Index(ctx context.Context, filter entity.MessageIndexFilter) ([]entity.Message, error)
	Get(ctx context.Context, messageId string) (entity.Message, error)
	Create(ctx context.Context, message entity.Message) (string, error)
	CountSince(ctx context.Context, conversationId, excludeSenderId string, since int64) (int64, error)
}

type messageRepository struct {
	db mongo.Database
}

func NewMessageRepository(db mongo.Database) MessageRepository {
	return &messageRepository{
		db: db,
	}
}

// Index returns messages of a conversation, newest first
func (r *messageRepository) Index(ctx context.Context, filter entity.MessageIndexFilter) ([]entity.Message, error) {
	collection := r.db.Collection(messagesCollection)

	bsonFilter := bson.M{}
	if filter.ConversationId != "" {
		bsonFilter["conversationId"] = filter.ConversationId
	}

	opts := options.Find()
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	opts.SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := collection.Find(ctx, bsonFilter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var messages []entity.Message
	err = cursor.All(ctx, &messages)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *messageRepository) Get(ctx context.Context, messageId string) (entity.Message, error) {
	collection := r.db.Collection(messagesCollection)
	filter := bson.M{"_id": messageId}

	var message entity.Message
	err := collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Message{}, ErrMessageNotFound
		}
		return entity.Message{}, err
	}

	return message, nil
}

func (r *messageRepository) Create(ctx context.Context, message entity.Message) (string, error) {
	collection := r.db.Collection(messagesCollection)
	message.Id = uuid.New().String()

	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return "", err
	}

	return message.Id, nil
}

// CountSince counts messages in a conversation newer than since (unix millis)
// that were not written by excludeSenderId
func (r *messageRepository) CountSince(ctx context.Context, conversationId, excludeSenderId string, since int64) (int64, error) {
	collection := r.db.Collection(messagesCollection)
	filter := bson.M{
		"conversationId": conversationId,
		"senderId":       bson.M{"$ne": excludeSenderId},
		"timestamp":      bson.M{"$gt": since},
	}

	return collection.CountDocuments(ctx, filter)
}
