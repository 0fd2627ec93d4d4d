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

const (
	conversationsCollection = "conversations"
	participantsCollection  = "conversation_participants"
)

type ConversationRepository interface {
	// Conversation operations
	Get(ctx context.Context, conversationId string) (entity.Conversation, error)
	GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Conversation, error)
	Create(ctx context.Context, conversation entity.Conversation) (entity.Conversation, error)
	UpdateStatus(ctx context.Context, conversationId string, status entity.ConversationStatus) error
	TouchLastMessage(ctx context.Context, conversationId string, at time.Time) error
	// Touch bumps updatedAt only
	Touch(ctx context.Context, conversationId string, at time.Time) error
	IndexByIds(ctx context.Context, conversationIds []string) ([]entity.Conversation, error)

	// Participant operations
	AddParticipants(ctx context.Context, participants []entity.Participant) error
	GetParticipant(ctx context.Context, conversationId, partyId string) (entity.Participant, error)
	GetParticipants(ctx context.Context, conversationId string) ([]entity.Participant, error)
	IndexParticipantsByParty(ctx context.Context, partyId string, includeHidden bool) ([]entity.Participant, error)
	HideParticipant(ctx context.Context, conversationId, partyId string, at time.Time) error
	UnhideParticipant(ctx context.Context, conversationId, partyId string) error
	MarkRead(ctx context.Context, conversationId, partyId string, at time.Time) error
}

type conversationRepository struct {
	db mongo.Database
}

func NewConversationRepository(db mongo.Database) ConversationRepository {
	return &conversationRepository{
		db: db,
	}
}

// Get returns a conversation by ID
func (r *conversationRepository) Get(ctx context.Context, conversationId string) (entity.Conversation, error) {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{"_id": conversationId}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Conversation{}, ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

// GetByPair returns the conversation for a canonical (low, high) pair
func (r *conversationRepository) GetByPair(ctx context.Context, partyLow, partyHigh string) (entity.Conversation, error) {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{
		"partyLow":  partyLow,
		"partyHigh": partyHigh,
	}

	var conversation entity.Conversation
	err := collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Conversation{}, ErrConversationNotFound
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

// Create inserts a conversation; the unique (partyLow, partyHigh) index reports a
// concurrent creator as ErrDuplicate
func (r *conversationRepository) Create(ctx context.Context, conversation entity.Conversation) (entity.Conversation, error) {
	collection := r.db.Collection(conversationsCollection)
	if conversation.Id == "" {
		conversation.Id = uuid.New().String()
	}
	now := time.Now()
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = now
	}
	conversation.UpdatedAt = conversation.CreatedAt

	_, err := collection.InsertOne(ctx, conversation)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.Conversation{}, ErrDuplicate
		}
		return entity.Conversation{}, err
	}

	return conversation, nil
}

// UpdateStatus sets the conversation status
func (r *conversationRepository) UpdateStatus(ctx context.Context, conversationId string, status entity.ConversationStatus) error {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{"_id": conversationId}
	update := bson.M{
		"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now(),
		},
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}

	return nil
}

func (r *conversationRepository) TouchLastMessage(ctx context.Context, conversationId string, at time.Time) error {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{"_id": conversationId}
	update := bson.M{
		"$set": bson.M{
			"lastMessageAt": at,
			"updatedAt":     at,
		},
	}

	_, err := collection.UpdateOne(ctx, filter, update)
	return err
}

func (r *conversationRepository) Touch(ctx context.Context, conversationId string, at time.Time) error {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{"_id": conversationId}
	update := bson.M{"$set": bson.M{"updatedAt": at}}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// IndexByIds returns conversations by ID, most recently updated first
func (r *conversationRepository) IndexByIds(ctx context.Context, conversationIds []string) ([]entity.Conversation, error) {
	collection := r.db.Collection(conversationsCollection)
	filter := bson.M{"_id": bson.M{"$in": conversationIds}}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var conversations []entity.Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, err
	}

	return conversations, nil
}

// AddParticipants adds participant rows to a conversation
func (r *conversationRepository) AddParticipants(ctx context.Context, participants []entity.Participant) error {
	collection := r.db.Collection(participantsCollection)

	var docs []interface{}
	for _, participant := range participants {
		if participant.Id == "" {
			participant.Id = uuid.New().String()
		}
		if participant.JoinedAt.IsZero() {
			participant.JoinedAt = time.Now()
		}
		docs = append(docs, participant)
	}

	_, err := collection.InsertMany(ctx, docs)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}

	return nil
}

// GetParticipant returns the row of one party in a conversation
func (r *conversationRepository) GetParticipant(ctx context.Context, conversationId, partyId string) (entity.Participant, error) {
	collection := r.db.Collection(participantsCollection)
	filter := bson.M{
		"conversationId": conversationId,
		"partyId":        partyId,
	}

	var participant entity.Participant
	err := collection.FindOne(ctx, filter).Decode(&participant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Participant{}, ErrNotParticipant
		}
		return entity.Participant{}, err
	}

	return participant, nil
}

// GetParticipants returns both participant rows of a conversation
func (r *conversationRepository) GetParticipants(ctx context.Context, conversationId string) ([]entity.Participant, error) {
	collection := r.db.Collection(participantsCollection)
	filter := bson.M{"conversationId": conversationId}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []entity.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}

	return participants, nil
}

// IndexParticipantsByParty returns every participant row owned by a party
func (r *conversationRepository) IndexParticipantsByParty(ctx context.Context, partyId string, includeHidden bool) ([]entity.Participant, error) {
	collection := r.db.Collection(participantsCollection)
	filter := bson.M{"partyId": partyId}
	if !includeHidden {
		filter["isHidden"] = false
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var participants []entity.Participant
	if err := cursor.All(ctx, &participants); err != nil {
		return nil, err
	}

	return participants, nil
}

// HideParticipant hides the conversation for a party and marks it read
func (r *conversationRepository) HideParticipant(ctx context.Context, conversationId, partyId string, at time.Time) error {
	return r.updateParticipant(ctx, conversationId, partyId, bson.M{
		"$set": bson.M{
			"isHidden":   true,
			"hiddenAt":   at,
			"lastReadAt": at,
		},
	})
}

// UnhideParticipant clears the hidden flag without touching the read position
func (r *conversationRepository) UnhideParticipant(ctx context.Context, conversationId, partyId string) error {
	return r.updateParticipant(ctx, conversationId, partyId, bson.M{
		"$set":   bson.M{"isHidden": false},
		"$unset": bson.M{"hiddenAt": ""},
	})
}

func (r *conversationRepository) MarkRead(ctx context.Context, conversationId, partyId string, at time.Time) error {
	return r.updateParticipant(ctx, conversationId, partyId, bson.M{
		"$set": bson.M{"lastReadAt": at},
	})
}

func (r *conversationRepository) updateParticipant(ctx context.Context, conversationId, partyId string, update bson.M) error {
	collection := r.db.Collection(participantsCollection)
	filter := bson.M{
		"conversationId": conversationId,
		"partyId":        partyId,
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotParticipant
	}

	return nil
}
