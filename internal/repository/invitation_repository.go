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

const invitationsCollection = "direct_invitations"

type InvitationRepository interface {
	Get(ctx context.Context, invitationId string) (entity.Invitation, error)
	GetDirected(ctx context.Context, conversationId, inviterId, inviteeId string) (entity.Invitation, error)
	Create(ctx context.Context, invitation entity.Invitation) (entity.Invitation, error)
	Update(ctx context.Context, invitation entity.Invitation) error
	GetPendingForInvitee(ctx context.Context, inviteeId string) ([]entity.Invitation, error)
}

type invitationRepository struct {
	db mongo.Database
}

func NewInvitationRepository(db mongo.Database) InvitationRepository {
	return &invitationRepository{
		db: db,
	}
}

// Get returns an invitation by ID
func (r *invitationRepository) Get(ctx context.Context, invitationId string) (entity.Invitation, error) {
	collection := r.db.Collection(invitationsCollection)
	filter := bson.M{"_id": invitationId}

	var invitation entity.Invitation
	err := collection.FindOne(ctx, filter).Decode(&invitation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Invitation{}, ErrInvitationNotFound
		}
		return entity.Invitation{}, err
	}

	return invitation, nil
}

// GetDirected returns the invitation row for inviter -> invitee in a conversation
func (r *invitationRepository) GetDirected(ctx context.Context, conversationId, inviterId, inviteeId string) (entity.Invitation, error) {
	collection := r.db.Collection(invitationsCollection)
	filter := bson.M{
		"conversationId": conversationId,
		"inviterId":      inviterId,
		"inviteeId":      inviteeId,
	}

	var invitation entity.Invitation
	err := collection.FindOne(ctx, filter).Decode(&invitation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return entity.Invitation{}, ErrInvitationNotFound
		}
		return entity.Invitation{}, err
	}

	return invitation, nil
}

// Create inserts a directed invitation; a second row for the same direction is
// rejected by the unique index and reported as ErrDuplicate
func (r *invitationRepository) Create(ctx context.Context, invitation entity.Invitation) (entity.Invitation, error) {
	collection := r.db.Collection(invitationsCollection)
	if invitation.Id == "" {
		invitation.Id = uuid.New().String()
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}
	invitation.UpdatedAt = invitation.CreatedAt

	_, err := collection.InsertOne(ctx, invitation)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return entity.Invitation{}, ErrDuplicate
		}
		return entity.Invitation{}, err
	}

	return invitation, nil
}

// Update writes the mutable fields of an invitation in place
func (r *invitationRepository) Update(ctx context.Context, invitation entity.Invitation) error {
	collection := r.db.Collection(invitationsCollection)
	filter := bson.M{"_id": invitation.Id}

	set := bson.M{
		"status":         invitation.Status,
		"initialMessage": invitation.InitialMessage,
		"expiresAt":      invitation.ExpiresAt,
		"updatedAt":      time.Now(),
	}
	update := bson.M{"$set": set}
	if invitation.RespondedAt != nil {
		set["respondedAt"] = *invitation.RespondedAt
	} else {
		update["$unset"] = bson.M{"respondedAt": ""}
	}

	res, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInvitationNotFound
	}

	return nil
}

// GetPendingForInvitee returns PENDING invitations addressed to a party, oldest first.
// Expiry is not evaluated here.
func (r *invitationRepository) GetPendingForInvitee(ctx context.Context, inviteeId string) ([]entity.Invitation, error) {
	collection := r.db.Collection(invitationsCollection)
	filter := bson.M{
		"inviteeId": inviteeId,
		"status":    entity.InvitationPending,
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var invitations []entity.Invitation
	if err := cursor.All(ctx, &invitations); err != nil {
		return nil, err
	}

	return invitations, nil
}
