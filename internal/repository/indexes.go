package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func uniqueIndex(keys ...string) mongo.IndexModel {
	doc := bson.D{}
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key, Value: 1})
	}
	return mongo.IndexModel{Keys: doc, Options: options.Index().SetUnique(true)}
}

func plainIndex(keys ...string) mongo.IndexModel {
	doc := bson.D{}
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key, Value: 1})
	}
	return mongo.IndexModel{Keys: doc}
}

// EnsureIndexes creates the unique indexes the relationship invariants rely on.
// Losing concurrent inserts surface as ErrDuplicate because of them.
func EnsureIndexes(ctx context.Context, db mongo.Database) error {
	all := []collectionIndexes{
		{conversationsCollection, []mongo.IndexModel{uniqueIndex("partyLow", "partyHigh")}},
		{participantsCollection, []mongo.IndexModel{
			uniqueIndex("conversationId", "partyId"),
			plainIndex("partyId", "isHidden"),
		}},
		{invitationsCollection, []mongo.IndexModel{
			uniqueIndex("conversationId", "inviterId", "inviteeId"),
			plainIndex("inviteeId", "status"),
		}},
		{friendshipsCollection, []mongo.IndexModel{uniqueIndex("partyLow", "partyHigh")}},
		{blocksCollection, []mongo.IndexModel{uniqueIndex("blockerId", "blockedId")}},
		{residentsCollection, []mongo.IndexModel{uniqueIndex("userId")}},
		{messagesCollection, []mongo.IndexModel{plainIndex("conversationId", "timestamp")}},
	}

	for _, c := range all {
		if _, err := db.Collection(c.collection).Indexes().CreateMany(ctx, c.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", c.collection, err)
		}
	}

	return nil
}
