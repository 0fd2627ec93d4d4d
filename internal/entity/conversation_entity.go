package entity

import "time"

type ConversationStatus string

const (
	ConversationPending ConversationStatus = "PENDING"
	ConversationActive  ConversationStatus = "ACTIVE"
	ConversationClosed  ConversationStatus = "CLOSED"
	ConversationBlocked ConversationStatus = "BLOCKED"
)

// Conversation is the single direct conversation between two parties.
// PartyLow < PartyHigh always holds.
type Conversation struct {
	Id            string             `bson:"_id" json:"id"`
	PartyLow      string             `bson:"partyLow" json:"partyLow"`
	PartyHigh     string             `bson:"partyHigh" json:"partyHigh"`
	Status        ConversationStatus `bson:"status" json:"status"`
	CreatedBy     string             `bson:"createdBy" json:"createdBy"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
	LastMessageAt *time.Time         `bson:"lastMessageAt,omitempty" json:"lastMessageAt,omitempty"`
}

func (c Conversation) HasParty(partyId string) bool {
	return c.PartyLow == partyId || c.PartyHigh == partyId
}

// Other returns the counterpart of partyId in the conversation.
func (c Conversation) Other(partyId string) string {
	if c.PartyLow == partyId {
		return c.PartyHigh
	}
	return c.PartyLow
}

type Participant struct {
	Id             string     `bson:"_id" json:"id"`
	ConversationId string     `bson:"conversationId" json:"conversationId"`
	PartyId        string     `bson:"partyId" json:"partyId"`
	LastReadAt     *time.Time `bson:"lastReadAt,omitempty" json:"lastReadAt,omitempty"`
	IsHidden       bool       `bson:"isHidden" json:"isHidden"`
	HiddenAt       *time.Time `bson:"hiddenAt,omitempty" json:"hiddenAt,omitempty"`
	JoinedAt       time.Time  `bson:"joinedAt" json:"joinedAt"`
}

// CanonicalPair orders two party ids so that low < high.
func CanonicalPair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PairKey is the coordination key shared by every operation on the unordered pair.
func PairKey(a, b string) string {
	low, high := CanonicalPair(a, b)
	return "pair:" + low + ":" + high
}
