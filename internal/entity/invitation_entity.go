package entity

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
	InvitationExpired  InvitationStatus = "EXPIRED"
)

// Invitation is directed: the reverse pair is a separate row.
type Invitation struct {
	Id             string           `bson:"_id" json:"id"`
	ConversationId string           `bson:"conversationId" json:"conversationId"`
	InviterId      string           `bson:"inviterId" json:"inviterId"`
	InviteeId      string           `bson:"inviteeId" json:"inviteeId"`
	Status         InvitationStatus `bson:"status" json:"status"`
	InitialMessage string           `bson:"initialMessage,omitempty" json:"initialMessage,omitempty"`
	ExpiresAt      time.Time        `bson:"expiresAt" json:"expiresAt"`
	RespondedAt    *time.Time       `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	CreatedAt      time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time        `bson:"updatedAt" json:"updatedAt"`
}

func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// IsLivePending reports a PENDING invitation whose deadline has not passed.
func (i Invitation) IsLivePending(now time.Time) bool {
	return i.Status == InvitationPending && !i.IsExpired(now)
}
