package entity

import "time"

type NotificationKind string

const (
	NotifyInvitationReceived    NotificationKind = "invitation.received"
	NotifyInvitationAccepted    NotificationKind = "invitation.accepted"
	NotifyInvitationDeclined    NotificationKind = "invitation.declined"
	NotifyConversationActivated NotificationKind = "conversation.activated"
	NotifyMessageNew            NotificationKind = "message.new"
)

// Notification is the envelope pushed to a party's devices.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	PartyId   string           `json:"partyId"`
	Payload   any              `json:"payload,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}
