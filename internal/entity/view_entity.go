package entity

import "time"

type InvitationView struct {
	Id             string           `json:"id"`
	ConversationId string           `json:"conversationId"`
	InviterId      string           `json:"inviterId"`
	InviterName    string           `json:"inviterName"`
	InviteeId      string           `json:"inviteeId"`
	InviteeName    string           `json:"inviteeName"`
	Status         InvitationStatus `json:"status"`
	InitialMessage string           `json:"initialMessage,omitempty"`
	ExpiresAt      time.Time        `json:"expiresAt"`
	RespondedAt    *time.Time       `json:"respondedAt,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

type ConversationView struct {
	Id            string             `json:"id"`
	Status        ConversationStatus `json:"status"`
	OtherPartyId  string             `json:"otherPartyId"`
	OtherName     string             `json:"otherName"`
	LastReadAt    *time.Time         `json:"lastReadAt,omitempty"`
	LastMessageAt *time.Time         `json:"lastMessageAt,omitempty"`
	UnreadCount   int64              `json:"unreadCount"`
}

type PartyView struct {
	Id   string `json:"id"`
	Name string `json:"name"`
}
