package entity

import "time"

// Resident is the chat-capable party behind an authenticated account.
type Resident struct {
	Id        string    `bson:"_id" json:"id"`
	UserId    string    `bson:"userId" json:"userId"`
	Name      string    `bson:"name" json:"name"`
	UnitLabel string    `bson:"unitLabel,omitempty" json:"unitLabel,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
