package entity

import "time"

type Friendship struct {
	Id        string    `bson:"_id" json:"id"`
	PartyLow  string    `bson:"partyLow" json:"partyLow"`
	PartyHigh string    `bson:"partyHigh" json:"partyHigh"`
	IsActive  bool      `bson:"isActive" json:"isActive"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (f Friendship) Other(partyId string) string {
	if f.PartyLow == partyId {
		return f.PartyHigh
	}
	return f.PartyLow
}
