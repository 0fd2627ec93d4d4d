package entity

import "time"

type Block struct {
	Id        string    `bson:"_id" json:"id"`
	BlockerId string    `bson:"blockerId" json:"blockerId"`
	BlockedId string    `bson:"blockedId" json:"blockedId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
