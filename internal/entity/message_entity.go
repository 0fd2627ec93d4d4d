package entity

type MessageKind string

const (
	MessageText    MessageKind = "text"
	MessageInitial MessageKind = "initial"
)

type Message struct {
	Id             string      `bson:"_id" json:"id"`
	ConversationId string      `bson:"conversationId" json:"conversationId"`
	SenderId       string      `bson:"senderId" json:"senderId"`
	Message        string      `bson:"message" json:"message"`
	Kind           MessageKind `bson:"kind" json:"kind"`
	Timestamp      int64       `bson:"timestamp" json:"timestamp"`
}

type MessageIndexFilter struct {
	ConversationId string `bson:"conversationId"`
	Limit          int    `bson:"limit"`
	Offset         int    `bson:"offset"`
}
