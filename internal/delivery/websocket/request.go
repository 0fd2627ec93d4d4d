package websocket

const (
	EventMessageSend      = "message.send"
	EventConversationRead = "conversation.read"
)

// IncomingEvent is a frame sent by the client. RequestId is echoed back on the reply.
type IncomingEvent struct {
	Type           string `json:"type"`
	RequestId      string `json:"requestId,omitempty"`
	ConversationId string `json:"conversationId"`
	Message        string `json:"message,omitempty"`
}
