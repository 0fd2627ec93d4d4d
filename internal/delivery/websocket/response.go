package websocket

const (
	EventMessageSent      = "message.sent"
	EventConversationSeen = "conversation.read.ok"
	EventError            = "error"
)

type OutgoingEvent struct {
	Type      string     `json:"type"`
	RequestId string     `json:"requestId,omitempty"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
