package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"propchat/infrastructure/ws"
	"propchat/internal/entity"
	"propchat/internal/usecase"
	appErrors "propchat/pkg/errors"
	"propchat/pkg/jwt"
	"propchat/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errUnknownEvent = appErrors.InvalidArg("unknown event type")

type TokenValidator interface {
	ValidateAccessToken(token string) (*entity.TokenClaims, error)
}

type WebsocketHandler struct {
	hub            ws.IHub
	tokens         TokenValidator
	parties        usecase.PartyResolver
	messageUc      usecase.MessageUsecase
	conversationUc usecase.ConversationUsecase
	log            *logger.Logger
}

func NewWebsocketHandler(
	hub ws.IHub,
	tokens TokenValidator,
	parties usecase.PartyResolver,
	messageUc usecase.MessageUsecase,
	conversationUc usecase.ConversationUsecase,
	log *logger.Logger,
) *WebsocketHandler {
	if log == nil {
		log = logger.Global()
	}
	return &WebsocketHandler{
		hub:            hub,
		tokens:         tokens,
		parties:        parties,
		messageUc:      messageUc,
		conversationUc: conversationUc,
		log:            log,
	}
}

// HandleWebSocket authenticates the caller, then upgrades and serves the
// session until the client disconnects.
func (h *WebsocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := jwt.FromRequest(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	partyId, err := h.parties.Resolve(ctx, claims.UserId)
	if err != nil {
		if errors.Is(err, usecase.ErrPartyNotFound) {
			http.Error(w, "account has no resident profile", http.StatusForbidden)
			return
		}
		h.log.Error("resolve party failed", zap.String("user_id", claims.UserId), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := ws.NewClient(partyId, h.hub, conn, h.log)
	h.hub.RegisterClient(client)

	go client.WritePump()
	client.ReadPump(func(data []byte) {
		h.handleEvent(ctx, client, data)
	})
}

func (h *WebsocketHandler) handleEvent(ctx context.Context, client *ws.UserClient, data []byte) {
	var event IncomingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		h.reply(client, OutgoingEvent{Type: EventError, Error: errorBody(appErrors.InvalidArg("malformed frame"))})
		return
	}

	switch event.Type {
	case EventMessageSend:
		message, err := h.messageUc.Send(ctx, event.ConversationId, client.PartyId, event.Message)
		if err != nil {
			h.replyError(client, event, err)
			return
		}
		h.reply(client, OutgoingEvent{Type: EventMessageSent, RequestId: event.RequestId, Data: message})

	case EventConversationRead:
		if err := h.conversationUc.MarkRead(ctx, event.ConversationId, client.PartyId); err != nil {
			h.replyError(client, event, err)
			return
		}
		h.reply(client, OutgoingEvent{Type: EventConversationSeen, RequestId: event.RequestId})

	default:
		h.replyError(client, event, errUnknownEvent)
	}
}

func (h *WebsocketHandler) replyError(client *ws.UserClient, event IncomingEvent, err error) {
	if appErrors.CodeOf(err) == appErrors.CodeInternal {
		h.log.Error("websocket event failed",
			zap.String("party_id", client.PartyId),
			zap.String("type", event.Type),
			zap.Error(err),
		)
	}
	h.reply(client, OutgoingEvent{Type: EventError, RequestId: event.RequestId, Error: errorBody(err)})
}

func (h *WebsocketHandler) reply(client *ws.UserClient, event OutgoingEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("encode websocket reply", zap.Error(err))
		return
	}
	if !client.Send(data) {
		h.log.Warn("dropping reply for slow client", zap.String("party_id", client.PartyId))
	}
}

func errorBody(err error) *ErrorBody {
	code := appErrors.CodeOf(err)
	message := "internal server error"
	var appErr *appErrors.AppError
	if code != appErrors.CodeInternal && errors.As(err, &appErr) {
		message = appErr.Message
	}
	return &ErrorBody{Code: string(code), Message: message}
}
