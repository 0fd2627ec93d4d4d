package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"propchat/infrastructure/lock"
	"propchat/infrastructure/ws"
	"propchat/internal/entity"
	"propchat/internal/notification"
	"propchat/internal/repository/memory"
	"propchat/internal/usecase"
	"propchat/pkg/jwt"
	"propchat/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	srv            *httptest.Server
	hub            ws.IHub
	tokens         *jwt.JWTManager
	parties        usecase.PartyResolver
	invitations    usecase.InvitationUsecase
	conversationId string
	alice, bob     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	log := logger.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := ws.NewHub(log)
	go hub.Run(ctx)
	notifier := notification.NewHubNotifier(hub)

	conversationRepo := memory.NewConversationRepository()
	messageRepo := memory.NewMessageRepository()
	uow := usecase.NewUnitOfWork(lock.NewMemoryLocker(), nil)

	parties := usecase.NewPartyResolver(memory.NewResidentRepository(), time.Minute)
	views := usecase.NewViewAssembler(parties, log)
	friendships := usecase.NewFriendshipUsecase(memory.NewFriendshipRepository(), views)
	blocks := usecase.NewBlockUsecase(memory.NewBlockRepository(), friendships, parties, views, uow, log)
	conversations := usecase.NewConversationUsecase(conversationRepo, messageRepo, views, uow, log)
	messages := usecase.NewMessageUseCase(messageRepo, conversationRepo, conversations, blocks, notifier, log)
	invitations := usecase.NewInvitationUsecase(
		conversationRepo, memory.NewInvitationRepository(), friendships, blocks, messages,
		parties, views, notifier, uow, usecase.DefaultInvitationTTL, log,
	)

	tokens := jwt.NewJWTManager("test-secret", time.Hour)
	handler := NewWebsocketHandler(hub, tokens, parties, messages, conversations, log)
	srv := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(srv.Close)

	h := &harness{srv: srv, hub: hub, tokens: tokens, parties: parties, invitations: invitations}

	alice, err := parties.Register(ctx, "account-alice", "Alice")
	require.NoError(t, err)
	bob, err := parties.Register(ctx, "account-bob", "Bob")
	require.NoError(t, err)
	h.alice, h.bob = alice.Id, bob.Id

	view, err := invitations.Create(ctx, h.alice, h.bob, "")
	require.NoError(t, err)
	_, err = invitations.Accept(ctx, view.Id, h.bob)
	require.NoError(t, err)
	h.conversationId = view.ConversationId

	return h
}

func (h *harness) token(t *testing.T, account string) string {
	t.Helper()
	token, err := h.tokens.GenerateAccessToken(entity.TokenClaims{UserId: account})
	require.NoError(t, err)
	return token
}

func (h *harness) dial(t *testing.T, account string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "?token=" + h.token(t, account)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent[T any](t *testing.T, conn *websocket.Conn) T {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var v T
	require.NoError(t, conn.ReadJSON(&v))
	return v
}

func TestSendMessageOverWebsocket(t *testing.T) {
	h := newHarness(t)
	aliceConn := h.dial(t, "account-alice")
	bobConn := h.dial(t, "account-bob")
	require.Eventually(t, func() bool { return h.hub.GetClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, aliceConn.WriteJSON(IncomingEvent{
		Type:           EventMessageSend,
		RequestId:      "r-1",
		ConversationId: h.conversationId,
		Message:        "hi bob",
	}))

	ack := readEvent[OutgoingEvent](t, aliceConn)
	assert.Equal(t, EventMessageSent, ack.Type)
	assert.Equal(t, "r-1", ack.RequestId)
	assert.Nil(t, ack.Error)

	pushed := readEvent[entity.Notification](t, bobConn)
	assert.Equal(t, entity.NotifyMessageNew, pushed.Kind)
	assert.Equal(t, h.bob, pushed.PartyId)

	require.NoError(t, bobConn.WriteJSON(IncomingEvent{Type: EventConversationRead, RequestId: "r-2", ConversationId: h.conversationId}))
	seen := readEvent[OutgoingEvent](t, bobConn)
	assert.Equal(t, EventConversationSeen, seen.Type)
	assert.Equal(t, "r-2", seen.RequestId)
}

func TestWebsocketErrors(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "account-alice")

	require.NoError(t, conn.WriteJSON(IncomingEvent{Type: "presence.ping", RequestId: "r-1"}))
	reply := readEvent[OutgoingEvent](t, conn)
	assert.Equal(t, EventError, reply.Type)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "INVALID_ARGUMENT", reply.Error.Code)

	require.NoError(t, conn.WriteJSON(IncomingEvent{Type: EventMessageSend, RequestId: "r-2", ConversationId: "missing", Message: "hi"}))
	reply = readEvent[OutgoingEvent](t, conn)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "NOT_FOUND", reply.Error.Code)
	assert.Equal(t, "r-2", reply.RequestId)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	reply = readEvent[OutgoingEvent](t, conn)
	assert.Equal(t, EventError, reply.Type)
}

func TestUpgradeRequiresResident(t *testing.T) {
	h := newHarness(t)
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token="+h.token(t, "account-stranger"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
