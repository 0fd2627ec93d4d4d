package ws

import (
	"time"

	"propchat/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 256
)

// UserClient is one websocket session of a party.
type UserClient struct {
	PartyId string

	hub  IHub
	conn *websocket.Conn
	send chan []byte
	log  *logger.Logger
}

func NewClient(partyId string, hub IHub, conn *websocket.Conn, log *logger.Logger) *UserClient {
	if log == nil {
		log = logger.Global()
	}
	return &UserClient{
		PartyId: partyId,
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		log:     log.With(zap.String("party_id", partyId)),
	}
}

// ReadPump hands every inbound frame to handle until the connection drops,
// then unregisters the client.
func (c *UserClient) ReadPump(handle func(data []byte)) {
	defer func() {
		c.hub.UnregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		handle(data)
	}
}

// WritePump drains the send channel and keeps the connection alive with pings.
func (c *UserClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Debug("websocket write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send queues a frame for this session only.
func (c *UserClient) Send(message []byte) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}
