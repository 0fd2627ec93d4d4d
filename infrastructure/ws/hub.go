package ws

import (
	"context"
	"sync"

	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"go.uber.org/zap"
)

// clientSet holds every session of one party on this instance.
type clientSet map[*UserClient]struct{}

type Hub struct {
	clients            map[string]clientSet
	broadcast          chan []byte
	Register           chan *UserClient
	Unregister         chan *UserClient
	mu                 sync.RWMutex
	OnClientUnregister func(client *UserClient) error
	log                *logger.Logger
}

func NewHub(log *logger.Logger) IHub {
	return newHub(log)
}

func newHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Global()
	}
	return &Hub{
		clients:    make(map[string]clientSet),
		broadcast:  make(chan []byte, 256),
		Register:   make(chan *UserClient),
		Unregister: make(chan *UserClient),
		log:        log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.Register:
			h.add(client)
			h.log.Debug("client connected", zap.String("party_id", client.PartyId))

		case client := <-h.Unregister:
			if h.remove(client) {
				h.log.Debug("client disconnected", zap.String("party_id", client.PartyId))
			}

			if h.OnClientUnregister != nil {
				if err := h.OnClientUnregister(client); err != nil {
					h.log.Warn("unregister callback failed", zap.Error(err))
				}
			}

		case message := <-h.broadcast:
			h.deliverAll(message)
		}
	}
}

func (h *Hub) add(client *UserClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.PartyId]
	if !ok {
		set = make(clientSet)
		h.clients[client.PartyId] = set
	}
	set[client] = struct{}{}
	metrics.WebsocketConnectionsActive.Inc()
}

func (h *Hub) remove(client *UserClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.PartyId]
	if !ok {
		return false
	}
	if _, ok := set[client]; !ok {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.PartyId)
	}
	close(client.send)
	metrics.WebsocketConnectionsActive.Dec()
	return true
}

func (h *Hub) deliverAll(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for partyId, set := range h.clients {
		for client := range set {
			if !client.Send(message) {
				h.log.Warn("dropping frame for slow client", zap.String("party_id", partyId))
			}
		}
	}
}

// deliverLocal reports whether the party has a session on this instance.
func (h *Hub) deliverLocal(partyId string, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set, exists := h.clients[partyId]
	if !exists {
		return false
	}
	for client := range set {
		if !client.Send(message) {
			h.log.Warn("failed to send to client", zap.String("party_id", partyId))
		}
	}
	return true
}

func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

func (h *Hub) SendToClient(partyId string, message []byte) {
	h.deliverLocal(partyId, message)
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

func (h *Hub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *Hub) UnregisterClient(client *UserClient) {
	h.Unregister <- client
}

func (h *Hub) SetOnClientUnregister(callback func(client *UserClient) error) {
	h.OnClientUnregister = callback
}
