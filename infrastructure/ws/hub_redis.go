package ws

import (
	"context"
	"encoding/json"

	"propchat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannelPrefix = "notify:"

// RedisHub keeps local sessions in an embedded Hub and relays frames for
// parties connected to other instances through Redis pub/sub.
type RedisHub struct {
	*Hub

	redisClient redis.UniversalClient
	serverID    string
}

type RedisMessage struct {
	FromServerID string `json:"fromServerId"`
	ToPartyID    string `json:"toPartyId"`
	Payload      []byte `json:"payload"`
}

func NewRedisHub(client redis.UniversalClient, serverID string, log *logger.Logger) IHub {
	hub := newHub(log)
	hub.log = hub.log.With(zap.String("server_id", serverID))

	return &RedisHub{
		Hub:         hub,
		redisClient: client,
		serverID:    serverID,
	}
}

func (h *RedisHub) Run(ctx context.Context) {
	pubsub := h.redisClient.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	go h.subscribeRedis(ctx, pubsub)

	h.Hub.Run(ctx)
}

func (h *RedisHub) subscribeRedis(ctx context.Context, pubsub *redis.PubSub) {
	ch := pubsub.Channel()
	h.log.Info("redis subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var redisMsg RedisMessage
			if err := json.Unmarshal([]byte(msg.Payload), &redisMsg); err != nil {
				h.log.Warn("invalid redis message", zap.Error(err))
				continue
			}

			// frames we published were already delivered locally
			if redisMsg.FromServerID == h.serverID {
				continue
			}

			h.deliverLocal(redisMsg.ToPartyID, redisMsg.Payload)
		}
	}
}

// SendToClient delivers to local sessions and publishes for other instances,
// since a party may hold sessions on several of them.
func (h *RedisHub) SendToClient(partyId string, message []byte) {
	h.deliverLocal(partyId, message)
	h.publishToRedis(partyId, message)
}

func (h *RedisHub) publishToRedis(partyId string, message []byte) {
	redisMsg := RedisMessage{
		FromServerID: h.serverID,
		ToPartyID:    partyId,
		Payload:      message,
	}

	msgBytes, err := json.Marshal(redisMsg)
	if err != nil {
		h.log.Warn("marshal redis message", zap.Error(err))
		return
	}

	if err := h.redisClient.Publish(context.Background(), redisChannelPrefix+partyId, msgBytes).Err(); err != nil {
		h.log.Warn("publish to redis failed", zap.String("party_id", partyId), zap.Error(err))
	}
}
