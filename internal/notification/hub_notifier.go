package notification

import (
	"context"
	"fmt"
	"time"

	"propchat/infrastructure/ws"
	"propchat/internal/entity"
)

// HubNotifier pushes events to the party's open websocket sessions.
type HubNotifier struct {
	hub ws.IHub
	now func() time.Time
}

func NewHubNotifier(hub ws.IHub) *HubNotifier {
	return &HubNotifier{hub: hub, now: time.Now}
}

func (n *HubNotifier) Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error {
	data, err := encode(partyId, kind, payload, n.now())
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	n.hub.SendToClient(partyId, data)
	return nil
}
