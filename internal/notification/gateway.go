// Package notification delivers best-effort relationship events to parties.
package notification

import (
	"context"
	"encoding/json"
	"time"

	"propchat/internal/entity"
)

// Gateway pushes an event to a party. Callers treat failures as non-fatal.
type Gateway interface {
	Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error
}

type nopGateway struct{}

// Nop discards every notification.
func Nop() Gateway { return nopGateway{} }

func (nopGateway) Notify(context.Context, string, entity.NotificationKind, any) error { return nil }

func encode(partyId string, kind entity.NotificationKind, payload any, now time.Time) ([]byte, error) {
	return json.Marshal(entity.Notification{
		Kind:      kind,
		PartyId:   partyId,
		Payload:   payload,
		CreatedAt: now,
	})
}
