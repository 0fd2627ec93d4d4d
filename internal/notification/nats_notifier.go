package notification

import (
	"context"
	"fmt"
	"time"

	"propchat/internal/entity"
)

// Publisher is satisfied by broker.Client.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSNotifier publishes events on <prefix>.<partyId> for other services
// (push gateways, mail digests) to consume.
type NATSNotifier struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

func NewNATSNotifier(pub Publisher, prefix string) *NATSNotifier {
	if prefix == "" {
		prefix = "chat.notify"
	}
	return &NATSNotifier{pub: pub, prefix: prefix, now: time.Now}
}

func (n *NATSNotifier) Subject(partyId string) string {
	return n.prefix + "." + partyId
}

func (n *NATSNotifier) Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encode(partyId, kind, payload, n.now())
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}
	if err := n.pub.Publish(n.Subject(partyId), data); err != nil {
		return fmt.Errorf("publish %s: %w", kind, err)
	}
	return nil
}
