package notification

import (
	"context"
	"errors"

	"propchat/internal/entity"
)

type multi []Gateway

// Multi delivers to every gateway and joins their errors.
func Multi(gateways ...Gateway) Gateway {
	return multi(gateways)
}

func (m multi) Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error {
	var errs []error
	for _, g := range m {
		if err := g.Notify(ctx, partyId, kind, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
