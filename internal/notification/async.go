package notification

import (
	"context"
	"sync"
	"time"

	"propchat/internal/entity"
	"propchat/pkg/logger"
	"propchat/pkg/metrics"

	"go.uber.org/zap"
)

// Async dispatches on a goroutine so the caller's committed operation never
// waits on, or fails because of, delivery.
type Async struct {
	next    Gateway
	timeout time.Duration
	log     *logger.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Gateway, timeout time.Duration, log *logger.Logger) *Async {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = logger.Global()
	}
	return &Async{next: next, timeout: timeout, log: log}
}

func (a *Async) Notify(ctx context.Context, partyId string, kind entity.NotificationKind, payload any) error {
	// detach from the request so a finished handler does not cancel delivery
	base := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		sendCtx, cancel := context.WithTimeout(base, a.timeout)
		defer cancel()

		err := a.next.Notify(sendCtx, partyId, kind, payload)
		metrics.RecordNotification(string(kind), err == nil)
		if err != nil {
			a.log.Warn("notification failed",
				zap.String("party_id", partyId),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
	}()

	return nil
}

// Wait blocks until in-flight deliveries finish.
func (a *Async) Wait() {
	a.wg.Wait()
}
