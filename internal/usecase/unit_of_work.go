package usecase

import (
	"context"
	"errors"

	"propchat/infrastructure/lock"
	"propchat/internal/repository"
	"propchat/pkg/metrics"
)

const maxConflictAttempts = 3

// Transactor runs fn atomically. db.MongoStore implements it.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UnitOfWork is the coordination boundary for one pair of parties.
type UnitOfWork interface {
	// Do holds the lock for key and runs fn in a transaction. fn is re-run
	// from scratch when a unique index rejects one of its inserts, so it must
	// re-read everything it decides on.
	Do(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

type unitOfWork struct {
	locker lock.Locker
	tx     Transactor
}

// NewUnitOfWork builds a unit of work; a nil tx runs fn without a transaction.
func NewUnitOfWork(locker lock.Locker, tx Transactor) UnitOfWork {
	return &unitOfWork{
		locker: locker,
		tx:     tx,
	}
}

func (u *unitOfWork) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		err = u.once(ctx, key, fn)
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		metrics.ConflictRetries.Inc()
	}
	return ErrConcurrentUpdate
}

func (u *unitOfWork) once(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	unlock, err := u.locker.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	if u.tx == nil {
		return fn(ctx)
	}
	return u.tx.WithTransaction(ctx, fn)
}
