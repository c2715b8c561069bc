package stock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/stockledger/pkg/errors"
	"github.com/angelmondragon/stockledger/pkg/logger"
)

const (
	lockScope      = "stock"
	defaultLockTTL = 10 * time.Second
)

// Locker serializes writers of a single stock across processes.
type Locker interface {
	Lock(ctx context.Context, stockID uuid.UUID) (unlock func(), err error)
}

type lockStore interface {
	LockKey(scope, id string) string
	AcquireLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) error
}

// RedisLocker holds a SETNX key per stock for the duration of one mutation.
type RedisLocker struct {
	store lockStore
	ttl   time.Duration
	logg  *logger.Logger
}

func NewRedisLocker(store lockStore, ttl time.Duration, logg *logger.Logger) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis store required for stock lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl, logg: logg}, nil
}

// Lock fails with CodeConflict when another writer holds the stock.
func (l *RedisLocker) Lock(ctx context.Context, stockID uuid.UUID) (func(), error) {
	key := l.store.LockKey(lockScope, stockID.String())
	owner := uuid.NewString()
	ok, err := l.store.AcquireLock(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire stock lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock is locked by another operation")
	}
	return func() {
		if err := l.store.ReleaseLock(context.WithoutCancel(ctx), key, owner); err != nil && l.logg != nil {
			l.logg.Error(l.logg.WithStockID(ctx, stockID.String()), "release stock lock", err)
		}
	}, nil
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, uuid.UUID) (func(), error) {
	return func() {}, nil
}
