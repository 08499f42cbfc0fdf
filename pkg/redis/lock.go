package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyedLockTTL   = 15 * time.Second
	defaultKeyedLockWait  = 5 * time.Second
	defaultKeyedLockRetry = 50 * time.Millisecond
)

// ErrLockNotAcquired is returned when the lock stays taken for the whole wait window.
var ErrLockNotAcquired = errors.New("lock not acquired")

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(scope, id string) string
}

// KeyedLock is a SETNX lock per resource id within one scope, e.g. one key
// per subscription. The TTL bounds how long a crashed holder can block others.
type KeyedLock struct {
	store lockStore
	scope string
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

// NewKeyedLock constructs a lock for the given scope.
func NewKeyedLock(store lockStore, scope string, ttl time.Duration) (*KeyedLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if scope == "" {
		return nil, errors.New("lock scope is required")
	}
	if ttl <= 0 {
		ttl = defaultKeyedLockTTL
	}
	return &KeyedLock{
		store: store,
		scope: scope,
		ttl:   ttl,
		wait:  defaultKeyedLockWait,
		retry: defaultKeyedLockRetry,
	}, nil
}

// WithWait overrides how long Acquire polls before giving up.
func (l *KeyedLock) WithWait(wait, retry time.Duration) *KeyedLock {
	if wait > 0 {
		l.wait = wait
	}
	if retry > 0 {
		l.retry = retry
	}
	return l
}

// Acquire polls until the key for id is owned, the wait window closes or ctx
// ends. The returned release func is safe to call once the TTL has lapsed.
func (l *KeyedLock) Acquire(ctx context.Context, id string) (func(context.Context) error, error) {
	key := l.store.LockKey(l.scope, id)
	owner := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return func(releaseCtx context.Context) error {
				return l.release(releaseCtx, key, owner)
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockNotAcquired
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// WithLock runs fn while holding the lock for id.
func (l *KeyedLock) WithLock(ctx context.Context, id string, fn func() error) error {
	release, err := l.Acquire(ctx, id)
	if err != nil {
		return err
	}
	defer func() {
		_ = release(context.WithoutCancel(ctx))
	}()
	return fn()
}

// release frees the key only if the owner value still matches.
func (l *KeyedLock) release(ctx context.Context, key, owner string) error {
	value, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("read lock owner: %w", err)
	}
	if value != owner {
		return nil
	}
	if err := l.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete lock: %w", err)
	}
	return nil
}
