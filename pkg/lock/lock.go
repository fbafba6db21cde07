// Package lock provides distributed locks on redis, to keep a worker single
// among replicas.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	xe "github.com/fairtrace/fairtrace/pkg/errors"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// Locker runs functions exclusively among processes sharing the same redis.
type Locker interface {
	// Run calls fn while holding the lock of key.
	//
	// When the lock is held by another, fn is not called and ran is false.
	Run(ctx context.Context, key string, fn func(context.Context) error) (ran bool, err error)
}

type redisLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

type Option func(*redisLocker) *redisLocker

// WithExpiry sets how long the lock lives when the holder dies. Default is 30 seconds.
func WithExpiry(d time.Duration) Option {
	return func(l *redisLocker) *redisLocker {
		l.expiry = d
		return l
	}
}

func New(client redis.UniversalClient, options ...Option) Locker {
	l := &redisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		expiry: 30 * time.Second,
	}
	for _, o := range options {
		l = o(l)
	}
	return l
}

func contended(err error) bool {
	taken := new(redsync.ErrTaken)
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		strings.Contains(err.Error(), "lock already taken")
}

func (l *redisLocker) Run(ctx context.Context, key string, fn func(context.Context) error) (bool, error) {
	mutex := l.rs.NewMutex(key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := mutex.LockContext(ctx); err != nil {
		if contended(err) {
			return false, nil
		}
		return false, xe.WrapWithNote("lock "+key, err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.expiry)
	defer cancel()

	ferr := fn(ctx)

	// the lock may expire while fn runs. It is not an error of fn.
	if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil && !ok {
		if !errors.Is(err, redsync.ErrLockAlreadyExpired) && ferr == nil {
			return true, xe.WrapWithNote("unlock "+key, err)
		}
	}
	return true, ferr
}

// Nop is a Locker which always runs fn. For single process deployments.
type Nop struct{}

func (Nop) Run(ctx context.Context, _ string, fn func(context.Context) error) (bool, error) {
	return true, fn(ctx)
}
