package retry

import (
	"context"
	"errors"
	"time"
)

var ErrRetry = errors.New("retry")

// ErrPermanent marks errors which will not be resolved by retrying.
var ErrPermanent = errors.New("permanent failure")

type permanent struct {
	err error
}

func (p *permanent) Error() string {
	return p.err.Error()
}

func (p *permanent) Unwrap() []error {
	return []error{p.err, ErrPermanent}
}

// Permanent marks err as a permanent failure.
//
// errors.Is(Permanent(err), ErrPermanent) is true, and err is kept unwrappable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

// IsPermanent tells err is marked with Permanent.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// Policy tells when a failed delivery should be tried again.
type Policy struct {
	// delay before the 2nd try. It is doubled for each try.
	Base time.Duration

	// upper bound of delay.
	Max time.Duration

	// number of tries before giving up. Non-positive means unlimited.
	Attempts int
}

// Delay before the next try, after `attempts` failures.
//
// It is `Base * 2^(attempts-1)`, capped at Max.
func (p Policy) Delay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := p.Base
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.Max <= d || d <= 0 {
			return p.Max
		}
	}
	if p.Max < d {
		return p.Max
	}
	return d
}

// Exhausted tells no more tries should be made after `attempts` failures.
func (p Policy) Exhausted(attempts int) bool {
	return 0 < p.Attempts && p.Attempts <= attempts
}

// Backoff is a (blocking) function returns when to retry.
//
// If context is canceled, Backoff should return ctx.Err().
type Backoff func(context.Context) error

// StaticBackoff returns a Backoff function that waits for a fixed interval.
var StaticBackoff = func(interval time.Duration) Backoff {
	return ExponentialBackoff(interval, 1)
}

// ExponentialBackoff returns a Backoff function that waits with exponential backoff.
//
// For N-th call, it waits for `initialInterval * r^N` or context to be done.
var ExponentialBackoff = func(initialInterval time.Duration, r float64) Backoff {
	interval := initialInterval
	return func(ctx context.Context) error {
		timer := time.NewTimer(interval)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			i := float64(interval) * r
			interval = time.Duration(int64(i))
			return nil
		}
	}
}

// Blocking calls f until it returns nil or non-retry error.
//
// If f returns ErrRetry, Blocking calls f again after backoff.
// The first call is made without waiting.
func Blocking[T any](ctx context.Context, b Backoff, f func() (T, error)) (T, error) {
	for {
		last, err := f()
		if err == nil {
			return last, nil
		}
		if !errors.Is(err, ErrRetry) {
			return last, err
		}
		if err := b(ctx); err != nil {
			return last, err
		}
	}
}
