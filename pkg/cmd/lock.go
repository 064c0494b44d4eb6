package cmd

import (
	"context"
	"time"

	"github.com/dukex/stepflow/pkg/lock"
)

// NewLocker returns a Redis locker when redisURL is set, otherwise an
// in-process one. The returned close function is never nil.
func NewLocker(ctx context.Context, redisURL string, ttl time.Duration) (lock.Locker, func() error, error) {
	if redisURL == "" {
		return lock.NewMemory(), func() error { return nil }, nil
	}

	locker, err := lock.NewRedisFromURL(ctx, redisURL, ttl)
	if err != nil {
		return nil, nil, err
	}

	return locker, locker.Close, nil
}
