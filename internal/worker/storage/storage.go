package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notification:"

// releaseScript deletes the claim only while the caller still owns it
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// completeScript stretches an owned claim to the dedup window
var completeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// ErrClaimLost is returned by Complete when the lease ran out or another
// worker holds the key
var ErrClaimLost = errors.New("notification claim no longer held")

// Storage records which notification events are in flight or already handled.
// A claim lives for lease until Complete keeps it for ttl, so a worker that
// dies mid-notification does not block redeliveries for the whole window.
type Storage struct {
	rdb    *redis.Client
	owner  string
	lease  time.Duration
	ttl    time.Duration
	logger *slog.Logger
}

// NewStorage creates a new Storage instance. owner identifies this worker in
// the stored claims.
func NewStorage(rdb *redis.Client, owner string, lease, ttl time.Duration, logger *slog.Logger) *Storage {
	return &Storage{
		rdb:    rdb,
		owner:  owner,
		lease:  lease,
		ttl:    ttl,
		logger: logger,
	}
}

// Claim takes the processing lease for the event. It returns false when the
// key is held, either by an earlier delivery or by another worker.
func (s *Storage) Claim(ctx context.Context, dedupKey string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, keyPrefix+dedupKey, s.owner, s.lease).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim notification: %w", err)
	}

	if !ok {
		s.logger.Debug("Notification already claimed",
			slog.String("dedup_key", dedupKey),
		)
	}
	return ok, nil
}

// Release drops a claim so a redelivery can handle the event again
func (s *Storage) Release(ctx context.Context, dedupKey string) error {
	if err := releaseScript.Run(ctx, s.rdb, []string{keyPrefix + dedupKey}, s.owner).Err(); err != nil {
		return fmt.Errorf("failed to release notification claim: %w", err)
	}
	return nil
}

// Complete marks a claimed event as handled for the dedup window
func (s *Storage) Complete(ctx context.Context, dedupKey string) error {
	extended, err := completeScript.Run(ctx, s.rdb, []string{keyPrefix + dedupKey}, s.owner, s.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to complete notification claim: %w", err)
	}
	if extended == 0 {
		return ErrClaimLost
	}
	return nil
}
