// Package reservation is the collaborator-side concurrency discipline
// for bucket reserved quantities: an atomic compare-and-swap in Redis so
// two callers allocating from one snapshot cannot overcommit a bucket,
// plus a local rate limiter that keeps reservation storms off the
// backend.
//
// The allocation engine itself defines no ordering between concurrent
// callers; this package is where that obligation lives.
package reservation

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// reserveScript performs the compare-and-swap atomically in Redis.
// KEYS[1] = bucket hash key
// ARGV[1] = take (positive to reserve, negative to release)
// Returns 1 on success, 0 when the take would violate the invariant,
// -1 when the bucket is not cached.
var reserveScript = redis.NewScript(`
local key = KEYS[1]
local take = tonumber(ARGV[1])

local state = redis.call("HMGET", key, "quantity", "reserved")
local quantity = tonumber(state[1])
local reserved = tonumber(state[2])
if not quantity or not reserved then
    return -1
end

local next = reserved + take
if next < 0 or next > quantity then
    return 0
end

redis.call("HSET", key, "reserved", next)
return 1
`)

// ErrBucketUnknown is returned when the bucket counters are not present
// in Redis; the caller must seed them from the store first.
var ErrBucketUnknown = errors.New("reservation: bucket not cached")

// ErrOvercommitted is returned when the requested take no longer fits
// between zero and the bucket quantity. Callers re-snapshot and
// re-allocate.
var ErrOvercommitted = errors.New("reservation: take would overcommit bucket")

// Reserver applies bucket reservations through Redis.
type Reserver struct {
	client  *redis.Client
	limiter *rate.Limiter
	prefix  string
}

// NewReserver connects a reserver to Redis. perSecond bounds how many
// reservation attempts this process issues.
func NewReserver(client *redis.Client, perSecond float64, burst int) *Reserver {
	return &Reserver{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		prefix:  "bucket:",
	}
}

func (r *Reserver) key(bucketID string) string {
	return r.prefix + bucketID
}

// Seed writes a bucket's counters into Redis.
func (r *Reserver) Seed(ctx context.Context, bucketID string, quantity, reserved int64) error {
	err := r.client.HSet(ctx, r.key(bucketID), "quantity", quantity, "reserved", reserved).Err()
	if err != nil {
		return fmt.Errorf("failed to seed bucket %s: %w", bucketID, err)
	}
	return nil
}

// Reserve takes quantity from the bucket's availability, atomically.
func (r *Reserver) Reserve(ctx context.Context, bucketID string, take int64) error {
	return r.swap(ctx, bucketID, take)
}

// Release returns a previously reserved quantity.
func (r *Reserver) Release(ctx context.Context, bucketID string, take int64) error {
	return r.swap(ctx, bucketID, -take)
}

func (r *Reserver) swap(ctx context.Context, bucketID string, take int64) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("reservation limiter: %w", err)
	}
	res, err := reserveScript.Run(ctx, r.client, []string{r.key(bucketID)}, take).Int()
	if err != nil {
		return fmt.Errorf("reservation script failed for %s: %w", bucketID, err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("bucket %s: %w", bucketID, ErrOvercommitted)
	default:
		return fmt.Errorf("bucket %s: %w", bucketID, ErrBucketUnknown)
	}
}

// Reserved reads the current reserved counter for a bucket.
func (r *Reserver) Reserved(ctx context.Context, bucketID string) (int64, error) {
	val, err := r.client.HGet(ctx, r.key(bucketID), "reserved").Int64()
	if err == redis.Nil {
		return 0, fmt.Errorf("bucket %s: %w", bucketID, ErrBucketUnknown)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read bucket %s: %w", bucketID, err)
	}
	return val, nil
}
