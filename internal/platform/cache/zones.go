package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"salaryslip/internal/domain/salaryslip"
)

const keyPrefix = "salaryslip:danger_zone:"

// Zones is a read-through redis cache in front of another ZoneLookup. Redis
// failures are logged and fall through to the wrapped lookup.
type Zones struct {
	rdb  *redis.Client
	next salaryslip.ZoneLookup
	ttl  time.Duration
}

func NewZones(rdb *redis.Client, next salaryslip.ZoneLookup, ttl time.Duration) *Zones {
	return &Zones{rdb: rdb, next: next, ttl: ttl}
}

func (z *Zones) IsDangerZone(ctx context.Context, dutyStation string) (bool, error) {
	key := keyPrefix + salaryslip.NormalizeStation(dutyStation)

	cached, err := z.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		return cached == "1", nil
	case !errors.Is(err, redis.Nil):
		slog.Warn("zone cache read failed", "station", dutyStation, "err", err)
	}

	inZone, err := z.next.IsDangerZone(ctx, dutyStation)
	if err != nil {
		return false, err
	}

	value := "0"
	if inZone {
		value = "1"
	}
	if err := z.rdb.Set(ctx, key, value, z.ttl).Err(); err != nil {
		slog.Warn("zone cache write failed", "station", dutyStation, "err", err)
	}
	return inZone, nil
}

// Invalidate drops a cached answer, e.g. after the zone table changes.
func (z *Zones) Invalidate(ctx context.Context, dutyStation string) error {
	return z.rdb.Del(ctx, keyPrefix+salaryslip.NormalizeStation(dutyStation)).Err()
}

func Connect(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
