package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/srgjo27/escrow_booking/internal/core/domain"
)

const DefaultAvailabilityTTL = 30 * time.Second

type AvailabilityCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAvailabilityCache(client redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = DefaultAvailabilityTTL
	}
	return &AvailabilityCache{client: client, ttl: ttl}
}

func AvailabilityKey(entityID string) string {
	return fmt.Sprintf("availability:%s", entityID)
}

func (c *AvailabilityCache) Get(ctx context.Context, entityID string) (*domain.Availability, bool, error) {
	raw, err := c.client.Get(ctx, AvailabilityKey(entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get availability %s: %w", entityID, err)
	}

	var availability domain.Availability
	if err := json.Unmarshal([]byte(raw), &availability); err != nil {
		return nil, false, fmt.Errorf("decode availability %s: %w", entityID, err)
	}
	return &availability, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, entityID string, availability domain.Availability) error {
	payload, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("encode availability %s: %w", entityID, err)
	}
	if err := c.client.Set(ctx, AvailabilityKey(entityID), string(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("set availability %s: %w", entityID, err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, entityID string) error {
	if err := c.client.Del(ctx, AvailabilityKey(entityID)).Err(); err != nil {
		return fmt.Errorf("invalidate availability %s: %w", entityID, err)
	}
	return nil
}
