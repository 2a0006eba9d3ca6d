package service

import (
	"context"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/pkg/database"
)

// TokenBlacklistCache is the Redis fast path in front of the authoritative
// Postgres blacklist. Entries expire with the token itself, so a cache miss
// only costs one database lookup.
type TokenBlacklistCache struct {
	redis *database.Redis
}

// NewTokenBlacklistCache creates a new token blacklist cache
func NewTokenBlacklistCache(redis *database.Redis) *TokenBlacklistCache {
	return &TokenBlacklistCache{redis: redis}
}

func blacklistKey(userID, jtiHash string) string {
	return fmt.Sprintf("blacklist:token:%s:%s", userID, jtiHash)
}

// Add records a revoked (user, jti hash) pair with a TTL
func (c *TokenBlacklistCache) Add(ctx context.Context, userID, jtiHash string, expiry time.Duration) error {
	err := c.redis.Client.Set(ctx, blacklistKey(userID, jtiHash), "1", expiry).Err()
	if err != nil {
		return fmt.Errorf("failed to add token to blacklist cache: %w", err)
	}
	return nil
}

// Contains checks the cache for a revoked pair
func (c *TokenBlacklistCache) Contains(ctx context.Context, userID, jtiHash string) (bool, error) {
	exists, err := c.redis.Client.Exists(ctx, blacklistKey(userID, jtiHash)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist cache: %w", err)
	}
	return exists > 0, nil
}
