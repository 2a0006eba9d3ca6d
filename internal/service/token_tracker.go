package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
)

// RevocationCache is the fast-path store for revoked (user, jti hash) pairs.
// Satisfied by *TokenBlacklistCache.
type RevocationCache interface {
	Add(ctx context.Context, userID, jtiHash string, expiry time.Duration) error
	Contains(ctx context.Context, userID, jtiHash string) (bool, error)
}

// TokenTracker persists issued token pairs and revokes them on logout.
// Tokens are stored hashed; the raw values never touch the database.
// It also satisfies utils.RevocationChecker for the codec.
type TokenTracker struct {
	tokens repository.TokenRepository
	cache  RevocationCache
	logger *zap.Logger
}

func NewTokenTracker(tokens repository.TokenRepository, cache RevocationCache, logger *zap.Logger) *TokenTracker {
	return &TokenTracker{
		tokens: tokens,
		cache:  cache,
		logger: logger,
	}
}

// Track records an issued pair under the hash of its shared jti.
// Tracking the same pair twice returns the existing row.
func (t *TokenTracker) Track(ctx context.Context, userID string, pair *domain.TokenPair, claims *domain.Claims) (*domain.TrackedToken, error) {
	token := &domain.TrackedToken{
		UserID:           userID,
		JTIHash:          utils.HashToken(claims.JTI),
		ExpiresAt:        time.Unix(claims.Exp, 0).UTC(),
		AccessTokenHash:  utils.HashToken(pair.AccessToken),
		RefreshTokenHash: utils.HashToken(pair.RefreshToken),
	}

	tracked, err := t.tokens.GetOrCreate(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to track token: %w", err)
	}
	return tracked, nil
}

// RevokeByJTI revokes the tracked pair holding the given jti and blacklists it.
// Returns ErrTokenNotTracked when no active pair matches.
func (t *TokenTracker) RevokeByJTI(ctx context.Context, userID, jti string) error {
	jtiHash := utils.HashToken(jti)

	tracked, err := t.tokens.GetByJTIHash(ctx, userID, jtiHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTokenNotTracked
		}
		return fmt.Errorf("failed to look up tracked token: %w", err)
	}
	if tracked.Status() != domain.TokenStatusActive {
		return ErrTokenNotTracked
	}

	if err := t.tokens.Revoke(ctx, userID, tracked.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrAlreadyBlacklisted) {
			return ErrTokenNotTracked
		}
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	t.cacheRevocation(ctx, userID, jtiHash, tracked.ExpiresAt)
	return nil
}

// RevokeAll revokes every active tracked pair for the user and returns the count.
func (t *TokenTracker) RevokeAll(ctx context.Context, userID string) (int, error) {
	tracked, err := t.tokens.GetByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list tracked tokens: %w", err)
	}

	count, err := t.tokens.RevokeAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke all tokens: %w", err)
	}

	for _, tok := range tracked {
		if tok.Status() == domain.TokenStatusActive {
			t.cacheRevocation(ctx, userID, tok.JTIHash, tok.ExpiresAt)
		}
	}
	return count, nil
}

// IsRevoked reports whether the jti has been blacklisted. The Redis cache is
// consulted first; Postgres stays authoritative on a miss or cache error.
func (t *TokenTracker) IsRevoked(ctx context.Context, userID, jti string) (bool, error) {
	jtiHash := utils.HashToken(jti)

	cached, err := t.cache.Contains(ctx, userID, jtiHash)
	if err != nil {
		t.logger.Warn("blacklist cache lookup failed, falling back to database", zap.Error(err))
	} else if cached {
		return true, nil
	}

	blacklisted, err := t.tokens.IsBlacklisted(ctx, userID, jtiHash)
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return blacklisted, nil
}

func (t *TokenTracker) cacheRevocation(ctx context.Context, userID, jtiHash string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	if err := t.cache.Add(ctx, userID, jtiHash, ttl); err != nil {
		t.logger.Warn("failed to cache token revocation", zap.Error(err))
	}
}
