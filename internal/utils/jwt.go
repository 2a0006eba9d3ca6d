package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/domain"
)

// Token verification errors. Callers branch on these with errors.Is.
var (
	ErrExpiredToken   = errors.New("token has expired")
	ErrMalformedToken = errors.New("token is malformed")
	ErrRevokedToken   = errors.New("token has been revoked")
	ErrWrongTokenType = errors.New("wrong token type")
)

// ClaimExtractor pulls one claim value out of a user.
type ClaimExtractor func(user *domain.User) any

// ClaimMap enumerates which user attributes become token claims.
// It is injected at codec construction instead of living in global settings.
type ClaimMap map[string]ClaimExtractor

// DefaultClaimMap returns the standard user-attribute-to-claim mapping
func DefaultClaimMap() ClaimMap {
	return ClaimMap{
		"user_id": func(u *domain.User) any { return u.ID },
		"email":   func(u *domain.User) any { return u.Email },
		"role":    func(u *domain.User) any { return string(u.Role) },
	}
}

// RevocationChecker reports whether a (user, jti) pair has been blacklisted.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, userID, jti string) (bool, error)
}

// TokenCodec produces and validates signed, time-bounded session credentials
type TokenCodec struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	claims        ClaimMap
	revocations   RevocationChecker
}

// NewTokenCodec creates a new token codec
func NewTokenCodec(secret string, accessExpiry, refreshExpiry time.Duration, claims ClaimMap, revocations RevocationChecker) *TokenCodec {
	return &TokenCodec{
		secret:        []byte(secret),
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		claims:        claims,
		revocations:   revocations,
	}
}

// IssuePair issues an access/refresh token pair sharing one jti.
// Expiries are computed from issuance time.
func (c *TokenCodec) IssuePair(user *domain.User) (*domain.TokenPair, error) {
	jti := uuid.New().String()
	now := time.Now()

	access, accessClaims, err := c.encode(user, domain.TokenTypeAccess, jti, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, refreshClaims, err := c.encode(user, domain.TokenTypeRefresh, jti, now)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:   access,
		RefreshToken:  refresh,
		AccessClaims:  accessClaims,
		RefreshClaims: refreshClaims,
	}, nil
}

// IssueAccess issues a standalone access token with a fresh jti,
// re-deriving claims from current user state. Used by the refresh flow;
// the resulting token is not linked to the original pair's tracked record.
func (c *TokenCodec) IssueAccess(user *domain.User) (string, domain.Claims, error) {
	token, claims, err := c.encode(user, domain.TokenTypeAccess, uuid.New().String(), time.Now())
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("failed to issue access token: %w", err)
	}
	return token, claims, nil
}

func (c *TokenCodec) encode(user *domain.User, tokenType domain.TokenType, jti string, now time.Time) (string, domain.Claims, error) {
	expiry := now.Add(c.accessExpiry)
	if tokenType == domain.TokenTypeRefresh {
		expiry = now.Add(c.refreshExpiry)
	}

	payload := jwt.MapClaims{
		"jti":        jti,
		"exp":        expiry.Unix(),
		"iat":        now.Unix(),
		"token_type": string(tokenType),
	}
	for claim, extract := range c.claims {
		payload[claim] = extract(user)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(c.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, domain.Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       jti,
		TokenType: tokenType,
		Exp:       expiry.Unix(),
		Iat:       now.Unix(),
	}, nil
}

// Decode cryptographically validates a token and returns its claims.
// Checks run in order: signature, expiry, jti presence, revocation, type.
func (c *TokenCodec) Decode(ctx context.Context, tokenString string, expectedType domain.TokenType) (*domain.Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("failed to parse token: %w", ErrExpiredToken)
		}
		return nil, fmt.Errorf("failed to parse token: %w", ErrMalformedToken)
	}
	if !token.Valid {
		return nil, ErrMalformedToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	claims, err := claimsFromMap(mapClaims)
	if err != nil {
		return nil, err
	}

	if claims.IsExpired() {
		return nil, ErrExpiredToken
	}

	if claims.JTI == "" {
		return nil, fmt.Errorf("missing jti claim: %w", ErrMalformedToken)
	}

	revoked, err := c.revocations.IsRevoked(ctx, claims.UserID, claims.JTI)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	if claims.TokenType != expectedType {
		return nil, fmt.Errorf("expected %s token, got %s: %w", expectedType, claims.TokenType, ErrWrongTokenType)
	}

	return claims, nil
}

// UnverifiedHeader returns the token header without signature verification.
// For inspection only, never for trust decisions.
func (c *TokenCodec) UnverifiedHeader(tokenString string) (map[string]any, error) {
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token header: %w", ErrMalformedToken)
	}
	return token.Header, nil
}

// AccessTokenExpirySeconds returns the access token lifetime in seconds
func (c *TokenCodec) AccessTokenExpirySeconds() int {
	return int(c.accessExpiry.Seconds())
}

// RefreshTokenExpiry returns the refresh token lifetime
func (c *TokenCodec) RefreshTokenExpiry() time.Duration {
	return c.refreshExpiry
}

func claimsFromMap(m jwt.MapClaims) (*domain.Claims, error) {
	userID, ok := m["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("missing user_id claim: %w", ErrMalformedToken)
	}

	tokenType, ok := m["token_type"].(string)
	if !ok {
		return nil, fmt.Errorf("missing token_type claim: %w", ErrMalformedToken)
	}

	exp, ok := m["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing exp claim: %w", ErrMalformedToken)
	}

	iat, ok := m["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing iat claim: %w", ErrMalformedToken)
	}

	claims := &domain.Claims{
		UserID:    userID,
		TokenType: domain.TokenType(tokenType),
		Exp:       int64(exp),
		Iat:       int64(iat),
	}

	if jti, ok := m["jti"].(string); ok {
		claims.JTI = jti
	}
	if email, ok := m["email"].(string); ok {
		claims.Email = email
	}
	if role, ok := m["role"].(string); ok {
		claims.Role = domain.UserRole(role)
	}

	return claims, nil
}
