package domain

import "time"

// TokenType tags a JWT as belonging to one half of an issued pair.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the decoded payload of a session token.
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	JTI       string    `json:"jti"`
	TokenType TokenType `json:"token_type"`
	Exp       int64     `json:"exp"`
	Iat       int64     `json:"iat"`
}

// IsExpired checks if the token is expired
func (c Claims) IsExpired() bool {
	return time.Now().Unix() >= c.Exp
}

// TokenPair represents a pair of access and refresh tokens sharing one jti
type TokenPair struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	AccessClaims  Claims `json:"-"`
	RefreshClaims Claims `json:"-"`
}

// TokenStatus is the explicit lifecycle state of a tracked pair.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusRevoked TokenStatus = "revoked"
	TokenStatusExpired TokenStatus = "expired"
)

// TrackedToken is the persisted record of one issued access/refresh pair.
// The jti and both token strings are stored as SHA-256 digests, never plaintext.
type TrackedToken struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	JTIHash          string     `json:"-" db:"jti_hash"`
	ExpiresAt        time.Time  `json:"expires_at" db:"expires_at"`
	AccessTokenHash  string     `json:"-" db:"access_token_hash"`
	RefreshTokenHash string     `json:"-" db:"refresh_token_hash"`
	RevokedAt        *time.Time `json:"revoked_at" db:"revoked_at"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Status derives the token state from explicit fields.
// Revocation wins over expiry so audit queries stay unambiguous.
func (t TrackedToken) Status() TokenStatus {
	if t.RevokedAt != nil {
		return TokenStatusRevoked
	}
	if time.Now().After(t.ExpiresAt) {
		return TokenStatusExpired
	}
	return TokenStatusActive
}

// BlacklistedToken marks a TrackedToken as revoked. One row per revoked token.
type BlacklistedToken struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	TokenID       string    `json:"token_id" db:"token_id"`
	BlacklistedAt time.Time `json:"blacklisted_at" db:"blacklisted_at"`
}
