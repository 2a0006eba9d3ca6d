package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSignedValue covers both bad signatures and expired values.
// Callers cannot distinguish the two.
var ErrInvalidSignedValue = errors.New("invalid or expired signed value")

// URLSigner builds and verifies one-time verification links.
// Token format: base64(purpose).base64(payload).timestamp.signature
type URLSigner struct {
	secret []byte
	maxAge time.Duration
}

// NewURLSigner creates a new URL signer
func NewURLSigner(secret string, maxAge time.Duration) *URLSigner {
	return &URLSigner{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// Sign produces a signed token carrying a purpose tag and payload.
func (s *URLSigner) Sign(purpose, payload string) string {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	body := encodePart(purpose) + "." + encodePart(payload) + "." + ts
	return body + "." + s.signature(body)
}

// Verify validates signature and age, returning the payload.
// The purpose must match the one the token was signed with.
func (s *URLSigner) Verify(token, purpose string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "", ErrInvalidSignedValue
	}
	body := strings.Join(parts[:3], ".")

	if !hmac.Equal([]byte(s.signature(body)), []byte(parts[3])) {
		return "", ErrInvalidSignedValue
	}

	gotPurpose, err := decodePart(parts[0])
	if err != nil || gotPurpose != purpose {
		return "", ErrInvalidSignedValue
	}

	ts, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", ErrInvalidSignedValue
	}
	if time.Since(time.Unix(ts, 0)) > s.maxAge {
		return "", ErrInvalidSignedValue
	}

	payload, err := decodePart(parts[1])
	if err != nil {
		return "", ErrInvalidSignedValue
	}
	return payload, nil
}

func (s *URLSigner) signature(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func encodePart(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func decodePart(v string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return "", fmt.Errorf("failed to decode signed part: %w", err)
	}
	return string(b), nil
}
