package service

import "errors"

// Service-level errors with stable kinds for callers to branch on
var (
	// ErrInvalidCredentials is returned on bad email/password combinations
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountInactive is returned when an inactive account attempts auth
	ErrAccountInactive = errors.New("user account is inactive")

	// ErrAccountUnverified is returned when an unverified account attempts auth
	ErrAccountUnverified = errors.New("user account is not verified")

	// ErrTokenNotTracked is returned when a revocation targets a token pair
	// with no live tracked record
	ErrTokenNotTracked = errors.New("token not found in tracked tokens")

	// ErrInvalidDuration is returned when the OTP expiry is outside (0, 60] minutes
	ErrInvalidDuration = errors.New("otp duration must be within (0, 60] minutes")

	// ErrUnknownChannelKind is returned when no handler exists for a channel kind
	ErrUnknownChannelKind = errors.New("no handler for channel kind")

	// ErrPhoneNumberRequired is returned when SMS notifications are enabled
	// on an account without a phone number
	ErrPhoneNumberRequired = errors.New("a phone number is required to enable SMS notifications")
)
