package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateToken is returned when trying to create a tracked token with an existing jti
	ErrDuplicateToken = errors.New("token with this jti already exists")

	// ErrAlreadyBlacklisted is returned when a tracked token already has a blacklist record
	ErrAlreadyBlacklisted = errors.New("token is already blacklisted")

	// ErrDuplicateChannel is returned when a notification already has a channel of that kind
	ErrDuplicateChannel = errors.New("notification channel of this kind already exists")
)
