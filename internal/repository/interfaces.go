package repository

import (
	"context"

	"github.com/prperemyshlev/account-service/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateLastLogin(ctx context.Context, userID string) error
	SetPassword(ctx context.Context, userID, passwordHash string) error
	MarkVerified(ctx context.Context, userID string) error
	// ListBroadcastIDs resolves the broadcast population in a stable order.
	// Target "all_users" selects active verified non-staff non-superuser users;
	// any other value is an exact role filter.
	ListBroadcastIDs(ctx context.Context, target string) ([]string, error)
}

// ProfileRepository defines methods for role-specific profile records
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}

// TokenRepository maintains the authoritative record of issued token pairs
type TokenRepository interface {
	// GetOrCreate inserts a tracked token or returns the existing row
	// keyed by (user, jti hash).
	GetOrCreate(ctx context.Context, token *domain.TrackedToken) (*domain.TrackedToken, error)
	GetByJTIHash(ctx context.Context, userID, jtiHash string) (*domain.TrackedToken, error)
	GetByUserID(ctx context.Context, userID string) ([]*domain.TrackedToken, error)
	// Revoke creates the blacklist record and marks the tracked token revoked
	// in one transaction.
	Revoke(ctx context.Context, userID, tokenID string) error
	// RevokeAll revokes every active, not-yet-blacklisted token of the user
	// in one transaction and returns the count revoked.
	RevokeAll(ctx context.Context, userID string) (int, error)
	IsBlacklisted(ctx context.Context, userID, jtiHash string) (bool, error)
}

// OtpRepository defines methods for one-time code operations
type OtpRepository interface {
	// CreateInvalidatingPrior marks prior unused codes of the same
	// (user, purpose) used and inserts the new one in one transaction.
	CreateInvalidatingPrior(ctx context.Context, otp *domain.Otp) error
	GetUnused(ctx context.Context, userID, code string, purpose domain.OtpPurpose) (*domain.Otp, error)
	MarkUsed(ctx context.Context, otpID string) error
}

// NotificationBatch pairs one notification with its channel snapshot for a
// batched insert.
type NotificationBatch struct {
	Notification *domain.Notification
	Kinds        []domain.ChannelKind
}

// NotificationRepository defines methods for notifications and their channels
type NotificationRepository interface {
	// CreateWithChannels inserts the notification and one channel row per
	// kind in one transaction.
	CreateWithChannels(ctx context.Context, n *domain.Notification, kinds []domain.ChannelKind) error
	// CreateBatchWithChannels inserts every item inside a single transaction.
	// A failing item is reported by index and does not block the rest; the
	// survivors commit together.
	CreateBatchWithChannels(ctx context.Context, items []NotificationBatch) (map[int]error, error)
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, read *bool, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	// MarkRead flips read on the notification and propagates is_read to its
	// channels. Returns false when the notification was already read.
	MarkRead(ctx context.Context, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	ChannelsByStatus(ctx context.Context, notificationID string, status domain.ChannelStatus) ([]*domain.NotificationChannel, error)
	UpdateChannelStatus(ctx context.Context, channelID string, status domain.ChannelStatus) error
	// ResetFailedChannels moves every failed channel of the notification back
	// to pending, returning the count reset.
	ResetFailedChannels(ctx context.Context, notificationID string) (int, error)
}

// PreferenceRepository defines methods for notification preferences
type PreferenceRepository interface {
	Create(ctx context.Context, pref *domain.NotificationPreference) error
	GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Update(ctx context.Context, pref *domain.NotificationPreference) error
}
