package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
)

// preferenceRepository implements PreferenceRepository interface
type preferenceRepository struct {
	db *database.Postgres
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *database.Postgres) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// Create inserts the preference row for a user; idempotent per user
func (r *preferenceRepository) Create(ctx context.Context, pref *domain.NotificationPreference) error {
	query := `
		INSERT INTO notification_preferences (user_id, email, sms, push, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO NOTHING
	`

	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		pref.UserID,
		pref.Email,
		pref.SMS,
		pref.Push,
		pref.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification preference: %w", err)
	}

	return nil
}

// GetByUserID retrieves a user's notification preference
func (r *preferenceRepository) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	query := `
		SELECT user_id, email, sms, push, created_at
		FROM notification_preferences
		WHERE user_id = $1
	`

	pref := &domain.NotificationPreference{}
	err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID,
		&pref.Email,
		&pref.SMS,
		&pref.Push,
		&pref.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("preference for user %s not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification preference: %w", err)
	}

	return pref, nil
}

// Update replaces the channel flags for a user
func (r *preferenceRepository) Update(ctx context.Context, pref *domain.NotificationPreference) error {
	query := `
		UPDATE notification_preferences SET email = $2, sms = $3, push = $4
		WHERE user_id = $1
	`

	result, err := r.db.DB.ExecContext(ctx, query,
		pref.UserID,
		pref.Email,
		pref.SMS,
		pref.Push,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification preference: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("preference for user %s not found: %w", pref.UserID, ErrNotFound)
	}

	return nil
}
