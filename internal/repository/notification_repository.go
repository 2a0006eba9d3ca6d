package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
)

const notificationColumns = `id, user_id, verb, message, source_app, actor_id, target_kind, target_id, read, created_at`

// notificationRepository implements NotificationRepository interface
type notificationRepository struct {
	db *database.Postgres
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.Postgres) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateWithChannels creates the notification and its channel rows in one
// transaction, so a crash mid-dispatch always leaves recoverable pending rows.
func (r *notificationRepository) CreateWithChannels(ctx context.Context, n *domain.Notification, kinds []domain.ChannelKind) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertNotificationTx(ctx, tx, n, kinds); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit notification: %w", err)
	}

	return nil
}

// CreateBatchWithChannels inserts every item inside one transaction. A
// failing item is rolled back to its savepoint and reported by index; the
// surviving items commit together.
func (r *notificationRepository) CreateBatchWithChannels(ctx context.Context, items []NotificationBatch) (map[int]error, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	failed := map[int]error{}
	for i, item := range items {
		sp := fmt.Sprintf("item_%d", i)
		if _, err := tx.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}
		if err := insertNotificationTx(ctx, tx, item.Notification, item.Kinds); err != nil {
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return nil, fmt.Errorf("failed to roll back to savepoint: %w", rbErr)
			}
			failed[i] = err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit notification batch: %w", err)
	}

	return failed, nil
}

func insertNotificationTx(ctx context.Context, tx *sql.Tx, n *domain.Notification, kinds []domain.ChannelKind) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		n.ID,
		n.UserID,
		n.Verb,
		n.Message,
		n.SourceApp,
		n.ActorID,
		n.TargetKind,
		n.TargetID,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	for _, kind := range kinds {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notification_channels (id, notification_id, kind, status, is_read, created_at)
			VALUES ($1, $2, $3, $4, false, $5)
		`, uuid.New().String(), n.ID, kind, domain.ChannelPending, n.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok {
				if pqErr.Code == "23505" { // unique_violation on (notification, kind)
					return fmt.Errorf("channel %s: %w", kind, ErrDuplicateChannel)
				}
			}
			return fmt.Errorf("failed to create %s channel: %w", kind, err)
		}
	}

	return nil
}

// GetByID retrieves a notification by ID
func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1 AND deleted_at IS NULL`

	n, err := r.scanNotification(r.db.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification with id %s not found: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

// ListByUser retrieves a user's notifications newest first, optionally
// filtered by read state
func (r *notificationRepository) ListByUser(ctx context.Context, userID string, read *bool, limit int) ([]*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 AND deleted_at IS NULL`
	args := []any{userID}

	if read != nil {
		query += ` AND read = $2`
		args = append(args, *read)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit)

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := r.scanNotificationRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// UnreadCount returns the number of unread notifications for a user
func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false AND deleted_at IS NULL`

	var count int
	if err := r.db.DB.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead flips the read flag and propagates it to channel rows.
// Returns false without touching anything when already read.
func (r *notificationRepository) MarkRead(ctx context.Context, notificationID string) (bool, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE id = $1 AND read = false
	`, notificationID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Already read, or absent - idempotent either way.
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE notification_channels SET is_read = true WHERE notification_id = $1
	`, notificationID)
	if err != nil {
		return false, fmt.Errorf("failed to mark channels read: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit read flag: %w", err)
	}

	return true, nil
}

// MarkAllRead marks every unread notification of a user read, with channel
// propagation, returning the count flipped
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE notification_channels SET is_read = true
		WHERE notification_id IN (
			SELECT id FROM notifications WHERE user_id = $1 AND read = false
		)
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark channels read: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE notifications SET read = true WHERE user_id = $1 AND read = false
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit read flags: %w", err)
	}

	return int(rowsAffected), nil
}

// ChannelsByStatus retrieves a notification's channels in a given status,
// in creation order
func (r *notificationRepository) ChannelsByStatus(ctx context.Context, notificationID string, status domain.ChannelStatus) ([]*domain.NotificationChannel, error) {
	query := `
		SELECT id, notification_id, kind, status, is_read, created_at
		FROM notification_channels
		WHERE notification_id = $1 AND status = $2
		ORDER BY created_at, kind
	`

	rows, err := r.db.DB.QueryContext(ctx, query, notificationID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*domain.NotificationChannel
	for rows.Next() {
		ch := &domain.NotificationChannel{}
		err := rows.Scan(
			&ch.ID,
			&ch.NotificationID,
			&ch.Kind,
			&ch.Status,
			&ch.IsRead,
			&ch.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate channels: %w", err)
	}

	return channels, nil
}

// UpdateChannelStatus records a delivery attempt outcome
func (r *notificationRepository) UpdateChannelStatus(ctx context.Context, channelID string, status domain.ChannelStatus) error {
	query := `UPDATE notification_channels SET status = $1 WHERE id = $2`

	result, err := r.db.DB.ExecContext(ctx, query, status, channelID)
	if err != nil {
		return fmt.Errorf("failed to update channel status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("channel with id %s not found: %w", channelID, ErrNotFound)
	}

	return nil
}

// ResetFailedChannels moves failed channels back to pending for retry
func (r *notificationRepository) ResetFailedChannels(ctx context.Context, notificationID string) (int, error) {
	query := `
		UPDATE notification_channels SET status = $1
		WHERE notification_id = $2 AND status = $3
	`

	result, err := r.db.DB.ExecContext(ctx, query, domain.ChannelPending, notificationID, domain.ChannelFailed)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed channels: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rowsAffected), nil
}

func (r *notificationRepository) scanNotification(row *sql.Row) (*domain.Notification, error) {
	n := &domain.Notification{}
	var actorID, targetKind, targetID sql.NullString

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Verb,
		&n.Message,
		&n.SourceApp,
		&actorID,
		&targetKind,
		&targetID,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	assignNullStrings(n, actorID, targetKind, targetID)
	return n, nil
}

func (r *notificationRepository) scanNotificationRows(rows *sql.Rows) (*domain.Notification, error) {
	n := &domain.Notification{}
	var actorID, targetKind, targetID sql.NullString

	err := rows.Scan(
		&n.ID,
		&n.UserID,
		&n.Verb,
		&n.Message,
		&n.SourceApp,
		&actorID,
		&targetKind,
		&targetID,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	assignNullStrings(n, actorID, targetKind, targetID)
	return n, nil
}

func assignNullStrings(n *domain.Notification, actorID, targetKind, targetID sql.NullString) {
	if actorID.Valid {
		n.ActorID = &actorID.String
	}
	if targetKind.Valid {
		n.TargetKind = &targetKind.String
	}
	if targetID.Valid {
		n.TargetID = &targetID.String
	}
}
