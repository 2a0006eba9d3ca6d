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

const trackedTokenColumns = `id, user_id, jti_hash, expires_at, access_token_hash, refresh_token_hash, revoked_at, created_at`

// tokenRepository implements TokenRepository interface
type tokenRepository struct {
	db *database.Postgres
}

// NewTokenRepository creates a new token repository
func NewTokenRepository(db *database.Postgres) TokenRepository {
	return &tokenRepository{db: db}
}

// GetOrCreate inserts a tracked token, or returns the existing row for the
// same (user, jti hash). Idempotent.
func (r *tokenRepository) GetOrCreate(ctx context.Context, token *domain.TrackedToken) (*domain.TrackedToken, error) {
	existing, err := r.GetByJTIHash(ctx, token.UserID, token.JTIHash)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	query := `
		INSERT INTO tracked_tokens (` + trackedTokenColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err = r.db.DB.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.JTIHash,
		token.ExpiresAt,
		token.AccessTokenHash,
		token.RefreshTokenHash,
		token.RevokedAt,
		token.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation: lost a create race
				return r.GetByJTIHash(ctx, token.UserID, token.JTIHash)
			}
		}
		return nil, fmt.Errorf("failed to create tracked token: %w", err)
	}

	return token, nil
}

// GetByJTIHash retrieves a tracked token by its owner and hashed jti
func (r *tokenRepository) GetByJTIHash(ctx context.Context, userID, jtiHash string) (*domain.TrackedToken, error) {
	query := `
		SELECT ` + trackedTokenColumns + `
		FROM tracked_tokens
		WHERE user_id = $1 AND jti_hash = $2
	`

	token, err := scanTrackedToken(r.db.DB.QueryRowContext(ctx, query, userID, jtiHash))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tracked token not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tracked token: %w", err)
	}

	return token, nil
}

// GetByUserID retrieves all tracked tokens for a user, newest first
func (r *tokenRepository) GetByUserID(ctx context.Context, userID string) ([]*domain.TrackedToken, error) {
	query := `
		SELECT ` + trackedTokenColumns + `
		FROM tracked_tokens
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tracked tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*domain.TrackedToken
	for rows.Next() {
		token := &domain.TrackedToken{}
		var revokedAt sql.NullTime

		err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.JTIHash,
			&token.ExpiresAt,
			&token.AccessTokenHash,
			&token.RefreshTokenHash,
			&revokedAt,
			&token.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked token: %w", err)
		}
		if revokedAt.Valid {
			token.RevokedAt = &revokedAt.Time
		}

		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tracked tokens: %w", err)
	}

	return tokens, nil
}

// Revoke blacklists one tracked token and marks it revoked.
// Both writes happen in one transaction, or neither does.
func (r *tokenRepository) Revoke(ctx context.Context, userID, tokenID string) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO blacklisted_tokens (id, user_id, token_id, blacklisted_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.New().String(), userID, tokenID, now)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" { // unique_violation on token_id
				return fmt.Errorf("token %s: %w", tokenID, ErrAlreadyBlacklisted)
			}
		}
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE tracked_tokens SET revoked_at = $1 WHERE id = $2 AND user_id = $3
	`, now, tokenID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark token revoked: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("tracked token %s not found: %w", tokenID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit revocation: %w", err)
	}

	return nil
}

// RevokeAll revokes every active token of the user that is not already
// blacklisted, as a single transaction. Returns the count revoked.
func (r *tokenRepository) RevokeAll(ctx context.Context, userID string) (int, error) {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	rows, err := tx.QueryContext(ctx, `
		SELECT t.id
		FROM tracked_tokens t
		LEFT JOIN blacklisted_tokens b ON b.token_id = t.id
		WHERE t.user_id = $1 AND t.revoked_at IS NULL AND b.id IS NULL
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list revocable tokens: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan token id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("failed to iterate token ids: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return 0, nil
	}

	for _, id := range ids {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO blacklisted_tokens (id, user_id, token_id, blacklisted_at)
			VALUES ($1, $2, $3, $4)
		`, uuid.New().String(), userID, id, now)
		if err != nil {
			return 0, fmt.Errorf("failed to blacklist token %s: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tracked_tokens SET revoked_at = $1
		WHERE user_id = $2 AND id = ANY($3)
	`, now, userID, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to mark tokens revoked: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk revocation: %w", err)
	}

	return len(ids), nil
}

// IsBlacklisted checks whether the (user, jti hash) pair has been revoked
func (r *tokenRepository) IsBlacklisted(ctx context.Context, userID, jtiHash string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM blacklisted_tokens b
			JOIN tracked_tokens t ON t.id = b.token_id
			WHERE b.user_id = $1 AND t.jti_hash = $2
		)
	`

	var exists bool
	if err := r.db.DB.QueryRowContext(ctx, query, userID, jtiHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return exists, nil
}

func scanTrackedToken(row *sql.Row) (*domain.TrackedToken, error) {
	token := &domain.TrackedToken{}
	var revokedAt sql.NullTime

	err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.JTIHash,
		&token.ExpiresAt,
		&token.AccessTokenHash,
		&token.RefreshTokenHash,
		&revokedAt,
		&token.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if revokedAt.Valid {
		token.RevokedAt = &revokedAt.Time
	}

	return token, nil
}
