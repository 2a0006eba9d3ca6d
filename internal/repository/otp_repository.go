package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/pkg/database"
)

// otpRepository implements OtpRepository interface
type otpRepository struct {
	db *database.Postgres
}

// NewOtpRepository creates a new OTP repository
func NewOtpRepository(db *database.Postgres) OtpRepository {
	return &otpRepository{db: db}
}

// CreateInvalidatingPrior marks previous unused codes of the same
// (user, purpose) used and inserts the new code in one transaction, so at
// most one unused OTP per (user, purpose) exists at any time.
func (r *otpRepository) CreateInvalidatingPrior(ctx context.Context, otp *domain.Otp) error {
	tx, err := r.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE otp_codes SET is_used = true
		WHERE user_id = $1 AND purpose = $2 AND is_used = false
	`, otp.UserID, otp.Purpose)
	if err != nil {
		return fmt.Errorf("failed to invalidate prior codes: %w", err)
	}

	if otp.ID == "" {
		otp.ID = uuid.New().String()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO otp_codes (id, user_id, code, purpose, is_used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		otp.ID,
		otp.UserID,
		otp.Code,
		otp.Purpose,
		otp.IsUsed,
		otp.ExpiresAt,
		otp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create otp: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit otp creation: %w", err)
	}

	return nil
}

// GetUnused retrieves the single unused OTP matching user, code and purpose
func (r *otpRepository) GetUnused(ctx context.Context, userID, code string, purpose domain.OtpPurpose) (*domain.Otp, error) {
	query := `
		SELECT id, user_id, code, purpose, is_used, expires_at, created_at
		FROM otp_codes
		WHERE user_id = $1 AND code = $2 AND purpose = $3 AND is_used = false
	`

	otp := &domain.Otp{}
	err := r.db.DB.QueryRowContext(ctx, query, userID, code, purpose).Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Code,
		&otp.Purpose,
		&otp.IsUsed,
		&otp.ExpiresAt,
		&otp.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("unused otp not found: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get otp: %w", err)
	}

	return otp, nil
}

// MarkUsed consumes an OTP
func (r *otpRepository) MarkUsed(ctx context.Context, otpID string) error {
	query := `UPDATE otp_codes SET is_used = true WHERE id = $1`

	result, err := r.db.DB.ExecContext(ctx, query, otpID)
	if err != nil {
		return fmt.Errorf("failed to mark otp used: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("otp with id %s not found: %w", otpID, ErrNotFound)
	}

	return nil
}
