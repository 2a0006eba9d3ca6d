package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/queue"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
)

const (
	otpInvalidMessage = "Invalid or already used OTP."
	otpExpiredMessage = "OTP has expired."
	otpValidMessage   = "OTP verified successfully."
)

// OtpService issues and verifies one-time codes. Creating a code invalidates
// every prior unused code of the same (user, purpose); the newest code is the
// only live one.
type OtpService struct {
	otps       repository.OtpRepository
	users      repository.UserRepository
	jobs       JobEnqueuer
	length     int
	expiry     time.Duration
	bcryptCost int
	logger     *zap.Logger
}

func NewOtpService(
	otps repository.OtpRepository,
	users repository.UserRepository,
	jobs JobEnqueuer,
	length int,
	expiry time.Duration,
	bcryptCost int,
	logger *zap.Logger,
) *OtpService {
	return &OtpService{
		otps:       otps,
		users:      users,
		jobs:       jobs,
		length:     length,
		expiry:     expiry,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Create generates a fresh code for the user and purpose, invalidating any
// prior unused codes. A non-nil expiry overrides the configured default;
// whichever applies must be in (0, 60] minutes.
func (s *OtpService) Create(ctx context.Context, userID string, purpose domain.OtpPurpose, expiry *time.Duration) (*domain.Otp, error) {
	ttl := s.expiry
	if expiry != nil {
		ttl = *expiry
	}
	// the configured default is bounded the same way as an override
	if ttl <= 0 || ttl > 60*time.Minute {
		return nil, ErrInvalidDuration
	}

	code, err := utils.GenerateOtpCode(s.length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp code: %w", err)
	}

	otp := &domain.Otp{
		UserID:    userID,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	if err := s.otps.CreateInvalidatingPrior(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}
	return otp, nil
}

// CreateAndSend creates a code and enqueues its delivery email.
func (s *OtpService) CreateAndSend(ctx context.Context, user *domain.User, purpose domain.OtpPurpose, expiry *time.Duration) (*domain.Otp, error) {
	otp, err := s.Create(ctx, user.ID, purpose, expiry)
	if err != nil {
		return nil, err
	}

	minutes := int(time.Until(otp.ExpiresAt).Round(time.Minute) / time.Minute)
	job := queue.EmailJob{
		Recipient: user.Email,
		Subject:   "Your verification code",
		Template:  purpose.EmailTemplate(),
		Context: map[string]string{
			"user_name":  user.FullName,
			"otp_code":   otp.Code,
			"expires_in": strconv.Itoa(minutes),
		},
	}
	if err := s.jobs.EnqueueEmail(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue otp email: %w", err)
	}

	s.logger.Info("otp created",
		zap.String("user_id", user.ID),
		zap.String("purpose", string(purpose)))
	return otp, nil
}

// ValidateForEmail resolves the account behind an email and verifies the
// submitted code. An unknown email is reported exactly like a wrong code so
// the endpoint does not confirm account existence.
func (s *OtpService) ValidateForEmail(ctx context.Context, email, code string, purpose domain.OtpPurpose, newPassword string) (bool, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, otpInvalidMessage, nil
		}
		return false, "", fmt.Errorf("failed to look up user: %w", err)
	}
	return s.Verify(ctx, user, code, purpose, newPassword)
}

// ResendForEmail issues a fresh code for the account behind an email. An
// unknown email is silently accepted for the same reason.
func (s *OtpService) ResendForEmail(ctx context.Context, email string, purpose domain.OtpPurpose) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("otp resend requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	_, err = s.CreateAndSend(ctx, user, purpose, nil)
	return err
}

// Verify checks a submitted code. On success the code is consumed and the
// purpose's side effect runs: signup activates and verifies the account,
// password_reset sets the supplied new password. The returned message is safe
// to show to the caller.
func (s *OtpService) Verify(ctx context.Context, user *domain.User, code string, purpose domain.OtpPurpose, newPassword string) (bool, string, error) {
	otp, err := s.otps.GetUnused(ctx, user.ID, code, purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, otpInvalidMessage, nil
		}
		return false, "", fmt.Errorf("failed to look up otp: %w", err)
	}
	if otp.IsExpired() {
		return false, otpExpiredMessage, nil
	}

	if err := s.otps.MarkUsed(ctx, otp.ID); err != nil {
		return false, "", fmt.Errorf("failed to mark otp used: %w", err)
	}

	switch purpose {
	case domain.OtpSignup:
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return false, "", fmt.Errorf("failed to verify user: %w", err)
		}
	case domain.OtpPasswordReset:
		hash, err := utils.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return false, "", fmt.Errorf("failed to hash password: %w", err)
		}
		if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
			return false, "", fmt.Errorf("failed to set password: %w", err)
		}
	}

	s.logger.Info("otp verified",
		zap.String("user_id", user.ID),
		zap.String("purpose", string(purpose)))
	return true, otpValidMessage, nil
}
