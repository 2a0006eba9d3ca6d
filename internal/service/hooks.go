package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/repository"
)

// UserCreatedHook runs after a user row is committed. Hooks replace implicit
// side effects with an explicit, ordered pipeline wired at startup.
type UserCreatedHook func(ctx context.Context, user *domain.User) error

// ProfileCreationHook creates the role-specific profile record for a new user.
func ProfileCreationHook(profiles repository.ProfileRepository) UserCreatedHook {
	return func(ctx context.Context, user *domain.User) error {
		kind, err := domain.ProfileKindForRole(user.Role)
		if err != nil {
			return fmt.Errorf("failed to resolve profile kind: %w", err)
		}
		profile := &domain.Profile{
			UserID: user.ID,
			Kind:   kind,
		}
		if err := profiles.Create(ctx, profile); err != nil {
			return fmt.Errorf("failed to create %s profile: %w", kind, err)
		}
		return nil
	}
}

// PreferenceCreationHook seeds the default notification preference row.
func PreferenceCreationHook(preferences repository.PreferenceRepository) UserCreatedHook {
	return func(ctx context.Context, user *domain.User) error {
		if err := preferences.Create(ctx, domain.DefaultNotificationPreference(user.ID)); err != nil {
			return fmt.Errorf("failed to create notification preference: %w", err)
		}
		return nil
	}
}

// SignupOtpHook issues the signup verification code and mails it.
func SignupOtpHook(otps *OtpService) UserCreatedHook {
	return func(ctx context.Context, user *domain.User) error {
		if _, err := otps.CreateAndSend(ctx, user, domain.OtpSignup, nil); err != nil {
			return fmt.Errorf("failed to send signup otp: %w", err)
		}
		return nil
	}
}

// runUserCreatedHooks executes each hook in order, logging failures without
// aborting the pipeline. Registration already committed; a failed side effect
// must not orphan the account.
func runUserCreatedHooks(ctx context.Context, hooks []UserCreatedHook, user *domain.User, logger *zap.Logger) {
	for _, hook := range hooks {
		if err := hook(ctx, user); err != nil {
			logger.Error("user creation hook failed",
				zap.String("user_id", user.ID),
				zap.Error(err))
		}
	}
}
