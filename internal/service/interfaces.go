package service

import (
	"context"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/queue"
)

// AuthService defines methods for authentication operations
type AuthService interface {
	// Register creates an inactive account and fires the user-creation hooks.
	// The account stays locked out of login until its signup code is verified.
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*AuthResponseWithRefreshToken, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*dto.AccessTokenResponse, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) (int, error)
	GetUser(ctx context.Context, userID string) (*dto.UserResponse, error)
	ValidateAccessToken(ctx context.Context, token string) (*domain.Claims, error)
}

// JobEnqueuer hands delivery work to the deferred job runner.
// Satisfied by *queue.Producer.
type JobEnqueuer interface {
	EnqueueEmail(ctx context.Context, job queue.EmailJob) error
	EnqueueSMS(ctx context.Context, job queue.SMSJob) error
}

// PushSender delivers a payload to a user's connected sessions.
// Satisfied by *ws.Notifier.
type PushSender interface {
	SendToUser(ctx context.Context, userID string, payload any) (bool, error)
}

// ChannelHandler attempts delivery of one notification over one channel.
// Implementations record the terminal channel status themselves.
type ChannelHandler interface {
	Handle(ctx context.Context, user *domain.User, n *domain.Notification, ch *domain.NotificationChannel) error
}
