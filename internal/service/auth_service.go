package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
	"github.com/prperemyshlev/account-service/internal/repository"
	"github.com/prperemyshlev/account-service/internal/utils"
)

// authService implements AuthService interface
type authService struct {
	userRepo   repository.UserRepository
	codec      *utils.TokenCodec
	tracker    *TokenTracker
	hooks      []UserCreatedHook
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	codec *utils.TokenCodec,
	tracker *TokenTracker,
	hooks []UserCreatedHook,
	bcryptCost int,
	logger *zap.Logger,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		codec:      codec,
		tracker:    tracker,
		hooks:      hooks,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register registers a new user. The account starts inactive and unverified;
// the signup hook mails a verification code that unlocks it.
func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if !utils.ValidateEmail(req.Email) {
		return nil, fmt.Errorf("invalid email format")
	}
	if !utils.ValidatePassword(req.Password) {
		return nil, fmt.Errorf("password must be at least 8 characters long and contain uppercase, lowercase, and number")
	}

	role, err := domain.ParseUserRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("role %s cannot self-register", role)
	}

	_, err = s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err == nil {
		return nil, fmt.Errorf("user with email %s already exists", req.Email)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Email:        utils.SanitizeEmail(req.Email),
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		PhoneNumber:  req.PhoneNumber,
		Role:         role,
		IsActive:     false,
		IsVerified:   false,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, fmt.Errorf("user with email %s already exists", req.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	runUserCreatedHooks(ctx, s.hooks, user, s.logger)

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return userResponse(user), nil
}

// Login authenticates a user and issues a tracked token pair
func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*AuthResponseWithRefreshToken, error) {
	user, err := s.userRepo.GetByEmail(ctx, utils.SanitizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if !user.IsVerified {
		return nil, ErrAccountUnverified
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	return s.issueTrackedPair(ctx, user)
}

// RefreshAccessToken exchanges a live refresh token for a new access token.
// The refresh token itself stays valid; the new access token carries a fresh
// jti and is not linked to the tracked pair.
func (s *authService) RefreshAccessToken(ctx context.Context, refreshToken string) (*dto.AccessTokenResponse, error) {
	claims, err := s.codec.Decode(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	accessToken, _, err := s.codec.IssueAccess(user)
	if err != nil {
		return nil, err
	}

	return &dto.AccessTokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.codec.AccessTokenExpirySeconds(),
	}, nil
}

// Logout revokes the token pair identified by the refresh token's jti
func (s *authService) Logout(ctx context.Context, userID, refreshToken string) error {
	claims, err := s.codec.Decode(ctx, refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}
	if claims.UserID != userID {
		return ErrTokenNotTracked
	}

	if err := s.tracker.RevokeByJTI(ctx, userID, claims.JTI); err != nil {
		return err
	}

	s.logger.Info("user logged out", zap.String("user_id", userID))
	return nil
}

// LogoutAll revokes every active session of the user and returns the count
func (s *authService) LogoutAll(ctx context.Context, userID string) (int, error) {
	revoked, err := s.tracker.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("all sessions revoked",
		zap.String("user_id", userID),
		zap.Int("count", revoked))
	return revoked, nil
}

// GetUser gets user information
func (s *authService) GetUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return userResponse(user), nil
}

// ValidateAccessToken validates an access token and returns its claims
func (s *authService) ValidateAccessToken(ctx context.Context, token string) (*domain.Claims, error) {
	claims, err := s.codec.Decode(ctx, token, domain.TokenTypeAccess)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

func userResponse(user *domain.User) *dto.UserResponse {
	response := &dto.UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		PhoneNumber: user.PhoneNumber,
		Role:        string(user.Role),
		IsActive:    user.IsActive,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   user.UpdatedAt.Format(time.RFC3339),
	}
	if user.LastLoginAt != nil {
		lastLogin := user.LastLoginAt.Format(time.RFC3339)
		response.LastLoginAt = &lastLogin
	}
	return response
}
