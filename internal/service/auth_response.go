package service

import (
	"context"
	"fmt"

	"github.com/prperemyshlev/account-service/internal/domain"
	"github.com/prperemyshlev/account-service/internal/dto"
)

// AuthResponseWithRefreshToken contains auth response and refresh token
type AuthResponseWithRefreshToken struct {
	AuthResponse *dto.AuthResponse
	RefreshToken string
	ExpiresIn    int // Refresh token expiry in seconds
}

// issueTrackedPair issues an access/refresh pair sharing one jti and records
// it with the tracker before handing it out. A pair that cannot be tracked is
// never released.
func (s *authService) issueTrackedPair(ctx context.Context, user *domain.User) (*AuthResponseWithRefreshToken, error) {
	pair, err := s.codec.IssuePair(user)
	if err != nil {
		return nil, err
	}

	if _, err := s.tracker.Track(ctx, user.ID, pair, &pair.RefreshClaims); err != nil {
		return nil, fmt.Errorf("failed to record issued pair: %w", err)
	}

	return &AuthResponseWithRefreshToken{
		AuthResponse: &dto.AuthResponse{
			AccessToken: pair.AccessToken,
			TokenType:   "Bearer",
			ExpiresIn:   s.codec.AccessTokenExpirySeconds(),
			User: dto.UserInfo{
				ID:       user.ID,
				Email:    user.Email,
				FullName: user.FullName,
				Role:     string(user.Role),
			},
		},
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(s.codec.RefreshTokenExpiry().Seconds()),
	}, nil
}
