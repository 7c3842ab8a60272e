package businessflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/amirphl/orochi-outreach/app/dto"
	"github.com/amirphl/orochi-outreach/app/services"
)

// AuthFlow handles session operations for tokens issued by the identity provider
type AuthFlow interface {
	Logout(ctx context.Context, token string, metadata *ClientMetadata) (*dto.LogoutResponse, error)
}

// AuthFlowImpl implements the auth flow
type AuthFlowImpl struct {
	tokenService services.TokenService
	logger       *zap.Logger
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(tokenService services.TokenService, logger *zap.Logger) AuthFlow {
	return &AuthFlowImpl{tokenService: tokenService, logger: logger}
}

// Logout revokes the presented token until it would have expired
func (s *AuthFlowImpl) Logout(ctx context.Context, token string, metadata *ClientMetadata) (*dto.LogoutResponse, error) {
	if token == "" {
		return nil, NewBusinessError("MISSING_ACCESS_TOKEN", "Access token is required", ErrTokenRequired)
	}
	if err := s.tokenService.RevokeToken(ctx, token); err != nil {
		s.logger.Error("token revocation failed", append(metadata.fields(), zap.Error(err))...)
		return nil, NewBusinessError("LOGOUT_FAILED", "Logout failed", err)
	}
	s.logger.Info("user logged out", metadata.fields()...)
	return &dto.LogoutResponse{Message: "Logged out successfully"}, nil
}
