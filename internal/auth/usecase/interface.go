package usecase

import (
	"context"

	authdomain "inbox-agent/internal/auth/domain"
	authdto "inbox-agent/internal/auth/dto"
)

// AuthUsecase issues and validates admin API tokens.
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	ValidateToken(tokenString string) (*authdomain.Admin, error)
}

// PushVerifier authenticates the sender of a push notification from its bearer token.
// Failures are *authdomain.AuthError.
type PushVerifier interface {
	Verify(ctx context.Context, bearerToken string) error
}
