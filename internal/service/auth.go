package service

import (
	"context"

	"story-reader/internal/models"

	"github.com/google/uuid"
)

// AuthService определяет контракт сервиса аутентификации.
type AuthService interface {
	// Register creates a new user account.
	Register(ctx context.Context, email, password string) (*models.User, error)

	// Login authenticates a user by email and returns a token pair.
	Login(ctx context.Context, email, password string) (*models.TokenDetails, error)

	// Logout revokes the access and refresh tokens.
	Logout(ctx context.Context, userID uuid.UUID, accessUUID, refreshUUID string) error

	// Refresh issues a new token pair based on a valid refresh token.
	Refresh(ctx context.Context, refreshToken string) (*models.TokenDetails, error)

	// VerifyAccessToken parses and validates an access token string.
	VerifyAccessToken(ctx context.Context, tokenString string) (*models.Claims, error)
}
