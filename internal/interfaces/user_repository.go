package interfaces

import (
	"context"

	"story-reader/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence (e.g., PostgreSQL).
type UserRepository interface {
	// CreateUser inserts a new user into the database.
	// It should handle potential errors like duplicate emails.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user by their ID.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetUserByEmail retrieves a user by their email address.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
