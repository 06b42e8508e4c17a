package interfaces

import (
	"context"

	"story-reader/internal/models"

	"github.com/google/uuid"
)

// StoryRepository defines the interface for story persistence.
type StoryRepository interface {
	// Create inserts a new story and fills in the generated ID and timestamps.
	Create(ctx context.Context, story *models.Story) error

	// GetByID retrieves a story owned by the given user.
	// Returns models.ErrStoryNotFound if no such story exists for this owner.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Story, error)

	// ListByUserID returns all stories of the user, newest created_at first.
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Story, error)

	// Update overwrites title and content of a story owned by the given user
	// and refreshes updated_at. Returns models.ErrStoryNotFound if the story
	// does not exist or belongs to another user.
	Update(ctx context.Context, story *models.Story) error

	// Delete removes a story owned by the given user.
	// Returns models.ErrStoryNotFound if nothing was deleted.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}
