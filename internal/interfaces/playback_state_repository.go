package interfaces

import (
	"context"

	"story-reader/internal/models"

	"github.com/google/uuid"
)

// PlaybackStateRepository defines the interface for playback progress persistence.
// Записи идентифицируются парой (user_id, story_id) — не более одной на пару.
type PlaybackStateRepository interface {
	// Get retrieves the playback state for the (user, story) pair.
	// Returns models.ErrPlaybackStateNotFound if the story was never played.
	Get(ctx context.Context, userID, storyID uuid.UUID) (*models.PlaybackState, error)

	// Upsert creates the record or overwrites the existing one. Writes are
	// ordered by (Epoch, Seq): a Seq 0 write starts a new session and applies
	// when its Epoch is not older than the stored one; any other write applies
	// only within the stored Epoch with a non-decreasing Seq. Late writes from
	// a superseded session are dropped.
	Upsert(ctx context.Context, state *models.PlaybackState) error

	// Delete removes the playback state for the (user, story) pair.
	// Deleting a missing record is not an error.
	Delete(ctx context.Context, userID, storyID uuid.UUID) error

	// DeleteByStoryID removes playback states of all users for the story.
	// Used by the cleanup consumer after a story is deleted.
	DeleteByStoryID(ctx context.Context, storyID uuid.UUID) (int64, error)
}
