package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-reader/internal/models"
)

type fakeStateRepo struct {
	states map[[2]uuid.UUID]*models.PlaybackState
	getErr error
	upErr  error
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: make(map[[2]uuid.UUID]*models.PlaybackState)}
}

func (r *fakeStateRepo) Get(_ context.Context, userID, storyID uuid.UUID) (*models.PlaybackState, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	state, ok := r.states[[2]uuid.UUID{userID, storyID}]
	if !ok {
		return nil, models.ErrPlaybackStateNotFound
	}
	return state, nil
}

func (r *fakeStateRepo) Upsert(_ context.Context, state *models.PlaybackState) error {
	if r.upErr != nil {
		return r.upErr
	}
	r.states[[2]uuid.UUID{state.UserID, state.StoryID}] = state
	return nil
}

func (r *fakeStateRepo) Delete(_ context.Context, userID, storyID uuid.UUID) error {
	delete(r.states, [2]uuid.UUID{userID, storyID})
	return nil
}

func (r *fakeStateRepo) DeleteByStoryID(_ context.Context, storyID uuid.UUID) (int64, error) {
	var removed int64
	for key := range r.states {
		if key[1] == storyID {
			delete(r.states, key)
			removed++
		}
	}
	return removed, nil
}

func TestProgressTracker_NeverPlayedIsZeroNotError(t *testing.T) {
	tracker := NewProgressTracker(newFakeStateRepo(), zap.NewNop())

	progress, err := tracker.Progress(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err, "отсутствие записи не является ошибкой")
	assert.Equal(t, 0, progress)
}

func TestProgressTracker_StoreErrorReturnsZeroAndError(t *testing.T) {
	repo := newFakeStateRepo()
	repo.getErr = errors.New("connection refused")
	tracker := NewProgressTracker(repo, zap.NewNop())

	progress, err := tracker.Progress(context.Background(), uuid.New(), uuid.New())
	assert.Error(t, err, "сбой хранилища отличим от отсутствия записи")
	assert.Equal(t, 0, progress)
}

func TestProgressTracker_SaveAndReadBack(t *testing.T) {
	repo := newFakeStateRepo()
	tracker := NewProgressTracker(repo, zap.NewNop())
	userID, storyID := uuid.New(), uuid.New()

	require.NoError(t, tracker.SaveProgress(context.Background(), userID, storyID, 42, 1, 7))

	progress, err := tracker.Progress(context.Background(), userID, storyID)
	require.NoError(t, err)
	assert.Equal(t, 42, progress)
}

func TestProgressTracker_NegativeOffsetClamped(t *testing.T) {
	repo := newFakeStateRepo()
	tracker := NewProgressTracker(repo, zap.NewNop())
	userID, storyID := uuid.New(), uuid.New()

	require.NoError(t, tracker.SaveProgress(context.Background(), userID, storyID, -5, 0, 1))

	progress, err := tracker.Progress(context.Background(), userID, storyID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress)
}
