package service

import (
	"context"
	"errors"

	"story-reader/internal/interfaces"
	"story-reader/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProgressTracker — фасад над PlaybackStateRepository.
// Отсутствие записи трактуется как "никогда не слушал" (прогресс 0),
// а не как ошибка хранилища.
type ProgressTracker struct {
	repo   interfaces.PlaybackStateRepository
	logger *zap.Logger
}

// NewProgressTracker creates a new ProgressTracker.
func NewProgressTracker(repo interfaces.PlaybackStateRepository, logger *zap.Logger) *ProgressTracker {
	return &ProgressTracker{
		repo:   repo,
		logger: logger.Named("ProgressTracker"),
	}
}

// Progress returns the saved character offset for the (user, story) pair.
// Для пары без записи возвращает 0 без ошибки. При ошибке хранилища
// возвращает 0 и саму ошибку: вызывающий начинает с начала и показывает
// нефатальное уведомление.
func (t *ProgressTracker) Progress(ctx context.Context, userID, storyID uuid.UUID) (int, error) {
	state, err := t.repo.Get(ctx, userID, storyID)
	if err != nil {
		if errors.Is(err, models.ErrPlaybackStateNotFound) {
			return 0, nil
		}
		t.logger.Error("Failed to load playback progress, falling back to 0",
			zap.Error(err), zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))
		return 0, err
	}
	if state.Progress < 0 {
		return 0, nil
	}
	return state.Progress, nil
}

// SaveProgress upserts the progress record keyed by (user, story).
// Пара (epoch, seq) упорядочивает конкурирующие записи в хранилище.
func (t *ProgressTracker) SaveProgress(ctx context.Context, userID, storyID uuid.UUID, offset int, seq, epoch int64) error {
	if offset < 0 {
		offset = 0
	}
	return t.repo.Upsert(ctx, &models.PlaybackState{
		UserID:   userID,
		StoryID:  storyID,
		Progress: offset,
		Epoch:    epoch,
		Seq:      seq,
	})
}
