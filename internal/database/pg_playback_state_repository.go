package database

import (
	"context"
	"errors"
	"time"

	"story-reader/internal/interfaces"
	"story-reader/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.PlaybackStateRepository = (*pgPlaybackStateRepository)(nil)

type pgPlaybackStateRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgPlaybackStateRepository creates a new repository instance.
func NewPgPlaybackStateRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.PlaybackStateRepository {
	return &pgPlaybackStateRepository{
		db:     db,
		logger: logger.Named("PgPlaybackStateRepo"),
	}
}

const getPlaybackStateQuery = `
SELECT user_id, story_id, progress, epoch, seq, updated_at
FROM playback_states
WHERE user_id = $1 AND story_id = $2`

// Upsert по ключу (user_id, story_id). Каждая сессия воспроизведения несет
// монотонно растущий epoch; записи внутри сессии нумеруются монотонным seq.
// seq = 0 — стартовая запись сессии, применяется если ее epoch не старше
// хранимого. Остальные записи применяются только внутри своего epoch и
// только с неубывающим seq: запоздавшая запись завершенной сессии не
// затирает прогресс новой.
const upsertPlaybackStateQuery = `
INSERT INTO playback_states (user_id, story_id, progress, epoch, seq, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, story_id) DO UPDATE SET
    progress   = EXCLUDED.progress,
    epoch      = EXCLUDED.epoch,
    seq        = EXCLUDED.seq,
    updated_at = EXCLUDED.updated_at
WHERE (EXCLUDED.seq = 0 AND EXCLUDED.epoch >= playback_states.epoch)
   OR (playback_states.epoch = EXCLUDED.epoch AND playback_states.seq <= EXCLUDED.seq)`

const deletePlaybackStateQuery = `
DELETE FROM playback_states
WHERE user_id = $1 AND story_id = $2`

const deletePlaybackStatesByStoryQuery = `
DELETE FROM playback_states
WHERE story_id = $1`

// Get retrieves the playback state for the (user, story) pair.
func (r *pgPlaybackStateRepository) Get(ctx context.Context, userID, storyID uuid.UUID) (*models.PlaybackState, error) {
	state := &models.PlaybackState{}
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID)}

	err := r.db.QueryRow(ctx, getPlaybackStateQuery, userID, storyID).Scan(
		&state.UserID,
		&state.StoryID,
		&state.Progress,
		&state.Epoch,
		&state.Seq,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Отсутствие записи — это "никогда не слушал", не ошибка хранилища
			return nil, models.ErrPlaybackStateNotFound
		}
		r.logger.Error("Failed to get playback state", append(logFields, zap.Error(err))...)
		return nil, err
	}

	r.logger.Debug("Retrieved playback state", append(logFields, zap.Int("progress", state.Progress))...)
	return state, nil
}

// Upsert creates the record or overwrites the existing one, guarded by (epoch, seq).
func (r *pgPlaybackStateRepository) Upsert(ctx context.Context, state *models.PlaybackState) error {
	state.UpdatedAt = time.Now()
	logFields := []zap.Field{
		zap.Stringer("userID", state.UserID),
		zap.Stringer("storyID", state.StoryID),
		zap.Int("progress", state.Progress),
		zap.Int64("epoch", state.Epoch),
		zap.Int64("seq", state.Seq),
	}

	cmdTag, err := r.db.Exec(ctx, upsertPlaybackStateQuery,
		state.UserID,
		state.StoryID,
		state.Progress,
		state.Epoch,
		state.Seq,
		state.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert playback state", append(logFields, zap.Error(err))...)
		return err
	}

	if cmdTag.RowsAffected() == 0 {
		// Запись более новой сессии (или с большим seq) уже есть —
		// запоздавший апдейт отброшен
		r.logger.Debug("Stale playback write dropped by epoch/seq guard", logFields...)
		return nil
	}

	r.logger.Debug("Upserted playback state", logFields...)
	return nil
}

// Delete removes the playback state for the (user, story) pair.
func (r *pgPlaybackStateRepository) Delete(ctx context.Context, userID, storyID uuid.UUID) error {
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID)}
	cmdTag, err := r.db.Exec(ctx, deletePlaybackStateQuery, userID, storyID)
	if err != nil {
		r.logger.Error("Failed to delete playback state", append(logFields, zap.Error(err))...)
		return err
	}

	if cmdTag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to delete non-existent playback state", logFields...)
		// Возвращаем nil, так как цель (отсутствие прогресса) достигнута
	} else {
		r.logger.Info("Deleted playback state", logFields...)
	}

	return nil
}

// DeleteByStoryID removes playback states of all users for the story.
func (r *pgPlaybackStateRepository) DeleteByStoryID(ctx context.Context, storyID uuid.UUID) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, deletePlaybackStatesByStoryQuery, storyID)
	if err != nil {
		r.logger.Error("Failed to delete playback states by story", zap.Error(err), zap.Stringer("storyID", storyID))
		return 0, err
	}
	deleted := cmdTag.RowsAffected()
	r.logger.Info("Deleted playback states for story", zap.Stringer("storyID", storyID), zap.Int64("deleted", deleted))
	return deleted, nil
}
