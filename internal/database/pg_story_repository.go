package database

import (
	"context"
	"errors"
	"fmt"

	"story-reader/internal/interfaces"
	"story-reader/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     interfaces.DBTX
	logger *zap.Logger
}

// NewPgStoryRepository creates a new PostgreSQL-backed StoryRepository.
func NewPgStoryRepository(db interfaces.DBTX, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

const storyFields = `id, user_id, title, content, created_at, updated_at`

const createStoryQuery = `
INSERT INTO stories (user_id, title, content)
VALUES ($1, $2, $3)
RETURNING id, created_at, updated_at`

const getStoryQuery = `
SELECT ` + storyFields + ` FROM stories WHERE id = $1 AND user_id = $2`

// Список всегда от новых к старым — порядок отображения в клиенте.
const listStoriesQuery = `
SELECT ` + storyFields + ` FROM stories WHERE user_id = $1 ORDER BY created_at DESC`

const updateStoryQuery = `
UPDATE stories SET title = $3, content = $4, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING updated_at`

const deleteStoryQuery = `
DELETE FROM stories WHERE id = $1 AND user_id = $2`

// Create inserts a new story and fills in the generated fields.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	logFields := []zap.Field{zap.Stringer("userID", story.UserID), zap.String("title", story.Title)}
	err := r.db.QueryRow(ctx, createStoryQuery, story.UserID, story.Title, story.Content).
		Scan(&story.ID, &story.CreatedAt, &story.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create story in postgres: %w", err)
	}
	r.logger.Info("Story created", append(logFields, zap.Stringer("storyID", story.ID))...)
	return nil
}

// GetByID retrieves a story owned by the given user.
func (r *pgStoryRepository) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	err := r.db.QueryRow(ctx, getStoryQuery, id, userID).Scan(
		&story.ID, &story.UserID, &story.Title, &story.Content, &story.CreatedAt, &story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.Stringer("storyID", id), zap.Stringer("userID", userID))
		return nil, fmt.Errorf("failed to get story from postgres: %w", err)
	}
	return story, nil
}

// ListByUserID returns all stories of the user, newest first.
func (r *pgStoryRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Story, error) {
	rows, err := r.db.Query(ctx, listStoriesQuery, userID)
	if err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err), zap.Stringer("userID", userID))
		return nil, fmt.Errorf("failed to list stories from postgres: %w", err)
	}
	defer rows.Close()

	stories := make([]models.Story, 0)
	for rows.Next() {
		var s models.Story
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Content, &s.CreatedAt, &s.UpdatedAt); err != nil {
			r.logger.Error("Failed to scan story row", zap.Error(err), zap.Stringer("userID", userID))
			return nil, fmt.Errorf("failed to scan story row: %w", err)
		}
		stories = append(stories, s)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating story rows", zap.Error(err), zap.Stringer("userID", userID))
		return nil, fmt.Errorf("error iterating story rows: %w", err)
	}

	r.logger.Debug("Listed stories", zap.Stringer("userID", userID), zap.Int("count", len(stories)))
	return stories, nil
}

// Update overwrites title and content of a story owned by the given user.
func (r *pgStoryRepository) Update(ctx context.Context, story *models.Story) error {
	logFields := []zap.Field{zap.Stringer("storyID", story.ID), zap.Stringer("userID", story.UserID)}
	err := r.db.QueryRow(ctx, updateStoryQuery, story.ID, story.UserID, story.Title, story.Content).
		Scan(&story.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Либо истории нет, либо она принадлежит другому пользователю
			r.logger.Warn("Attempted to update missing or foreign story", logFields...)
			return models.ErrStoryNotFound
		}
		r.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to update story in postgres: %w", err)
	}
	r.logger.Info("Story updated", logFields...)
	return nil
}

// Delete removes a story owned by the given user.
func (r *pgStoryRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	logFields := []zap.Field{zap.Stringer("storyID", id), zap.Stringer("userID", userID)}
	cmdTag, err := r.db.Exec(ctx, deleteStoryQuery, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to delete story from postgres: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Удаление несуществующей истории — ошибка, о которой сообщаем клиенту
		r.logger.Warn("Attempted to delete non-existent story", logFields...)
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", logFields...)
	return nil
}
