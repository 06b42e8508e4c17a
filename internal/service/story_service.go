package service

import (
	"context"
	"fmt"
	"strings"

	"story-reader/internal/interfaces"
	"story-reader/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StoryService управляет историями пользователя: CRUD плюс публикация
// события удаления для очистки прогресса воспроизведения.
type StoryService struct {
	repo      interfaces.StoryRepository
	publisher interfaces.StoryEventPublisher
	logger    *zap.Logger
}

// NewStoryService creates a new StoryService.
// publisher может быть nil — тогда события удаления не публикуются.
func NewStoryService(repo interfaces.StoryRepository, publisher interfaces.StoryEventPublisher, logger *zap.Logger) *StoryService {
	return &StoryService{
		repo:      repo,
		publisher: publisher,
		logger:    logger.Named("StoryService"),
	}
}

// List returns all stories of the user, newest first.
func (s *StoryService) List(ctx context.Context, userID uuid.UUID) ([]models.Story, error) {
	return s.repo.ListByUserID(ctx, userID)
}

// Get returns a single story owned by the user.
func (s *StoryService) Get(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	return s.repo.GetByID(ctx, storyID, userID)
}

// Create validates and stores a new story.
func (s *StoryService) Create(ctx context.Context, userID uuid.UUID, title, content string) (*models.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty: %w", models.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content must not be empty: %w", models.ErrInvalidInput)
	}

	story := &models.Story{
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := s.repo.Create(ctx, story); err != nil {
		return nil, err
	}

	s.logger.Info("Story created", zap.Stringer("storyID", story.ID), zap.Stringer("userID", userID))
	return story, nil
}

// Update validates and overwrites title and content of an owned story.
func (s *StoryService) Update(ctx context.Context, userID, storyID uuid.UUID, title, content string) (*models.Story, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title must not be empty: %w", models.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content must not be empty: %w", models.ErrInvalidInput)
	}

	story := &models.Story{
		ID:      storyID,
		UserID:  userID,
		Title:   title,
		Content: content,
	}
	if err := s.repo.Update(ctx, story); err != nil {
		return nil, err
	}

	s.logger.Info("Story updated", zap.Stringer("storyID", storyID), zap.Stringer("userID", userID))
	return story, nil
}

// Delete removes an owned story and schedules cleanup of its playback states.
func (s *StoryService) Delete(ctx context.Context, userID, storyID uuid.UUID) error {
	if err := s.repo.Delete(ctx, storyID, userID); err != nil {
		return err
	}

	// Прогресс воспроизведения чистим асинхронно через очередь.
	// Неудача публикации не откатывает удаление: осиротевшие записи допустимы.
	if s.publisher != nil {
		if err := s.publisher.PublishStoryDeleted(ctx, storyID); err != nil {
			s.logger.Error("Failed to publish story deletion event, playback states may be orphaned",
				zap.Error(err), zap.Stringer("storyID", storyID))
		}
	}

	s.logger.Info("Story deleted", zap.Stringer("storyID", storyID), zap.Stringer("userID", userID))
	return nil
}
