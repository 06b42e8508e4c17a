package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// StoryEventPublisher публикует события жизненного цикла историй в брокер сообщений.
type StoryEventPublisher interface {
	// PublishStoryDeleted отправляет ID удаленной истории в очередь очистки.
	PublishStoryDeleted(ctx context.Context, storyID uuid.UUID) error
}
