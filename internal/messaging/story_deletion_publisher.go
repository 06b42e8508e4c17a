package messaging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"story-reader/internal/interfaces"
)

// QueueStoryDeletions — очередь идентификаторов удаленных историй.
// Консьюмер подчищает по ним осиротевшие записи прогресса.
const QueueStoryDeletions = "story_deletions"

// StoryDeletionPublisher публикует события удаления историй в RabbitMQ.
type StoryDeletionPublisher struct {
	ch     *amqp091.Channel
	logger *zap.Logger
}

var _ interfaces.StoryEventPublisher = (*StoryDeletionPublisher)(nil)

// NewStoryDeletionPublisher открывает канал и объявляет durable-очередь.
func NewStoryDeletionPublisher(conn *amqp091.Connection, logger *zap.Logger) (*StoryDeletionPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		QueueStoryDeletions,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", QueueStoryDeletions, err)
	}

	return &StoryDeletionPublisher{
		ch:     ch,
		logger: logger.Named("StoryDeletionPublisher"),
	}, nil
}

// PublishStoryDeleted отправляет ID удаленной истории в очередь.
// Сообщение persistent: переживает рестарт брокера вместе с очередью.
func (p *StoryDeletionPublisher) PublishStoryDeleted(ctx context.Context, storyID uuid.UUID) error {
	err := p.ch.PublishWithContext(ctx,
		"",                  // exchange (default)
		QueueStoryDeletions, // routing key
		false,               // mandatory
		false,               // immediate
		amqp091.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp091.Persistent,
			Body:         []byte(storyID.String()),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish story deletion: %w", err)
	}

	p.logger.Debug("Story deletion published", zap.String("story_id", storyID.String()))
	return nil
}

// Close закрывает канал публикации.
func (p *StoryDeletionPublisher) Close() error {
	if p.ch == nil {
		return nil
	}
	return p.ch.Close()
}
