package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"story-reader/internal/interfaces"
)

// PlaybackCleanupConsumer слушает очередь удаленных историй и подчищает
// осиротевшие записи прогресса. Записи прогресса не связаны с историями
// внешним ключом, поэтому чистка идет асинхронно через очередь.
type PlaybackCleanupConsumer struct {
	conn        *amqp091.Connection
	ch          *amqp091.Channel
	states      interfaces.PlaybackStateRepository
	logger      *zap.Logger
	queueName   string
	consumerTag string
	done        chan error
}

// NewPlaybackCleanupConsumer создает нового консьюмера.
func NewPlaybackCleanupConsumer(
	conn *amqp091.Connection,
	states interfaces.PlaybackStateRepository,
	logger *zap.Logger,
) (*PlaybackCleanupConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	if states == nil {
		return nil, fmt.Errorf("PlaybackStateRepository is nil")
	}

	consumerTag := fmt.Sprintf("playback_cleanup_consumer_%d", time.Now().UnixNano())

	consumer := &PlaybackCleanupConsumer{
		conn:        conn,
		states:      states,
		logger:      logger.Named("PlaybackCleanupConsumer").With(zap.String("consumerTag", consumerTag), zap.String("queue", QueueStoryDeletions)),
		queueName:   QueueStoryDeletions,
		consumerTag: consumerTag,
		done:        make(chan error),
	}

	if err := consumer.setupChannelAndQueue(); err != nil {
		return nil, fmt.Errorf("failed to setup channel and queue: %w", err)
	}

	consumer.logger.Info("PlaybackCleanupConsumer инициализирован")
	return consumer, nil
}

// setupChannelAndQueue создает канал и объявляет очередь.
func (c *PlaybackCleanupConsumer) setupChannelAndQueue() error {
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = c.ch.QueueDeclare(
		c.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue '%s': %w", c.queueName, err)
	}

	// Обрабатываем по одному сообщению за раз.
	if err = c.ch.Qos(1, 0, false); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	return nil
}

// StartConsuming запускает получение и обработку сообщений. Блокирует
// до остановки консьюмера или ошибки канала.
func (c *PlaybackCleanupConsumer) StartConsuming() error {
	if c.ch == nil {
		return fmt.Errorf("channel is not initialized")
	}
	c.logger.Info("Начало прослушивания очереди удаленных историй...")

	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // auto-ack: подтверждаем вручную
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		c.logger.Error("Ошибка запуска consumer'а", zap.Error(err))
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go c.handleDeliveries(deliveries)

	go func() {
		notifyClose := make(chan *amqp091.Error)
		c.ch.NotifyClose(notifyClose)
		select {
		case err := <-notifyClose:
			if err != nil {
				c.logger.Error("RabbitMQ channel closed unexpectedly", zap.Error(err))
				c.done <- err
			} else {
				c.done <- nil
			}
		case <-c.done:
		}
	}()

	c.logger.Info("Consumer запущен и ожидает сообщений", zap.String("tag", c.consumerTag))
	return <-c.done
}

// handleDeliveries обрабатывает входящие сообщения.
func (c *PlaybackCleanupConsumer) handleDeliveries(deliveries <-chan amqp091.Delivery) {
	for d := range deliveries {
		log := c.logger.With(zap.Uint64("deliveryTag", d.DeliveryTag))

		storyID, err := uuid.Parse(string(d.Body))
		if err != nil {
			// Мусорное сообщение нет смысла переотправлять.
			log.Warn("Некорректный ID истории в сообщении, отклоняем (Nack)", zap.ByteString("body", d.Body))
			if nackErr := d.Nack(false, false); nackErr != nil {
				log.Error("Ошибка при отклонении (Nack) сообщения", zap.Error(nackErr))
			}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		removed, err := c.states.DeleteByStoryID(ctx, storyID)
		cancel()

		if err != nil {
			log.Error("Ошибка очистки записей прогресса, сообщение будет переотправлено (Nack, requeue)",
				zap.String("story_id", storyID.String()), zap.Error(err))
			if nackErr := d.Nack(false, true); nackErr != nil {
				log.Error("Ошибка при отклонении (Nack) сообщения", zap.Error(nackErr))
			}
			time.Sleep(1 * time.Second)
			continue
		}

		log.Info("Записи прогресса удаленной истории очищены",
			zap.String("story_id", storyID.String()), zap.Int64("removed", removed))
		if ackErr := d.Ack(false); ackErr != nil {
			log.Error("Ошибка при подтверждении (Ack) сообщения", zap.Error(ackErr))
		}
	}
	c.logger.Info("Канал deliveries закрыт, обработка сообщений завершена.")
	select {
	case c.done <- nil:
	default:
	}
}

// Stop корректно останавливает консьюмера.
func (c *PlaybackCleanupConsumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	c.logger.Info("Остановка PlaybackCleanupConsumer...")

	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("Ошибка при отмене consumer'а", zap.String("tag", c.consumerTag), zap.Error(err))
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Error("Ошибка при закрытии канала RabbitMQ", zap.Error(err))
	}

	select {
	case c.done <- nil:
	default:
	}

	c.logger.Info("PlaybackCleanupConsumer остановлен.")
	return nil
}
