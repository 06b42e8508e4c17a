package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"story-reader/internal/models"
	"story-reader/internal/playback"
	"story-reader/internal/service"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер сообщения, разрешенный от клиента.
	maxMessageSize = 1024
	// Размер очереди исходящих сообщений.
	sendBufferSize = 256
)

var errSendQueueFull = errors.New("send queue is full")

// Client — одно WebSocket-соединение пользователя. Служит транспортом
// команд речевому движку браузера и событий от него, поэтому реализует
// playback.Engine.
type Client struct {
	userID     uuid.UUID
	conn       *websocket.Conn
	send       chan []byte
	controller *playback.Controller
	stories    *service.StoryService
	logger     *zap.Logger
}

var _ playback.Engine = (*Client)(nil)

// Speak передает движку новый utterance. Браузер сам отменяет
// предыдущий перед запуском нового.
func (c *Client) Speak(u playback.Utterance) error {
	return c.enqueue(ServerMessage{Type: ServerMsgSpeak, Utterance: &u})
}

func (c *Client) Pause() error {
	return c.enqueue(ServerMessage{Type: ServerMsgPause})
}

func (c *Client) Resume() error {
	return c.enqueue(ServerMessage{Type: ServerMsgResume})
}

func (c *Client) Cancel() error {
	return c.enqueue(ServerMessage{Type: ServerMsgCancel})
}

// Notify отправляет пользователю короткое уведомление.
func (c *Client) Notify(message string) {
	if err := c.enqueue(ServerMessage{Type: ServerMsgNotice, Message: message}); err != nil {
		c.logger.Warn("Failed to deliver notice", zap.Error(err))
	}
}

// PushState отправляет клиенту наблюдаемое состояние воспроизведения.
func (c *Client) PushState(state playback.State, story *models.Story) {
	msg := ServerMessage{Type: ServerMsgState, State: state.String()}
	if story != nil {
		msg.StoryID = story.ID.String()
		msg.Title = story.Title
	}
	if err := c.enqueue(msg); err != nil {
		c.logger.Warn("Failed to deliver state update", zap.Error(err))
	}
}

func (c *Client) enqueue(msg ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		// Клиент не успевает читать: не блокируем цикл контроллера.
		return errSendQueueFull
	}
}

// readPump читает сообщения браузера и транслирует их контроллеру.
// Работает в горутине запроса; выход из цикла завершает сессию.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			} else {
				c.logger.Info("WebSocket connection closed")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("Malformed client message ignored", zap.Error(err))
			continue
		}
		c.dispatch(ctx, msg)
	}
}

func (c *Client) dispatch(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case ClientMsgPlay:
		story, err := c.stories.Get(ctx, c.userID, msg.StoryID)
		if err != nil {
			if errors.Is(err, models.ErrStoryNotFound) {
				c.Notify("Story not found")
			} else {
				c.logger.Error("Failed to load story for playback",
					zap.String("story_id", msg.StoryID.String()), zap.Error(err))
				c.Notify("Failed to load story")
			}
			return
		}
		c.controller.RequestPlay(*story)
	case ClientMsgStop:
		c.controller.RequestStop()
	case ClientMsgBoundary:
		c.controller.HandleBoundary(msg.UtteranceID, msg.CharIndex)
	case ClientMsgEnd:
		c.controller.HandleEnd(msg.UtteranceID)
	default:
		c.logger.Warn("Unknown client message type ignored", zap.String("type", msg.Type))
	}
}

// writePump откачивает сообщения из канала send в соединение и шлет пинги.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("Failed to write message", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
