package websocket

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"story-reader/internal/models"
	"story-reader/internal/playback"
)

func newTestClient(buffer int) *Client {
	return &Client{
		userID: uuid.New(),
		send:   make(chan []byte, buffer),
		logger: zap.NewNop(),
	}
}

func TestClient_SpeakEncodesUtterance(t *testing.T) {
	client := newTestClient(1)
	utt := playback.Utterance{ID: 7, StoryID: uuid.New(), Text: "читаем с середины"}

	require.NoError(t, client.Speak(utt))

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(<-client.send, &msg))
	assert.Equal(t, ServerMsgSpeak, msg.Type)
	require.NotNil(t, msg.Utterance)
	assert.Equal(t, utt, *msg.Utterance)
}

func TestClient_EnqueueFailsWhenQueueFull(t *testing.T) {
	client := newTestClient(1)
	require.NoError(t, client.Pause())

	// Очередь заполнена: команда отбрасывается, а не блокирует контроллер.
	err := client.Resume()
	assert.ErrorIs(t, err, errSendQueueFull)
}

func TestSessionRegistry_SecondConnectionEvictsFirst(t *testing.T) {
	registry := NewSessionRegistry(zap.NewNop())
	userID := uuid.New()

	firstCancelled := false
	firstID := registry.Register(userID, func() { firstCancelled = true })
	require.Equal(t, 1, registry.ActiveSessions())

	secondCancelled := false
	secondID := registry.Register(userID, func() { secondCancelled = true })
	assert.True(t, firstCancelled, "первая сессия вытесняется второй")
	assert.False(t, secondCancelled)
	assert.Equal(t, 1, registry.ActiveSessions(), "у пользователя не более одной сессии")

	// Запоздавший Unregister вытесненной сессии не трогает новую
	registry.Unregister(userID, firstID)
	assert.Equal(t, 1, registry.ActiveSessions())

	registry.Unregister(userID, secondID)
	assert.Equal(t, 0, registry.ActiveSessions())
}

func TestClient_PushStateIncludesStory(t *testing.T) {
	client := newTestClient(1)
	story := &models.Story{ID: uuid.New(), Title: "Вечерняя история"}

	client.PushState(playback.StatePlaying, story)

	var msg ServerMessage
	require.NoError(t, json.Unmarshal(<-client.send, &msg))
	assert.Equal(t, ServerMsgState, msg.Type)
	assert.Equal(t, "playing", msg.State)
	assert.Equal(t, story.ID.String(), msg.StoryID)
	assert.Equal(t, "Вечерняя история", msg.Title)
}
