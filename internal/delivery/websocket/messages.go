package websocket

import (
	"github.com/google/uuid"

	"story-reader/internal/playback"
)

// Типы входящих сообщений (браузер -> сервер).
const (
	ClientMsgPlay     = "play"
	ClientMsgStop     = "stop"
	ClientMsgBoundary = "boundary"
	ClientMsgEnd      = "end"
)

// Типы исходящих сообщений (сервер -> браузер).
const (
	ServerMsgSpeak  = "speak"
	ServerMsgPause  = "pause"
	ServerMsgResume = "resume"
	ServerMsgCancel = "cancel"
	ServerMsgNotice = "notice"
	ServerMsgState  = "state"
)

// ClientMessage — сообщение от браузера: намерение пользователя или
// событие речевого движка. Набор заполненных полей зависит от Type.
type ClientMessage struct {
	Type        string    `json:"type"`
	StoryID     uuid.UUID `json:"story_id,omitempty"`
	UtteranceID int64     `json:"utterance_id,omitempty"`
	CharIndex   int       `json:"char_index,omitempty"`
}

// ServerMessage — команда движку или уведомление пользователю.
type ServerMessage struct {
	Type      string              `json:"type"`
	Utterance *playback.Utterance `json:"utterance,omitempty"`
	Message   string              `json:"message,omitempty"`
	State     string              `json:"state,omitempty"`
	StoryID   string              `json:"story_id,omitempty"`
	Title     string              `json:"title,omitempty"`
}
