package models

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackState хранит прогресс прослушивания одной истории одним пользователем.
// Составной ключ (UserID, StoryID) — не более одной записи на пару.
type PlaybackState struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	StoryID   uuid.UUID `db:"story_id" json:"story_id"`
	Progress  int       `db:"progress" json:"progress"` // Символьное смещение, 0 <= progress <= длина текста
	Epoch     int64     `db:"epoch" json:"-"`           // Поколение сессии воспроизведения, растет с каждой новой сессией
	Seq       int64     `db:"seq" json:"-"`             // Порядковый номер записи внутри сессии воспроизведения
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
