package models

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Story represents a user-owned text record with title and body content.
type Story struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContentLength возвращает длину содержимого в символах (рунах).
// Прогресс воспроизведения измеряется в символах, а не в байтах.
func (s *Story) ContentLength() int {
	return utf8.RuneCountInString(s.Content)
}

// ContentFrom возвращает содержимое начиная с указанного символьного смещения.
// Смещение за пределами текста дает пустую строку.
func (s *Story) ContentFrom(offset int) string {
	if offset <= 0 {
		return s.Content
	}
	runes := []rune(s.Content)
	if offset >= len(runes) {
		return ""
	}
	return string(runes[offset:])
}
