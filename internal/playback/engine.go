package playback

import (
	"context"

	"github.com/google/uuid"

	"story-reader/internal/models"
)

// Utterance — один запуск речевого движка над фрагментом текста.
// ID присваивается контроллером и возвращается движком в событиях
// границ, чтобы отсечь события устаревших utterance.
type Utterance struct {
	ID      int64     `json:"id"`
	StoryID uuid.UUID `json:"story_id"`
	Text    string    `json:"text"`
}

// Engine — контракт удаленного речевого движка. Активен не более одного
// utterance: Speak неявно отменяет предыдущий.
type Engine interface {
	Speak(u Utterance) error
	Pause() error
	Resume() error
	Cancel() error
}

// ProgressStore — хранилище прогресса чтения, нужное контроллеру.
// epoch — поколение сессии, seq — номер записи внутри нее; вместе они
// упорядочивают конкурирующие записи на стороне хранилища.
type ProgressStore interface {
	Progress(ctx context.Context, userID, storyID uuid.UUID) (int, error)
	SaveProgress(ctx context.Context, userID, storyID uuid.UUID, offset int, seq, epoch int64) error
}

// NotifyFunc доставляет пользователю короткое нефатальное уведомление.
type NotifyFunc func(message string)

// StateFunc вызывается после каждого перехода с новым наблюдаемым
// состоянием и играющей историей (nil в состоянии Idle).
type StateFunc func(state State, story *models.Story)
