package playback

import (
	"story-reader/internal/models"
)

// Event — событие, поступающее в контроллер: намерение пользователя
// или событие речевого движка. Закрытый набор типов.
type Event interface{ isEvent() }

// PlayIntent — запрос воспроизведения истории. Для уже играющей истории
// работает как переключатель пауза/продолжить, для другой — отменяет
// текущую сессию и начинает новую.
type PlayIntent struct {
	Story models.Story
}

// StopIntent останавливает воспроизведение. Прогресс не сохраняется:
// точкой возобновления остается последняя записанная граница.
type StopIntent struct{}

// EngineBoundary — движок дошел до границы слова или сегмента.
// CharIndex — смещение в символах от начала utterance, не от начала текста.
type EngineBoundary struct {
	UtteranceID int64
	CharIndex   int
}

// EngineEnd — движок дочитал utterance до конца.
type EngineEnd struct {
	UtteranceID int64
}

func (PlayIntent) isEvent()     {}
func (StopIntent) isEvent()     {}
func (EngineBoundary) isEvent() {}
func (EngineEnd) isEvent()      {}
