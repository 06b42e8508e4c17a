package playback

import (
	"github.com/google/uuid"

	"story-reader/internal/models"
)

// State — наблюдаемое состояние контроллера воспроизведения.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// session — активная сессия воспроизведения. Не более одной на контроллер.
type session struct {
	story     models.Story
	base      int // смещение, с которого начат текущий utterance
	paused    bool
	utterance int64 // ID активного utterance, 0 до первого Speak
}

func (s *session) state() State {
	switch {
	case s == nil:
		return StateIdle
	case s.paused:
		return StatePaused
	default:
		return StatePlaying
	}
}

// command — побочный эффект перехода, исполняемый контроллером.
type command interface{ isCommand() }

type speakCmd struct {
	story models.Story
	from  int
}

type pauseCmd struct{}
type resumeCmd struct{}
type cancelCmd struct{}

// persistCmd — запись прогресса. reset начинает новую нумерацию seq,
// чем новая сессия перебивает хвост записей предыдущей.
type persistCmd struct {
	storyID uuid.UUID
	offset  int
	reset   bool
}

type noticeCmd struct {
	message string
}

func (speakCmd) isCommand()   {}
func (pauseCmd) isCommand()   {}
func (resumeCmd) isCommand()  {}
func (cancelCmd) isCommand()  {}
func (persistCmd) isCommand() {}
func (noticeCmd) isCommand()  {}

// transition — чистая функция переходов: по текущей сессии и событию
// возвращает следующую сессию и команды побочных эффектов. Порядок
// команд значим: отмена предыдущего utterance всегда предшествует
// запуску нового. progressOf вызывается только при старте новой сессии.
func transition(cur *session, ev Event, progressOf func(models.Story) int) (*session, []command) {
	switch e := ev.(type) {
	case PlayIntent:
		if cur != nil && cur.story.ID == e.Story.ID {
			next := *cur
			if cur.paused {
				next.paused = false
				return &next, []command{resumeCmd{}, noticeCmd{"Resumed playback"}}
			}
			next.paused = true
			return &next, []command{pauseCmd{}, noticeCmd{"Paused playback"}}
		}

		var cmds []command
		if cur != nil {
			// Переключение на другую историю: незаписанный хвост
			// текущего сегмента отбрасывается.
			cmds = append(cmds, cancelCmd{})
		}
		offset := progressOf(e.Story)
		cmds = append(cmds,
			speakCmd{story: e.Story, from: offset},
			persistCmd{storyID: e.Story.ID, offset: offset, reset: true},
			noticeCmd{"Started playing story"},
		)
		return &session{story: e.Story, base: offset}, cmds

	case StopIntent:
		if cur == nil {
			return nil, nil
		}
		// Остановка не сохраняет прогресс.
		return nil, []command{cancelCmd{}}

	case EngineBoundary:
		if cur == nil || cur.utterance != e.UtteranceID {
			return cur, nil // событие устаревшего utterance
		}
		offset := cur.base + e.CharIndex
		if limit := cur.story.ContentLength(); offset > limit {
			offset = limit
		}
		return cur, []command{persistCmd{storyID: cur.story.ID, offset: offset}}

	case EngineEnd:
		if cur == nil || cur.utterance != e.UtteranceID {
			return cur, nil
		}
		return nil, []command{
			persistCmd{storyID: cur.story.ID, offset: cur.story.ContentLength()},
			noticeCmd{"Finished playing story"},
		}
	}
	return cur, nil
}
