package playback

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-reader/internal/models"
)

const (
	// Запас буфера под всплеск boundary-событий с движка.
	eventBufferSize = 64
	persistTimeout  = 5 * time.Second
)

// Controller управляет одной сессией прослушивания одного пользователя.
// Все изменения состояния происходят в горутине Run, поэтому блокировки
// не нужны; внешние методы только кладут события в канал.
type Controller struct {
	userID  uuid.UUID
	engine  Engine
	store   ProgressStore
	notify  NotifyFunc
	onState StateFunc
	logger  *zap.Logger

	sess    *session
	nextUtt int64
	seq     int64
	epoch   int64

	events chan Event
}

// NewController создает контроллер воспроизведения. notify и onState
// могут быть nil.
func NewController(userID uuid.UUID, engine Engine, store ProgressStore, notify NotifyFunc, onState StateFunc, logger *zap.Logger) *Controller {
	return &Controller{
		userID:  userID,
		engine:  engine,
		store:   store,
		notify:  notify,
		onState: onState,
		logger:  logger,
		events:  make(chan Event, eventBufferSize),
	}
}

// RequestPlay запрашивает воспроизведение истории (или паузу/продолжение
// для уже играющей).
func (c *Controller) RequestPlay(story models.Story) {
	c.submit(PlayIntent{Story: story})
}

// RequestStop останавливает воспроизведение без сохранения прогресса.
func (c *Controller) RequestStop() {
	c.submit(StopIntent{})
}

// HandleBoundary принимает событие границы слова от движка.
func (c *Controller) HandleBoundary(utteranceID int64, charIndex int) {
	c.submit(EngineBoundary{UtteranceID: utteranceID, CharIndex: charIndex})
}

// HandleEnd принимает событие завершения utterance от движка.
func (c *Controller) HandleEnd(utteranceID int64) {
	c.submit(EngineEnd{UtteranceID: utteranceID})
}

func (c *Controller) submit(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Переполнение буфера: теряем событие, следующая граница
		// восстановит прогресс.
		c.logger.Warn("Playback event dropped, controller queue is full")
		eventsDropped.Inc()
	}
}

// Run обрабатывает события до отмены контекста. При обрыве контекста
// движок отменяется, прогресс не сохраняется.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if c.sess != nil {
				_ = c.engine.Cancel()
				c.sess = nil
			}
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	prev := c.sess.state()

	var progressOf func(models.Story) int
	if play, ok := ev.(PlayIntent); ok && c.startsNewSession(play.Story) {
		offset, err := c.store.Progress(ctx, c.userID, play.Story.ID)
		if err != nil {
			// Недоступность хранилища не блокирует прослушивание:
			// начинаем с начала.
			c.logger.Warn("Failed to load saved progress, starting from the beginning",
				zap.String("story_id", play.Story.ID.String()), zap.Error(err))
			c.notice("Could not load saved progress, starting from the beginning")
			offset = 0
		}
		progressOf = func(models.Story) int { return offset }
	}

	next, cmds := transition(c.sess, ev, progressOf)
	if _, ok := ev.(EngineEnd); ok && c.sess != nil && next == nil {
		completions.Inc()
	}
	c.sess = next
	for _, cmd := range cmds {
		c.exec(cmd)
	}

	if cur := c.sess.state(); c.onState != nil && (cur != prev || cur == StatePlaying) {
		var story *models.Story
		if c.sess != nil {
			s := c.sess.story
			story = &s
		}
		c.onState(cur, story)
	}
}

func (c *Controller) startsNewSession(story models.Story) bool {
	return c.sess == nil || c.sess.story.ID != story.ID
}

func (c *Controller) exec(cmd command) {
	switch cmd := cmd.(type) {
	case speakCmd:
		c.nextUtt++
		if c.sess != nil {
			c.sess.utterance = c.nextUtt
		}
		u := Utterance{
			ID:      c.nextUtt,
			StoryID: cmd.story.ID,
			Text:    cmd.story.ContentFrom(cmd.from),
		}
		if err := c.engine.Speak(u); err != nil {
			c.logger.Error("Speech engine failed to start utterance",
				zap.String("story_id", cmd.story.ID.String()), zap.Error(err))
			c.notice("Playback failed to start")
			c.sess = nil
			return
		}
		sessionsStarted.Inc()
	case pauseCmd:
		if err := c.engine.Pause(); err != nil {
			c.logger.Warn("Speech engine pause failed", zap.Error(err))
		}
	case resumeCmd:
		if err := c.engine.Resume(); err != nil {
			c.logger.Warn("Speech engine resume failed", zap.Error(err))
		}
	case cancelCmd:
		if err := c.engine.Cancel(); err != nil {
			c.logger.Warn("Speech engine cancel failed", zap.Error(err))
		}
	case persistCmd:
		c.persist(cmd)
	case noticeCmd:
		c.notice(cmd.message)
	}
}

// persist записывает прогресс асинхронно: запись не должна задерживать
// цикл событий. Пара (epoch, seq) защищает от переупорядочивания
// конкурирующих записей на стороне хранилища: новая сессия получает
// больший epoch, поэтому запоздавшие записи предыдущей отбрасываются.
func (c *Controller) persist(cmd persistCmd) {
	if cmd.reset {
		c.seq = 0
		c.epoch = time.Now().UnixNano()
	} else {
		c.seq++
	}
	seq, epoch := c.seq, c.epoch

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := c.store.SaveProgress(ctx, c.userID, cmd.storyID, cmd.offset, seq, epoch); err != nil {
			c.logger.Warn("Failed to persist playback progress",
				zap.String("story_id", cmd.storyID.String()),
				zap.Int("offset", cmd.offset),
				zap.Error(err))
			progressWrites.WithLabelValues("error").Inc()
			return
		}
		progressWrites.WithLabelValues("ok").Inc()
	}()
}

func (c *Controller) notice(message string) {
	if c.notify != nil {
		c.notify(message)
	}
}
