package websocket

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRegistry отслеживает активную сессию воспроизведения каждого
// пользователя. Контроллер однослотовый, поэтому второе соединение того
// же пользователя вытесняет первое: воспроизведение живет ровно в одной
// вкладке.
type SessionRegistry struct {
	mu     sync.Mutex
	nextID uint64
	active map[uuid.UUID]registeredSession
	logger *zap.Logger
}

type registeredSession struct {
	id     uint64
	cancel context.CancelFunc
}

// NewSessionRegistry создает пустой реестр сессий.
func NewSessionRegistry(logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{
		active: make(map[uuid.UUID]registeredSession),
		logger: logger.Named("SessionRegistry"),
	}
}

// Register регистрирует новую сессию пользователя и отменяет предыдущую,
// если она была. Возвращает ID для последующего Unregister.
func (r *SessionRegistry) Register(userID uuid.UUID, cancel context.CancelFunc) uint64 {
	r.mu.Lock()
	prev, hadPrev := r.active[userID]
	r.nextID++
	id := r.nextID
	r.active[userID] = registeredSession{id: id, cancel: cancel}
	r.mu.Unlock()

	if hadPrev {
		r.logger.Info("Evicting previous playback session", zap.String("user_id", userID.String()))
		prev.cancel()
	}
	return id
}

// Unregister снимает сессию с учета. Сессия, уже вытесненная более новой,
// не трогает чужую запись.
func (r *SessionRegistry) Unregister(userID uuid.UUID, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.active[userID]; ok && cur.id == id {
		delete(r.active, userID)
	}
}

// ActiveSessions возвращает число активных сессий воспроизведения.
func (r *SessionRegistry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}
