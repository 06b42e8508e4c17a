package websocket

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"story-reader/internal/playback"
	"story-reader/internal/service"
)

// Handler поднимает WebSocket-сессии воспроизведения. На каждое
// соединение создается свой контроллер: сессия живет ровно столько,
// сколько живет соединение.
type Handler struct {
	auth           service.AuthService
	stories        *service.StoryService
	progress       *service.ProgressTracker
	registry       *SessionRegistry
	allowedOrigins []string
	logger         *zap.Logger
}

func NewHandler(auth service.AuthService, stories *service.StoryService, progress *service.ProgressTracker, registry *SessionRegistry, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		auth:           auth,
		stories:        stories,
		progress:       progress,
		registry:       registry,
		allowedOrigins: allowedOrigins,
		logger:         logger.Named("WebSocketHandler"),
	}
}

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			parsed, err := url.Parse(origin)
			if err != nil {
				return false
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || allowed == origin || allowed == parsed.Scheme+"://"+parsed.Host {
					return true
				}
			}
			return false
		},
	}
}

// ServeWS обрабатывает GET /ws?token=<access_token>. Браузерный
// WebSocket не умеет ставить заголовки, поэтому токен идет query-параметром.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		h.logger.Warn("Missing 'token' query parameter")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.VerifyAccessToken(c.Request.Context(), tokenString)
	if err != nil {
		h.logger.Warn("WebSocket authentication failed", zap.Error(err))
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже записал ответ об ошибке
		h.logger.Error("Failed to upgrade connection",
			zap.String("user_id", claims.UserID.String()), zap.Error(err))
		return
	}

	logger := h.logger.With(zap.String("user_id", claims.UserID.String()))
	logger.Info("WebSocket connection established")

	client := &Client{
		userID:  claims.UserID,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		stories: h.stories,
		logger:  logger,
	}
	client.controller = playback.NewController(
		claims.UserID, client, h.progress,
		client.Notify, client.PushState, logger.Named("PlaybackController"),
	)

	// Контекст сессии отменяется при выходе из readPump, завершая
	// контроллер и writePump. Новое соединение того же пользователя
	// вытесняет эту сессию через реестр.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sessionID := h.registry.Register(claims.UserID, cancel)
	defer h.registry.Unregister(claims.UserID, sessionID)

	go client.writePump(ctx)
	go client.controller.Run(ctx)

	client.readPump(ctx)
	logger.Info("WebSocket session finished")
}
