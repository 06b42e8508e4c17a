package handler

import (
	"github.com/gin-gonic/gin"

	"story-reader/internal/config"
	"story-reader/internal/interfaces"
	"story-reader/internal/service"
)

// Handler связывает HTTP-маршруты с сервисами библиотеки историй.
type Handler struct {
	authService  service.AuthService
	storyService *service.StoryService
	progress     *service.ProgressTracker
	userRepo     interfaces.UserRepository
	cfg          *config.Config
}

func NewHandler(authService service.AuthService, storyService *service.StoryService, progress *service.ProgressTracker, userRepo interfaces.UserRepository, cfg *config.Config) *Handler {
	return &Handler{
		authService:  authService,
		storyService: storyService,
		progress:     progress,
		userRepo:     userRepo,
		cfg:          cfg,
	}
}

// RegisterRoutes вешает маршруты на роутер. rateLimiter применяется
// только к /auth: защита от перебора паролей.
func (h *Handler) RegisterRoutes(router *gin.Engine, rateLimiter gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	if rateLimiter != nil {
		authGroup.Use(rateLimiter)
	}
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.POST("/logout", h.AuthMiddleware(), h.logout)
		authGroup.POST("/refresh", h.refresh)
	}

	protected := router.Group("/api")
	protected.Use(h.AuthMiddleware())
	{
		protected.GET("/me", h.getMe)
		protected.GET("/stories", h.listStories)
		protected.POST("/stories", h.createStory)
		protected.PUT("/stories/:story_id", h.updateStory)
		protected.DELETE("/stories/:story_id", h.deleteStory)
		protected.GET("/stories/:story_id/progress", h.getProgress)
	}
}
