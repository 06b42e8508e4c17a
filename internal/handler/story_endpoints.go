package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-reader/internal/models"
)

// @Summary Список историй пользователя
// @Description Возвращает все истории пользователя, новые первыми
// @Tags stories
// @Produce json
// @Success 200 {object} storyListResponse "Список историй"
// @Failure 401 {object} models.ErrorResponse "Неавторизован"
// @Security BearerAuth
// @Router /api/stories [get]
func (h *Handler) listStories(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	stories, err := h.storyService.List(c.Request.Context(), userID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, storyListResponse{Stories: stories})
}

// @Summary Создание истории
// @Description Создает историю и возвращает обновленный список
// @Tags stories
// @Accept json
// @Produce json
// @Param request body storyRequest true "Заголовок и текст истории"
// @Success 201 {object} storyListResponse "Обновленный список историй"
// @Failure 400 {object} models.ErrorResponse "Неверные данные запроса"
// @Security BearerAuth
// @Router /api/stories [post]
func (h *Handler) createStory(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if _, err := h.storyService.Create(c.Request.Context(), userID, req.Title, req.Content); err != nil {
		handleServiceError(c, err)
		return
	}
	storyMutationsTotal.WithLabelValues("create").Inc()

	h.respondWithList(c, userID, http.StatusCreated)
}

// @Summary Обновление истории
// @Description Обновляет историю и возвращает обновленный список
// @Tags stories
// @Accept json
// @Produce json
// @Param story_id path string true "ID истории"
// @Param request body storyRequest true "Новый заголовок и текст"
// @Success 200 {object} storyListResponse "Обновленный список историй"
// @Failure 404 {object} models.ErrorResponse "История не найдена"
// @Security BearerAuth
// @Router /api/stories/{story_id} [put]
func (h *Handler) updateStory(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}
	storyID, ok := parseStoryID(c)
	if !ok {
		return
	}

	var req storyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid request body: " + err.Error()})
		return
	}

	if _, err := h.storyService.Update(c.Request.Context(), userID, storyID, req.Title, req.Content); err != nil {
		handleServiceError(c, err)
		return
	}
	storyMutationsTotal.WithLabelValues("update").Inc()

	h.respondWithList(c, userID, http.StatusOK)
}

// @Summary Удаление истории
// @Description Удаляет историю и возвращает обновленный список
// @Tags stories
// @Produce json
// @Param story_id path string true "ID истории"
// @Success 200 {object} storyListResponse "Обновленный список историй"
// @Failure 404 {object} models.ErrorResponse "История не найдена"
// @Security BearerAuth
// @Router /api/stories/{story_id} [delete]
func (h *Handler) deleteStory(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}
	storyID, ok := parseStoryID(c)
	if !ok {
		return
	}

	if err := h.storyService.Delete(c.Request.Context(), userID, storyID); err != nil {
		handleServiceError(c, err)
		return
	}
	storyMutationsTotal.WithLabelValues("delete").Inc()

	h.respondWithList(c, userID, http.StatusOK)
}

// @Summary Сохраненный прогресс прослушивания
// @Description Возвращает позицию возобновления для истории (0, если не слушали)
// @Tags stories
// @Produce json
// @Param story_id path string true "ID истории"
// @Success 200 {object} progressResponse "Прогресс в символах"
// @Failure 404 {object} models.ErrorResponse "История не найдена"
// @Security BearerAuth
// @Router /api/stories/{story_id}/progress [get]
func (h *Handler) getProgress(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}
	storyID, ok := parseStoryID(c)
	if !ok {
		return
	}

	// Проверяем принадлежность истории пользователю до чтения прогресса.
	if _, err := h.storyService.Get(c.Request.Context(), userID, storyID); err != nil {
		handleServiceError(c, err)
		return
	}

	// Сбой хранилища прогресса не ломает запрос: консервативно отдаем 0,
	// диагностика уже в логах трекера.
	progress, err := h.progress.Progress(c.Request.Context(), userID, storyID)
	if err != nil {
		progress = 0
	}

	c.JSON(http.StatusOK, progressResponse{StoryID: storyID.String(), Progress: progress})
}

// respondWithList отвечает свежим полным списком историй после мутации.
func (h *Handler) respondWithList(c *gin.Context, userID uuid.UUID, status int) {
	stories, err := h.storyService.List(c.Request.Context(), userID)
	if err != nil {
		zap.L().Error("Failed to reload story list after mutation", zap.String("userID", userID.String()), zap.Error(err))
		handleServiceError(c, err)
		return
	}
	c.JSON(status, storyListResponse{Stories: stories})
}

func parseStoryID(c *gin.Context) (uuid.UUID, bool) {
	storyID, err := uuid.Parse(c.Param("story_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{Code: models.ErrCodeBadRequest, Message: "Invalid story ID format"})
		return uuid.Nil, false
	}
	return storyID, true
}
