package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"story-reader/internal/models"
)

// @Summary Получение информации о текущем пользователе
// @Description Возвращает информацию о пользователе по токену
// @Tags user
// @Accept json
// @Produce json
// @Success 200 {object} meResponse "Информация о пользователе"
// @Failure 401 {object} models.ErrorResponse "Неавторизован"
// @Failure 404 {object} models.ErrorResponse "Пользователь не найден"
// @Security BearerAuth
// @Router /api/me [get]
func (h *Handler) getMe(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return
	}

	user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			zap.L().Warn("User not found for ID from token", zap.String("userID", userID.String()))
			handleServiceError(c, models.ErrUserNotFound)
			return
		}
		zap.L().Error("Error fetching user details from repository", zap.String("userID", userID.String()), zap.Error(err))
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, meResponse{
		ID:    user.ID.String(),
		Email: user.Email,
	})
}
