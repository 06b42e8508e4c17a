package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"story-reader/internal/models"
)

// AuthMiddleware проверяет Bearer-токен и кладет user_id и access_uuid
// в контекст запроса.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			zap.L().Warn("Authorization header missing")
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			zap.L().Warn("Invalid Authorization header format")
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, models.ErrTokenInvalid)
			return
		}

		claims, err := h.authService.VerifyAccessToken(c.Request.Context(), parts[1])
		if err != nil {
			zap.L().Warn("Access token verification failed", zap.Error(err))
			tokenVerificationsTotal.WithLabelValues("access", "failure").Inc()
			handleServiceError(c, err)
			return
		}

		tokenVerificationsTotal.WithLabelValues("access", "success").Inc()
		c.Set("user_id", claims.UserID)
		c.Set("access_uuid", claims.ID)
		c.Next()
	}
}

// getUserIDFromContext достает user_id, положенный AuthMiddleware.
// При отсутствии сам пишет ответ 500.
func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	raw, exists := c.Get("user_id")
	if !exists {
		zap.L().Error("user_id missing in request context")
		err := errors.New("internal server error: context missing user id")
		handleServiceError(c, err)
		return uuid.Nil, err
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		zap.L().Error("user_id in request context has unexpected type", zap.Any("user_id_raw", raw))
		err := errors.New("internal server error: invalid user id in context")
		handleServiceError(c, err)
		return uuid.Nil, err
	}
	return userID, nil
}
