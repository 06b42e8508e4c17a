package handler

import "story-reader/internal/models"

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type storyRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// storyListResponse — полный актуальный список историй пользователя.
// Мутации возвращают его же, чтобы клиент не склеивал состояние сам.
type storyListResponse struct {
	Stories []models.Story `json:"stories"`
}

type progressResponse struct {
	StoryID  string `json:"story_id"`
	Progress int    `json:"progress"`
}
