package dto

import (
	"github.com/ignatzorin/marketplace-backend/internal/models"
)

// CategoryListResponse - список категорий.
type CategoryListResponse struct {
	Categories []models.Category `json:"categories"`
}

// ServiceListResponse - страница услуг с параметрами выборки.
type ServiceListResponse struct {
	Services []models.Service `json:"services"`
	Skip     int              `json:"skip"`
	Take     int              `json:"take"`
}

// NotificationListResponse - уведомления пользователя.
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

// SlugSuggestionResponse - предложенный slug.
type SlugSuggestionResponse struct {
	Slug string `json:"slug"`
}

// UnreadCountResponse - количество непрочитанных уведомлений.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// ImageUploadResponse - услуга после добавления изображения.
type ImageUploadResponse struct {
	URL     string          `json:"url"`
	Service *models.Service `json:"service"`
}
