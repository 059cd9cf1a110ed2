package dto

import (
	"time"

	"github.com/codegrade/codegrade-api/internal/models"
)

// NotificationCreateRequest is the internal publish payload.
type NotificationCreateRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Type    string `json:"type" validate:"required,max=32"`
	Message string `json:"message" validate:"required,max=2000"`
}

// NotificationResponse represents a notification to API consumers.
type NotificationResponse struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotificationResponse builds a response DTO from a model.
func NewNotificationResponse(notification models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        notification.ID,
		UserID:    notification.UserID,
		Type:      notification.Type,
		Message:   notification.Message,
		Read:      notification.Read,
		CreatedAt: notification.CreatedAt,
	}
}

// NewNotificationResponseSlice maps a slice of models to DTOs.
func NewNotificationResponseSlice(notifications []models.Notification) []NotificationResponse {
	responses := make([]NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, NewNotificationResponse(notification))
	}
	return responses
}
