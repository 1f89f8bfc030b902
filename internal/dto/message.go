package dto

import "github.com/noah-isme/mentor-portal-api/internal/models"

// SendMessageRequest is the body of a new chat message.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// Contact is a chat peer with the number of messages the caller has not read.
type Contact struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Email       string          `json:"email"`
	Role        models.UserRole `json:"role"`
	ChannelID   string          `json:"channel_id"`
	Unread      int             `json:"unread"`
}
