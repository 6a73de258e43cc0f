package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxChatMessageLength ограничивает длину одного сообщения
const MaxChatMessageLength = 500

type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID    string    `gorm:"not null" json:"userId"`
	UserName  string    `gorm:"type:varchar(100);not null" json:"userName"`
	RoomID    string    `gorm:"not null;index" json:"roomId"`
	Message   string    `gorm:"type:varchar(500);not null" json:"message"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
