package repository

import (
	"context"

	"neowatch/internal/models"

	"gorm.io/gorm"
)

type ChatRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	GetRecentByRoom(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error)
	CountByRoom(ctx context.Context, roomID string) (int64, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// GetRecentByRoom возвращает последние limit сообщений комнаты,
// от старых к новым, в таком порядке история уходит новому подписчику
func (r *chatRepository) GetRecentByRoom(ctx context.Context, roomID string, limit int) ([]models.ChatMessage, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).
		Error
	if err != nil {
		return nil, err
	}

	// Разворачиваем в хронологический порядок
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (r *chatRepository) CountByRoom(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("room_id = ?", roomID).
		Count(&count).
		Error
	return count, err
}
