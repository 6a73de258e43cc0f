package repository

import (
	"context"

	"neowatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error)
	GetByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Alert, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.Alert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) GetByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]models.Alert, error) {
	if limit < 1 || limit > 100 {
		limit = 100
	}

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var alerts []models.Alert
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).
		Error
	return alerts, err
}

func (r *alertRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("is_read", true).
		Error
}

func (r *alertRepository) MarkAllRead(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).
		Error
}

func (r *alertRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Alert{}, "id = ?", id).Error
}

func (r *alertRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).
		Error
	return count, err
}
