package repository

import (
	"context"
	"time"

	"neowatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type WatchlistRepository interface {
	Create(ctx context.Context, item *models.WatchedAsteroid) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WatchedAsteroid, error)
	GetByUserAndAsteroid(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error)
	GetByUser(ctx context.Context, userID string) ([]models.WatchedAsteroid, error)
	GetAll(ctx context.Context) ([]models.WatchedAsteroid, error)
	Update(ctx context.Context, item *models.WatchedAsteroid) error
	UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON, score int, level models.RiskLevel, checkedAt time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

func (r *watchlistRepository) Create(ctx context.Context, item *models.WatchedAsteroid) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *watchlistRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WatchedAsteroid, error) {
	var item models.WatchedAsteroid
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *watchlistRepository) GetByUserAndAsteroid(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error) {
	var item models.WatchedAsteroid
	err := r.db.WithContext(ctx).
		First(&item, "user_id = ? AND asteroid_id = ?", userID, asteroidID).
		Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *watchlistRepository) GetByUser(ctx context.Context, userID string) ([]models.WatchedAsteroid, error) {
	var items []models.WatchedAsteroid
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("added_at DESC").
		Find(&items).
		Error
	return items, err
}

// GetAll возвращает весь список наблюдения без пагинации: планировщик
// обрабатывает полный набор за один тик
func (r *watchlistRepository) GetAll(ctx context.Context) ([]models.WatchedAsteroid, error) {
	var items []models.WatchedAsteroid
	err := r.db.WithContext(ctx).Find(&items).Error
	return items, err
}

func (r *watchlistRepository) Update(ctx context.Context, item *models.WatchedAsteroid) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *watchlistRepository) UpdateSnapshot(ctx context.Context, id uuid.UUID, snapshot datatypes.JSON, score int, level models.RiskLevel, checkedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.WatchedAsteroid{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"asteroid_data": snapshot,
			"risk_score":    score,
			"risk_level":    level,
			"last_checked":  checkedAt,
		}).
		Error
}

func (r *watchlistRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.WatchedAsteroid{}, "id = ?", id).Error
}

func (r *watchlistRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WatchedAsteroid{}).
		Count(&count).
		Error
	return count, err
}
