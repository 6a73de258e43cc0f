package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"neowatch/internal/clients"
	"neowatch/internal/models"
	"neowatch/internal/repository"
	"neowatch/internal/risk"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AlertSettingsPatch описывает частичное обновление настроек алертов,
// nil-поля не трогаются
type AlertSettingsPatch struct {
	NotifyOnApproach  *bool    `json:"notifyOnApproach"`
	DistanceThreshold *float64 `json:"distanceThreshold"`
}

type WatchlistService interface {
	GetWatchlist(ctx context.Context, userID string) ([]models.WatchedAsteroid, error)
	AddToWatchlist(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error)
	RemoveFromWatchlist(ctx context.Context, userID string, itemID uuid.UUID) error
	UpdateAlertSettings(ctx context.Context, userID string, itemID uuid.UUID, patch AlertSettingsPatch) (*models.WatchedAsteroid, error)
}

type watchlistService struct {
	repo   repository.WatchlistRepository
	client clients.NEOClient
}

func NewWatchlistService(repo repository.WatchlistRepository, client clients.NEOClient) WatchlistService {
	return &watchlistService{
		repo:   repo,
		client: client,
	}
}

func (s *watchlistService) GetWatchlist(ctx context.Context, userID string) ([]models.WatchedAsteroid, error) {
	items, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	return items, nil
}

func (s *watchlistService) AddToWatchlist(ctx context.Context, userID, asteroidID string) (*models.WatchedAsteroid, error) {
	// Пара (пользователь, астероид) уникальна
	_, err := s.repo.GetByUserAndAsteroid(ctx, userID, asteroidID)
	if err == nil {
		return nil, ErrAlreadyWatched
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check watchlist: %w", err)
	}

	// Свежий снапшот берем сразу при добавлении
	asteroid, err := s.client.FetchByID(ctx, asteroidID)
	if err != nil {
		return nil, err
	}

	analysis := risk.Analyze(asteroid)

	item := &models.WatchedAsteroid{
		UserID:            userID,
		AsteroidID:        asteroidID,
		AsteroidName:      asteroid.Name,
		AsteroidData:      datatypes.JSON(asteroid.Raw()),
		RiskScore:         analysis.Score,
		RiskLevel:         analysis.Level,
		NotifyOnApproach:  true,
		DistanceThreshold: 0.05,
		LastChecked:       time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add to watchlist: %w", err)
	}

	return item, nil
}

func (s *watchlistService) RemoveFromWatchlist(ctx context.Context, userID string, itemID uuid.UUID) error {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, item.ID); err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}

	return nil
}

func (s *watchlistService) UpdateAlertSettings(ctx context.Context, userID string, itemID uuid.UUID, patch AlertSettingsPatch) (*models.WatchedAsteroid, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if patch.NotifyOnApproach != nil {
		item.NotifyOnApproach = *patch.NotifyOnApproach
	}
	if patch.DistanceThreshold != nil {
		item.DistanceThreshold = *patch.DistanceThreshold
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update alert settings: %w", err)
	}

	return item, nil
}

// ownedItem находит запись и проверяет владельца; чужая запись
// неотличима от отсутствующей
func (s *watchlistService) ownedItem(ctx context.Context, userID string, itemID uuid.UUID) (*models.WatchedAsteroid, error) {
	item, err := s.repo.GetByID(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watched asteroid: %w", err)
	}
	if item.UserID != userID {
		return nil, ErrNotFound
	}
	return item, nil
}
