package service

import (
	"context"
	"errors"
	"fmt"

	"neowatch/internal/models"
	"neowatch/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AlertService interface {
	CreateAlert(ctx context.Context, alert *models.Alert) error
	GetAlerts(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error)
	MarkRead(ctx context.Context, userID string, alertID uuid.UUID) (*models.Alert, error)
	MarkAllRead(ctx context.Context, userID string) error
	DeleteAlert(ctx context.Context, userID string, alertID uuid.UUID) error
}

type alertService struct {
	repo repository.AlertRepository
}

func NewAlertService(repo repository.AlertRepository) AlertService {
	return &alertService{repo: repo}
}

func (s *alertService) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert.Severity == "" {
		alert.Severity = models.SeverityInfo
	}
	if err := s.repo.Create(ctx, alert); err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

func (s *alertService) GetAlerts(ctx context.Context, userID string, unreadOnly bool) ([]models.Alert, error) {
	alerts, err := s.repo.GetByUser(ctx, userID, unreadOnly, 100)
	if err != nil {
		return nil, fmt.Errorf("failed to get alerts: %w", err)
	}
	return alerts, nil
}

func (s *alertService) MarkRead(ctx context.Context, userID string, alertID uuid.UUID) (*models.Alert, error) {
	alert, err := s.ownedAlert(ctx, userID, alertID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkRead(ctx, alert.ID); err != nil {
		return nil, fmt.Errorf("failed to mark alert as read: %w", err)
	}

	alert.IsRead = true
	return alert, nil
}

func (s *alertService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark all alerts as read: %w", err)
	}
	return nil
}

func (s *alertService) DeleteAlert(ctx context.Context, userID string, alertID uuid.UUID) error {
	alert, err := s.ownedAlert(ctx, userID, alertID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, alert.ID); err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}

	return nil
}

func (s *alertService) ownedAlert(ctx context.Context, userID string, alertID uuid.UUID) (*models.Alert, error) {
	alert, err := s.repo.GetByID(ctx, alertID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	if alert.UserID != userID {
		return nil, ErrNotFound
	}
	return alert, nil
}
