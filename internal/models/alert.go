package models

import (
	"time"

	"github.com/google/uuid"
)

type AlertType string

const (
	AlertTypeCloseApproach AlertType = "CLOSE_APPROACH"
	AlertTypeRiskIncrease  AlertType = "RISK_INCREASE"
	AlertTypeNewData       AlertType = "NEW_DATA"
	AlertTypeCustom        AlertType = "CUSTOM"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

type Alert struct {
	ID           uuid.UUID     `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID       string        `gorm:"not null;index" json:"userId"`
	AsteroidID   string        `gorm:"not null" json:"asteroidId"`
	AsteroidName string        `gorm:"type:text;not null" json:"asteroidName"`
	AlertType    AlertType     `gorm:"type:varchar(24);not null" json:"alertType"`
	Message      string        `gorm:"type:text;not null" json:"message"`
	Severity     AlertSeverity `gorm:"type:varchar(16);not null;default:'INFO'" json:"severity"`
	IsRead       bool          `gorm:"not null;default:false" json:"isRead"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"createdAt"`
}
