package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

type WatchedAsteroid struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	UserID       string         `gorm:"not null;index:idx_watched_user_asteroid,unique" json:"userId"`
	AsteroidID   string         `gorm:"not null;index:idx_watched_user_asteroid,unique" json:"asteroidId"`
	AsteroidName string         `gorm:"type:text;not null" json:"asteroidName"`
	AsteroidData datatypes.JSON `gorm:"type:jsonb;not null" json:"asteroidData"`
	RiskScore    int            `gorm:"not null;default:0" json:"riskScore"`
	RiskLevel    RiskLevel      `gorm:"type:varchar(16);not null;default:'LOW'" json:"riskLevel"`

	// Настройки алертов владельца
	NotifyOnApproach  bool    `gorm:"not null;default:true" json:"notifyOnApproach"`
	DistanceThreshold float64 `gorm:"not null;default:0.05" json:"distanceThreshold"`

	AddedAt     time.Time `gorm:"autoCreateTime" json:"addedAt"`
	LastChecked time.Time `gorm:"not null;default:now()" json:"lastChecked"`
}
