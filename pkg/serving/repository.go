package serving

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/periop-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PredictionLog is the persistence model for serving analytics.
type PredictionLog struct {
	ID             uuid.UUID         `gorm:"primaryKey;column:id"`
	Complication   string            `gorm:"column:complication"`
	Features       datatypes.JSONMap `gorm:"column:features"`
	Recommendation datatypes.JSONMap `gorm:"column:recommendation"`
	Confidence     float64           `gorm:"column:confidence"`
	LatencyMs      float64           `gorm:"column:latency_ms"`
	Cached         bool              `gorm:"column:cached"`
	CreatedAt      time.Time         `gorm:"column:created_at"`
}

// TableName overrides gorm naming.
func (PredictionLog) TableName() string {
	return "prediction_logs"
}

// Repository handles prediction log queries.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PredictionLog{})
}

func (r *Repository) RecordPrediction(ctx context.Context, features map[string]interface{}, result models.PredictRecommendResult, latency time.Duration, cached bool) error {
	log := PredictionLog{
		ID:           uuid.New(),
		Complication: result.Complication,
		Features:     datatypes.JSONMap(features),
		Recommendation: datatypes.JSONMap(map[string]interface{}{
			"Recommended_Medication": result.Recommendation.Medication,
			"Dosage":                 result.Recommendation.Dosage,
			"Duration":               result.Recommendation.Duration,
			"Source":                 result.Recommendation.Source,
		}),
		Confidence: result.Probabilities[result.Complication],
		LatencyMs:  float64(latency.Microseconds()) / 1000.0,
		Cached:     cached,
		CreatedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&log).Error
}

// Recent returns the most recent prediction logs up to limit.
func (r *Repository) Recent(ctx context.Context, limit int) ([]PredictionLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []PredictionLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
