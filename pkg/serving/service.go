package serving

import (
	"context"
	"errors"
	"time"

	"github.com/periop-ai/platform/pkg/common/kafka"
	"github.com/periop-ai/platform/pkg/common/logger"
	"github.com/periop-ai/platform/pkg/common/models"
	"github.com/periop-ai/platform/pkg/medmap"
	"github.com/periop-ai/platform/pkg/observability/metrics"
	"github.com/periop-ai/platform/pkg/pipeline"
)

var ErrAuditDisabled = errors.New("prediction audit log is not enabled")

// Service orchestrates validation, inference, recommendation lookup and the
// optional audit/cache/event sinks. The repo, cache and producer may be nil;
// the corresponding concern is then skipped.
type Service struct {
	pipe        *pipeline.Pipeline
	validator   *Validator
	recommender *medmap.Recommender
	repo        *Repository
	cache       *Cache
	producer    *kafka.Producer
}

func NewService(pipe *pipeline.Pipeline, recommender *medmap.Recommender, repo *Repository, cache *Cache, producer *kafka.Producer) *Service {
	return &Service{
		pipe:        pipe,
		validator:   NewValidator(pipe.Schema()),
		recommender: recommender,
		repo:        repo,
		cache:       cache,
		producer:    producer,
	}
}

func (s *Service) ModelInfo() models.ModelInfo {
	return s.pipe.Info()
}

// Predict classifies each record and returns label plus class probabilities.
func (s *Service) Predict(ctx context.Context, records []map[string]interface{}) ([]models.Prediction, error) {
	out := make([]models.Prediction, 0, len(records))
	for _, record := range records {
		pred, _, err := s.predictOne(ctx, record)
		if err != nil {
			return nil, err
		}
		out = append(out, pred)
	}
	return out, nil
}

// RecommendLabel resolves a caller-supplied complication label directly,
// without touching the model.
func (s *Service) RecommendLabel(label string) models.Recommendation {
	rec := s.recommender.Recommend(label)
	if rec.Source == "rule" {
		metrics.IncFallbackRecommendations()
	}
	return rec
}

// Recommend predicts each record and maps the label to a treatment.
func (s *Service) Recommend(ctx context.Context, records []map[string]interface{}) ([]models.RecommendationResult, error) {
	results, err := s.PredictRecommend(ctx, records)
	if err != nil {
		return nil, err
	}
	out := make([]models.RecommendationResult, 0, len(results))
	for _, r := range results {
		out = append(out, models.RecommendationResult{
			Complication:   r.Complication,
			Recommendation: r.Recommendation,
		})
	}
	return out, nil
}

// PredictRecommend is the combined path: predict, then look up the treatment.
func (s *Service) PredictRecommend(ctx context.Context, records []map[string]interface{}) ([]models.PredictRecommendResult, error) {
	out := make([]models.PredictRecommendResult, 0, len(records))
	for _, record := range records {
		start := time.Now()
		pred, cached, err := s.predictOne(ctx, record)
		if err != nil {
			return nil, err
		}

		result := models.PredictRecommendResult{
			Complication:   pred.Complication,
			Recommendation: s.RecommendLabel(pred.Complication),
			Probabilities:  pred.Probabilities,
		}
		s.record(ctx, record, result, time.Since(start), cached)
		out = append(out, result)
	}
	return out, nil
}

func (s *Service) RecentPredictions(ctx context.Context, limit int) ([]PredictionLog, error) {
	if s.repo == nil {
		return nil, ErrAuditDisabled
	}
	return s.repo.Recent(ctx, limit)
}

func (s *Service) predictOne(ctx context.Context, record map[string]interface{}) (models.Prediction, bool, error) {
	if err := s.validator.Validate(record); err != nil {
		metrics.IncPredictionFailures()
		return models.Prediction{}, false, err
	}

	sample, err := s.pipe.Vector(record)
	if err != nil {
		metrics.IncPredictionFailures()
		return models.Prediction{}, false, ValidationError{reason: err}
	}

	if s.cache != nil {
		if pred, ok := s.cache.Get(ctx, sample); ok {
			metrics.IncCacheHits()
			metrics.IncPredictions()
			return *pred, true, nil
		}
	}

	label, probs, err := s.pipe.PredictSample(sample)
	if err != nil {
		metrics.IncPredictionFailures()
		return models.Prediction{}, false, err
	}

	pred := models.Prediction{Complication: label, Probabilities: probs}
	if s.cache != nil {
		s.cache.Set(ctx, sample, pred)
	}
	metrics.IncPredictions()
	return pred, false, nil
}

// record persists and publishes a completed prediction. Both sinks are best
// effort: the caller already has their answer.
func (s *Service) record(ctx context.Context, features map[string]interface{}, result models.PredictRecommendResult, latency time.Duration, cached bool) {
	if s.repo != nil {
		if err := s.repo.RecordPrediction(ctx, features, result, latency, cached); err != nil {
			logger.Log.WithError(err).Warn("failed to persist prediction log")
		}
	}

	if s.producer != nil {
		payload := map[string]interface{}{
			"complication":           result.Complication,
			"recommended_medication": result.Recommendation.Medication,
			"dosage":                 result.Recommendation.Dosage,
			"duration":               result.Recommendation.Duration,
			"recommendation_source":  result.Recommendation.Source,
			"cached":                 cached,
			"latency_ms":             float64(latency.Microseconds()) / 1000.0,
		}
		if err := s.producer.PublishEvent(ctx, "prediction.completed", "prediction-service", payload); err != nil {
			logger.Log.WithError(err).Warn("failed to publish prediction event")
		} else {
			metrics.IncEventsPublished()
		}
	}
}
