package serving

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/periop-ai/platform/pkg/common/logger"
	"github.com/periop-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// Cache keeps hot prediction results in Redis keyed by the canonical sample
// vector. The pipeline is deterministic, so identical vectors always map to
// the same result. Cache trouble degrades to a miss, never to an error.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(sample []float64) (string, error) {
	encoded, err := json.Marshal(sample)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)
	return fmt.Sprintf("prediction:%s", hex.EncodeToString(sum[:])), nil
}

func (c *Cache) Get(ctx context.Context, sample []float64) (*models.Prediction, bool) {
	key, err := c.key(sample)
	if err != nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Log.WithError(err).Debug("prediction cache read failed")
		}
		return nil, false
	}

	var pred models.Prediction
	if err := json.Unmarshal(data, &pred); err != nil {
		logger.Log.WithError(err).Debug("prediction cache entry corrupt")
		return nil, false
	}
	return &pred, true
}

func (c *Cache) Set(ctx context.Context, sample []float64, pred models.Prediction) {
	key, err := c.key(sample)
	if err != nil {
		return
	}
	data, err := json.Marshal(pred)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).Debug("prediction cache write failed")
	}
}
