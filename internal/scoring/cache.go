package scoring

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"credit-risk/internal/common/database"
	"credit-risk/internal/models"

	"github.com/google/uuid"
)

// keySpace namespaces the SHA-1 UUIDs that identify feature vectors.
var keySpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("credit-risk/predictions"))

// Cache memoizes predictions by feature vector. Get returns
// database.ErrCacheMiss when nothing is stored under key.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Prediction, error)
	Set(ctx context.Context, key string, p *models.Prediction) error
}

// RedisCache stores predictions as JSON with a fixed TTL.
type RedisCache struct {
	client *database.RedisClient
	ttl    time.Duration
}

func NewRedisCache(client *database.RedisClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*models.Prediction, error) {
	var p models.Prediction
	if err := c.client.GetJSON(ctx, key, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, p *models.Prediction) error {
	return c.client.SetJSON(ctx, key, p, c.ttl)
}

// cacheKey identifies a vector under one model name, version and threshold.
// Request-scoped fields never enter the key.
func cacheKey(prefix, model, version string, threshold float64, values []float64) string {
	buf := make([]byte, 8*(len(values)+1))
	binary.BigEndian.PutUint64(buf, math.Float64bits(threshold))
	for i, v := range values {
		binary.BigEndian.PutUint64(buf[8*(i+1):], math.Float64bits(v))
	}
	return prefix + model + ":" + version + ":" + uuid.NewSHA1(keySpace, buf).String()
}
