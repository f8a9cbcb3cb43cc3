package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"medialit-game-service/internal/domain"
)

// ContentLoader fetches stage content from a backing store (e.g., Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, stageID string) (domain.StageContent, error)
}

// ContentRepository caches stage content in Redis as a JSON blob per stage
// (SET stage:{stageID}:content) and falls back to a loader on cache miss.
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, stageID string) (domain.StageContent, error) {
	key := r.contentKey(stageID)

	if content, ok := r.fromCache(ctx, key); ok {
		return content, nil
	}

	result, err, _ := r.sf.Do(stageID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if content, ok := r.fromCache(ctx, key); ok {
			return content, nil
		}

		content, err := r.loader.LoadContent(ctx, stageID)
		if err != nil {
			return domain.StageContent{}, err
		}

		if data, err := json.Marshal(content); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return content, nil
	})
	if err != nil {
		return domain.StageContent{}, err
	}
	return result.(domain.StageContent), nil
}

func (r *ContentRepository) fromCache(ctx context.Context, key string) (domain.StageContent, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil || len(raw) == 0 {
		return domain.StageContent{}, false
	}
	var content domain.StageContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.StageContent{}, false
	}
	return content, true
}

func (r *ContentRepository) contentKey(stageID string) string {
	return "stage:" + stageID + ":content"
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
