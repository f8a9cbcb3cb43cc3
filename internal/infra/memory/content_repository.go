package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"medialit-game-service/internal/domain"
)

// ContentLoader fetches stage content from a backing store (e.g., Postgres).
type ContentLoader interface {
	LoadContent(ctx context.Context, stageID string) (domain.StageContent, error)
}

// ContentRepository caches stage content with TTL to avoid repeated DB hits.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.StageContent
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, stageID string) (domain.StageContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[stageID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(stageID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[stageID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadContent(ctx, stageID)
		if err != nil {
			return domain.StageContent{}, err
		}

		r.mu.Lock()
		r.cache[stageID] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.StageContent{}, err
	}
	return result.(domain.StageContent), nil
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a simple loader backed by an in-memory map (useful
// for tests/demos).
type StaticContentLoader struct {
	content map[string]domain.StageContent
}

func NewStaticContentLoader(content map[string]domain.StageContent) *StaticContentLoader {
	return &StaticContentLoader{content: content}
}

func (l *StaticContentLoader) LoadContent(_ context.Context, stageID string) (domain.StageContent, error) {
	if content, ok := l.content[stageID]; ok {
		return content, nil
	}
	return domain.StageContent{}, domain.ErrContentNotFound
}
