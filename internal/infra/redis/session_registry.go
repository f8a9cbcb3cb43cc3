package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"medialit-game-service/internal/engine"
)

// SessionRegistry is a Redis-aware implementation of app.SessionRegistry.
// Notes:
//   - Live sessions stay in a local in-memory map; the engine's timers and
//     subscriptions are in-process state.
//   - Redis marks session liveness so an operator (or a future projector)
//     can see which sessions exist across instances.
type SessionRegistry struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*engine.Session
}

func NewSessionRegistry(client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*engine.Session),
	}
}

func (r *SessionRegistry) Put(id string, s *engine.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
	// best-effort liveness marker
	_ = r.client.Set(context.Background(), r.key(id), "1", r.ttl).Err()
}

func (r *SessionRegistry) Get(id string) (*engine.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *SessionRegistry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	_ = r.client.Del(context.Background(), r.key(id)).Err()
}

func (r *SessionRegistry) key(id string) string {
	return "game:session:" + id
}
