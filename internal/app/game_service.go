package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"medialit-game-service/internal/domain"
	"medialit-game-service/internal/engine"
	"medialit-game-service/internal/stage"
)

// SessionRegistry abstracts how live sessions are tracked (in-memory, with
// optional Redis liveness markers).
type SessionRegistry interface {
	Put(id string, s *engine.Session)
	Get(id string) (*engine.Session, bool)
	Delete(id string)
}

// ContentRepository loads stage content (from cache/backing store).
type ContentRepository interface {
	GetContent(ctx context.Context, stageID string) (domain.StageContent, error)
}

// GameService contains the game use cases: creating a session for a stage
// and routing player intents to it.
type GameService struct {
	catalog  *stage.Catalog
	registry SessionRegistry
	content  ContentRepository
	reporter engine.Reporter
	tick     time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGameService(catalog *stage.Catalog, registry SessionRegistry, content ContentRepository, reporter engine.Reporter) *GameService {
	return &GameService{
		catalog:  catalog,
		registry: registry,
		content:  content,
		reporter: reporter,
		tick:     time.Second,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewGameServiceWithTick is exported for tests that shrink the timer interval.
func NewGameServiceWithTick(catalog *stage.Catalog, registry SessionRegistry, content ContentRepository, reporter engine.Reporter, tick time.Duration) *GameService {
	g := NewGameService(catalog, registry, content, reporter)
	g.tick = tick
	return g
}

// CreateSession builds a session for the given stage: config lookup, content
// fetch, round draw, registration. The session starts in the instructions
// phase; the client calls Start when the player is ready.
func (g *GameService) CreateSession(ctx context.Context, stageNum int) (*engine.Session, error) {
	cfg, err := g.catalog.Lookup(stageNum)
	if err != nil {
		return nil, err
	}
	content, err := g.content.GetContent(ctx, ContentID(stageNum))
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	cards, err := stage.DrawRounds(g.rnd, content, cfg.RoundCount)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}

	session, err := engine.NewSessionWithTick(uuid.NewString(), cfg, cards, g.reporter, g.tick)
	if err != nil {
		return nil, err
	}
	g.registry.Put(session.ID(), session)
	return session, nil
}

// Session looks up a live session by ID.
func (g *GameService) Session(id string) (*engine.Session, error) {
	session, ok := g.registry.Get(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// DropSession abandons a session and removes it from the registry.
func (g *GameService) DropSession(id string) {
	if session, ok := g.registry.Get(id); ok {
		session.Reset()
	}
	g.registry.Delete(id)
}

// ContentID maps a stage number to its content record key.
func ContentID(stageNum int) string {
	return fmt.Sprintf("stage%d", stageNum)
}
