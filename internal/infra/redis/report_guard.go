package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"medialit-game-service/internal/domain"
	"medialit-game-service/internal/engine"
)

// ReportGuard decorates a Reporter with a SETNX-based idempotency check so a
// session summary is persisted at most once even across process restarts or
// duplicate completion events. If Redis is unreachable the delegate still
// runs; the database's unique session constraint is the final backstop.
type ReportGuard struct {
	client   *redis.Client
	delegate engine.Reporter
	ttl      time.Duration
}

func NewReportGuard(client *redis.Client, delegate engine.Reporter, ttl time.Duration) *ReportGuard {
	return &ReportGuard{client: client, delegate: delegate, ttl: ttl}
}

func (g *ReportGuard) Report(ctx context.Context, summary domain.SessionSummary) error {
	ok, err := g.client.SetNX(ctx, g.key(summary.SessionID), "1", g.ttl).Result()
	if err == nil && !ok {
		// already reported
		return nil
	}
	if reportErr := g.delegate.Report(ctx, summary); reportErr != nil {
		// free the marker so a later retry is not locked out
		_ = g.client.Del(ctx, g.key(summary.SessionID)).Err()
		return reportErr
	}
	return nil
}

func (g *ReportGuard) key(sessionID string) string {
	return "game:reported:" + sessionID
}
