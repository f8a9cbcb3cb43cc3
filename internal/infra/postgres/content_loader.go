package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"medialit-game-service/internal/domain"
)

// ContentLoader loads stage content JSONB from Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadContent(ctx context.Context, stageID string) (domain.StageContent, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM stage_content WHERE id=$1`, stageID).Scan(&raw)
	if err != nil {
		return domain.StageContent{}, fmt.Errorf("load stage content: %w", err)
	}
	var content domain.StageContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return domain.StageContent{}, fmt.Errorf("unmarshal stage content: %w", err)
	}
	return content, nil
}
