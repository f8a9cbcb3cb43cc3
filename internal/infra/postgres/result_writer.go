package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"medialit-game-service/internal/domain"
)

// ResultWriter persists session summaries to the game_results table. The
// unique session_id constraint makes duplicate reports a no-op at the
// database level.
type ResultWriter struct {
	pool *pgxpool.Pool
}

func NewResultWriter(pool *pgxpool.Pool) *ResultWriter {
	return &ResultWriter{pool: pool}
}

func (w *ResultWriter) Report(ctx context.Context, summary domain.SessionSummary) error {
	_, err := w.pool.Exec(ctx, `
		INSERT INTO game_results (session_id, stage, total_xp, correct_answers, total_rounds, accuracy)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO NOTHING`,
		summary.SessionID, summary.Stage, summary.TotalXP, summary.CorrectAnswers, summary.TotalRounds, summary.Accuracy)
	if err != nil {
		return fmt.Errorf("write game result: %w", err)
	}
	return nil
}
