package memory

import (
	"context"
	"log"
	"sync"

	"medialit-game-service/internal/domain"
)

// Reporter records summaries in memory and logs them. It stands in for the
// results backend in demos and tests.
type Reporter struct {
	mu        sync.Mutex
	summaries []domain.SessionSummary
}

func NewReporter() *Reporter {
	return &Reporter{}
}

func (r *Reporter) Report(_ context.Context, summary domain.SessionSummary) error {
	r.mu.Lock()
	r.summaries = append(r.summaries, summary)
	r.mu.Unlock()
	log.Printf("stage %d complete: %d xp, %d/%d correct (%d%%)",
		summary.Stage, summary.TotalXP, summary.CorrectAnswers, summary.TotalRounds, summary.Accuracy)
	return nil
}

// Summaries returns a copy of everything reported so far.
func (r *Reporter) Summaries() []domain.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.SessionSummary, len(r.summaries))
	copy(out, r.summaries)
	return out
}
