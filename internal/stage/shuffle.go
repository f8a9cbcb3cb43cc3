package stage

import (
	"math/rand"

	"medialit-game-service/internal/domain"
)

// DrawRounds picks roundCount cards from the stage content in shuffled order,
// with each card's answer options shuffled too. The input is never mutated.
// This is session pre-processing; the engine itself consumes cards in order.
func DrawRounds(rnd *rand.Rand, content domain.StageContent, roundCount int) ([]domain.PromptCard, error) {
	if len(content.Cards) < roundCount {
		return nil, domain.ErrContentExhausted
	}

	cards := make([]domain.PromptCard, len(content.Cards))
	copy(cards, content.Cards)

	// Fisher–Yates over the card order.
	for i := len(cards) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
	cards = cards[:roundCount]

	for i := range cards {
		if len(cards[i].Options) < 2 {
			continue
		}
		opts := make([]domain.AnswerOption, len(cards[i].Options))
		copy(opts, cards[i].Options)
		for k := len(opts) - 1; k > 0; k-- {
			j := rnd.Intn(k + 1)
			opts[k], opts[j] = opts[j], opts[k]
		}
		cards[i].Options = opts
	}
	return cards, nil
}
