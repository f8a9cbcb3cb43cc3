package engine

import (
	"medialit-game-service/internal/domain"
)

// ScoreRound computes the XP awarded for one resolved round. It is pure:
// all tuning comes from the stage config, all state from the arguments.
//
// Bonus tiers are additive and evaluated independently, so an answer that
// beats several thresholds collects every matching bonus. Elapsed seconds
// must be timer-consistent (time limit minus seconds remaining at submit),
// not a wall-clock delta.
func ScoreRound(outcome domain.Outcome, hintUsed bool, elapsedSeconds int, cfg domain.StageConfig) domain.XPBreakdown {
	b := domain.XPBreakdown{Outcome: outcome}

	switch outcome {
	case domain.OutcomeTimeout:
		b.TotalXP = cfg.TimeoutXP
	case domain.OutcomeIncorrect:
		b.TotalXP = cfg.ConsolationXP
	case domain.OutcomeCorrect:
		b.BaseXP = cfg.BasePointsCorrect
		for _, tier := range cfg.BonusTiers {
			if elapsedSeconds <= tier.ThresholdSeconds {
				b.TierBonusXP += tier.BonusPoints
			}
		}
		b.TotalXP = b.BaseXP + b.TierBonusXP
		if hintUsed && cfg.HintMaxXPCap != nil && b.TotalXP > *cfg.HintMaxXPCap {
			b.TotalXP = *cfg.HintMaxXPCap
			b.CapApplied = true
		}
	}

	if b.TotalXP < cfg.MinimumXPFloor {
		b.TotalXP = cfg.MinimumXPFloor
		b.FloorApplied = true
	}
	return b
}
