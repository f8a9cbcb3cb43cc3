package engine

import (
	"sort"
	"strings"

	"medialit-game-service/internal/domain"
)

// resolutionState tracks the per-round at-most-once scoring guard.
// A round leaves stateUnresolved exactly once; whichever caller flips it
// (manual submit or timer expiry) owns the scoring side effects.
type resolutionState int

const (
	stateUnresolved resolutionState = iota
	stateResolving
	stateResolved
)

// round holds the ephemeral data of one question within a session.
type round struct {
	index            int
	card             domain.PromptCard
	hintUsed         bool
	candidate        *string
	secondsRemaining int
	state            resolutionState
	outcome          domain.Outcome
	breakdown        domain.XPBreakdown
	timerGen         uint64
}

func newRound(index int, card domain.PromptCard, limitSeconds int, gen uint64) *round {
	return &round{
		index:            index,
		card:             card,
		secondsRemaining: limitSeconds,
		state:            stateUnresolved,
		outcome:          domain.OutcomeUnresolved,
		timerGen:         gen,
	}
}

// beginResolution flips the guard; the first caller wins, later callers
// get false and must not touch aggregates.
func (r *round) beginResolution() bool {
	if r.state != stateUnresolved {
		return false
	}
	r.state = stateResolving
	return true
}

func (r *round) resolved() bool {
	return r.state == stateResolved
}

// matchAnswer compares a candidate against the round's answer key using the
// stage comparator. Exact semantics are stage-specific configuration, not
// engine logic.
func matchAnswer(kind domain.ComparatorKind, candidate, key string) bool {
	switch kind {
	case domain.CompareLabelFold:
		return strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(key))
	case domain.CompareAllOf:
		return matchAllOf(candidate, key)
	default:
		return candidate == key
	}
}

// matchAllOf scores multi-part answers all-or-nothing: the candidate must
// supply exactly the key's parts, in any order.
func matchAllOf(candidate, key string) bool {
	cp := splitParts(candidate)
	kp := splitParts(key)
	if len(cp) != len(kp) || len(kp) == 0 {
		return false
	}
	sort.Strings(cp)
	sort.Strings(kp)
	for i := range kp {
		if cp[i] != kp[i] {
			return false
		}
	}
	return true
}

func splitParts(s string) []string {
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
