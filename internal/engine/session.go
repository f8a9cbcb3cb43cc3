package engine

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"medialit-game-service/internal/domain"
)

// Reporter delivers the final session summary to the results backend.
// It is invoked at most once per completed session, off the intent path;
// a failed report is logged and never blocks the completion screen.
type Reporter interface {
	Report(ctx context.Context, summary domain.SessionSummary) error
}

// Session orchestrates one player's run through a stage: the ordered rounds,
// the aggregate counters, and the instructions → active → feedback → complete
// lifecycle. One Session owns one run exclusively; replays create a fresh run
// via Reset + Start.
//
// All mutation is serialized by the session mutex. Timer callbacks and user
// intents can both try to resolve the same round; the per-round resolution
// guard makes whichever arrives first win and turns the loser into a no-op.
type Session struct {
	id       string
	cfg      domain.StageConfig
	cards    []domain.PromptCard
	reporter Reporter
	timer    *RoundTimer

	mu            sync.Mutex
	phase         domain.Phase
	roundIndex    int
	cur           *round
	xpTotal       int
	correctCount  int
	totalAnswered int
	lastOutcome   domain.Outcome
	lastBreakdown *domain.XPBreakdown
	timerGen      uint64
	reported      bool
	subscribers   map[chan domain.Snapshot]struct{}
}

// NewSession validates the stage config and builds a session over the given
// prompt cards. Cards are consumed in order; shuffle before calling if round
// order should be randomized.
func NewSession(id string, cfg domain.StageConfig, cards []domain.PromptCard, reporter Reporter) (*Session, error) {
	return NewSessionWithTick(id, cfg, cards, reporter, time.Second)
}

// NewSessionWithTick is exported for tests that shrink the timer interval.
func NewSessionWithTick(id string, cfg domain.StageConfig, cards []domain.PromptCard, reporter Reporter, tick time.Duration) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(cards) < cfg.RoundCount {
		return nil, domain.ErrContentExhausted
	}
	return &Session{
		id:          id,
		cfg:         cfg,
		cards:       cards,
		reporter:    reporter,
		timer:       NewRoundTimer(tick),
		phase:       domain.PhaseInstructions,
		lastOutcome: domain.OutcomeUnresolved,
		subscribers: make(map[chan domain.Snapshot]struct{}),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Stage returns the stage number this session plays.
func (s *Session) Stage() int { return s.cfg.Stage }

// Start moves the session from instructions into the first active round.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseInstructions {
		return domain.ErrNotActive
	}
	s.xpTotal = 0
	s.correctCount = 0
	s.totalAnswered = 0
	s.lastOutcome = domain.OutcomeUnresolved
	s.lastBreakdown = nil
	s.reported = false
	s.roundIndex = 1
	s.beginRoundLocked()
	s.broadcastLocked()
	return nil
}

// SelectCandidate stores the player's current pick for the active round.
// Re-selecting overwrites; nothing is committed until submit or timeout.
func (s *Session) SelectCandidate(answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive || s.cur == nil {
		return domain.ErrNotActive
	}
	if s.cur.state != stateUnresolved {
		return domain.ErrRoundResolved
	}
	a := answer
	s.cur.candidate = &a
	s.broadcastLocked()
	return nil
}

// UseHint marks the hint as spent for the active round. Using it again is a
// no-op, not an error.
func (s *Session) UseHint() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive || s.cur == nil {
		return domain.ErrNotActive
	}
	if !s.cfg.HintsAvailable || s.cur.state != stateUnresolved || s.cur.hintUsed {
		return nil
	}
	s.cur.hintUsed = true
	s.broadcastLocked()
	return nil
}

// Submit resolves the active round against the stored candidate. A submit
// with no candidate is silently ignored; only timer expiry may resolve a
// candidate-less round (as a timeout).
func (s *Session) Submit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseActive || s.cur == nil {
		return domain.ErrNotActive
	}
	if s.cur.candidate == nil {
		return nil
	}
	s.resolveLocked()
	return nil
}

// Advance moves past the feedback screen: into the next round, or into the
// complete phase after the final one. Completion triggers the report exactly
// once, asynchronously.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseFeedback || s.cur == nil || !s.cur.resolved() {
		return domain.ErrNotActive
	}
	if s.roundIndex == s.cfg.RoundCount {
		s.phase = domain.PhaseComplete
		s.cur = nil
		s.dispatchReportLocked()
		s.broadcastLocked()
		return nil
	}
	s.roundIndex++
	s.phase = domain.PhaseActive
	s.beginRoundLocked()
	s.broadcastLocked()
	return nil
}

// Reset abandons the run and returns to the instructions phase. The pending
// timer is cancelled and the aggregate is discarded.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timerGen++
	s.timer.Stop()
	s.phase = domain.PhaseInstructions
	s.cur = nil
	s.roundIndex = 0
	s.xpTotal = 0
	s.correctCount = 0
	s.totalAnswered = 0
	s.lastOutcome = domain.OutcomeUnresolved
	s.lastBreakdown = nil
	s.reported = false
	s.broadcastLocked()
}

// Snapshot returns the observable state for presentation layers.
func (s *Session) Snapshot() domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel fed with a snapshot on every state change,
// including timer ticks. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// beginRoundLocked replaces the current round and restarts the countdown.
// The generation counter fences off any tick still in flight from the
// previous round.
func (s *Session) beginRoundLocked() {
	s.timerGen++
	gen := s.timerGen
	s.phase = domain.PhaseActive
	s.cur = newRound(s.roundIndex, s.cards[s.roundIndex-1], s.cfg.TimeLimitSeconds, gen)
	s.timer.Start(s.cfg.TimeLimitSeconds,
		func(remaining int) { s.onTick(gen, remaining) },
		func() { s.onExpire(gen) },
	)
}

func (s *Session) onTick(gen uint64, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.cur == nil || s.cur.state != stateUnresolved {
		return
	}
	s.cur.secondsRemaining = remaining
	s.broadcastLocked()
}

func (s *Session) onExpire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.phase != domain.PhaseActive || s.cur == nil {
		return
	}
	s.cur.secondsRemaining = 0
	s.resolveLocked()
}

// resolveLocked is the single authoritative round transition. The guard is
// flipped before any scoring side effect, so a second caller can never
// double-count the round.
func (s *Session) resolveLocked() {
	r := s.cur
	if r == nil || !r.beginResolution() {
		return
	}
	s.timerGen++
	s.timer.Stop()

	// A timeout with a recorded candidate still judges the candidate;
	// timeout scoring applies only when no attempt was ever made.
	switch {
	case r.candidate == nil:
		r.outcome = domain.OutcomeTimeout
	case matchAnswer(s.cfg.Comparator, *r.candidate, r.card.CorrectAnswerKey):
		r.outcome = domain.OutcomeCorrect
	default:
		r.outcome = domain.OutcomeIncorrect
	}

	elapsed := s.cfg.TimeLimitSeconds - r.secondsRemaining
	r.breakdown = ScoreRound(r.outcome, r.hintUsed, elapsed, s.cfg)

	s.xpTotal += r.breakdown.TotalXP
	s.totalAnswered++
	if r.outcome == domain.OutcomeCorrect {
		s.correctCount++
	}
	s.lastOutcome = r.outcome
	b := r.breakdown
	s.lastBreakdown = &b

	r.state = stateResolved
	s.phase = domain.PhaseFeedback
	s.broadcastLocked()
}

// dispatchReportLocked fires the completion report at most once. The network
// call runs off the lock; failure is logged, not surfaced.
func (s *Session) dispatchReportLocked() {
	if s.reported || s.reporter == nil {
		return
	}
	s.reported = true
	summary := domain.SessionSummary{
		SessionID:      s.id,
		Stage:          s.cfg.Stage,
		TotalXP:        s.xpTotal,
		CorrectAnswers: s.correctCount,
		TotalRounds:    s.cfg.RoundCount,
		Accuracy:       accuracyPercent(s.correctCount, s.totalAnswered),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.reporter.Report(ctx, summary); err != nil {
			log.Printf("session %s: report failed: %v", summary.SessionID, err)
		}
	}()
}

func (s *Session) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:       s.id,
		Stage:           s.cfg.Stage,
		Phase:           s.phase,
		CurrentRound:    s.roundIndex,
		TotalRounds:     s.cfg.RoundCount,
		XPTotal:         s.xpTotal,
		CorrectCount:    s.correctCount,
		TotalAnswered:   s.totalAnswered,
		AccuracyPercent: accuracyPercent(s.correctCount, s.totalAnswered),
		LastOutcome:     s.lastOutcome,
		LastBreakdown:   s.lastBreakdown,
	}
	if s.cur != nil {
		snap.SecondsRemaining = s.cur.secondsRemaining
		snap.HintUsed = s.cur.hintUsed
		card := s.cur.card
		snap.Prompt = &card
	}
	return snap
}

func (s *Session) broadcastLocked() {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Drop the oldest pending snapshot so slow consumers never
			// block the intent path.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

func accuracyPercent(correct, answered int) int {
	if answered == 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(answered) * 100))
}
