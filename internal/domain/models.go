package domain

// Phase is the session lifecycle phase.
type Phase string

const (
	PhaseInstructions Phase = "instructions"
	PhaseActive       Phase = "active"
	PhaseFeedback     Phase = "feedback"
	PhaseComplete     Phase = "complete"
)

// Outcome is the resolution of a single round.
type Outcome string

const (
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeCorrect    Outcome = "correct"
	OutcomeIncorrect  Outcome = "incorrect"
	OutcomeTimeout    Outcome = "timeout"
)

// ComparatorKind names how a candidate answer is matched against the answer key.
type ComparatorKind string

const (
	// CompareExact matches the candidate string byte-for-byte.
	CompareExact ComparatorKind = "exact"
	// CompareLabelFold matches labels case-insensitively, trimming whitespace.
	CompareLabelFold ComparatorKind = "label-fold"
	// CompareAllOf splits candidate and key on "," and requires every part
	// to match: multi-part answers are scored all-or-nothing.
	CompareAllOf ComparatorKind = "all-of"
)

// BonusTier adds BonusPoints when the answer arrived within ThresholdSeconds.
// Tiers are evaluated independently; meeting several thresholds compounds.
type BonusTier struct {
	ThresholdSeconds int `json:"thresholdSeconds" yaml:"threshold_seconds"`
	BonusPoints      int `json:"bonusPoints" yaml:"bonus_points"`
}

// StageConfig is the immutable tuning of one stage, supplied at session creation.
type StageConfig struct {
	Stage             int            `json:"stage" yaml:"stage"`
	Name              string         `json:"name" yaml:"name"`
	RoundCount        int            `json:"roundCount" yaml:"round_count"`
	TimeLimitSeconds  int            `json:"timeLimitSeconds" yaml:"time_limit_seconds"`
	BasePointsCorrect int            `json:"basePointsCorrect" yaml:"base_points_correct"`
	BonusTiers        []BonusTier    `json:"bonusTiers" yaml:"bonus_tiers"`
	HintMaxXPCap      *int           `json:"hintMaxXpCap,omitempty" yaml:"hint_max_xp_cap"`
	ConsolationXP     int            `json:"consolationXp" yaml:"consolation_xp"`
	TimeoutXP         int            `json:"timeoutXp" yaml:"timeout_xp"`
	MinimumXPFloor    int            `json:"minimumXpFloor" yaml:"minimum_xp_floor"`
	Comparator        ComparatorKind `json:"comparator" yaml:"comparator"`
	HintsAvailable    bool           `json:"hintsAvailable" yaml:"hints_available"`
}

// Validate reports whether the config can drive a session.
func (c StageConfig) Validate() error {
	if c.RoundCount < 1 {
		return ErrConfigInvalid
	}
	if c.TimeLimitSeconds < 1 {
		return ErrConfigInvalid
	}
	for _, tier := range c.BonusTiers {
		if tier.ThresholdSeconds < 0 {
			return ErrConfigInvalid
		}
	}
	return nil
}

// AnswerOption is one selectable answer of a prompt.
type AnswerOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// PromptCard is one opaque content record: what the player sees plus the
// answer key the engine compares against. Content itself is out of scope.
type PromptCard struct {
	ID               string         `json:"id"`
	Text             string         `json:"text"`
	Options          []AnswerOption `json:"options"`
	CorrectAnswerKey string         `json:"correctAnswerKey"`
	Hint             string         `json:"hint,omitempty"`
}

// StageContent is the pre-fetched prompt collection for one stage.
type StageContent struct {
	StageID string       `json:"stageId"`
	Cards   []PromptCard `json:"cards"`
}

// XPBreakdown explains how a resolved round's XP was computed.
type XPBreakdown struct {
	Outcome      Outcome `json:"outcome"`
	BaseXP       int     `json:"baseXp"`
	TierBonusXP  int     `json:"tierBonusXp"`
	CapApplied   bool    `json:"capApplied"`
	FloorApplied bool    `json:"floorApplied"`
	TotalXP      int     `json:"totalXp"`
}

// Snapshot is the observable session state consumed by presentation layers.
type Snapshot struct {
	SessionID        string       `json:"sessionId"`
	Stage            int          `json:"stage"`
	Phase            Phase        `json:"phase"`
	CurrentRound     int          `json:"currentRound"`
	TotalRounds      int          `json:"totalRounds"`
	SecondsRemaining int          `json:"secondsRemaining"`
	XPTotal          int          `json:"xpTotal"`
	CorrectCount     int          `json:"correctCount"`
	TotalAnswered    int          `json:"totalAnswered"`
	AccuracyPercent  int          `json:"accuracyPercent"`
	HintUsed         bool         `json:"hintUsed"`
	Prompt           *PromptCard  `json:"prompt,omitempty"`
	LastOutcome      Outcome      `json:"lastOutcome"`
	LastBreakdown    *XPBreakdown `json:"lastBreakdown,omitempty"`
}

// SessionSummary is the final report sent to the results backend.
type SessionSummary struct {
	SessionID      string `json:"sessionId"`
	Stage          int    `json:"stage"`
	TotalXP        int    `json:"total_xp"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalRounds    int    `json:"total_rounds"`
	Accuracy       int    `json:"accuracy"`
}
