package domain

import "errors"

var (
	// ErrConfigInvalid is returned for stage configs that cannot drive a session.
	ErrConfigInvalid = errors.New("invalid stage configuration")
	// ErrSessionNotFound is returned when a game session has not been started.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrStageNotFound indicates an unknown stage identifier.
	ErrStageNotFound = errors.New("stage not found")
	// ErrContentNotFound indicates the stage content could not be loaded.
	ErrContentNotFound = errors.New("stage content not found")
	// ErrContentExhausted indicates fewer prompt cards than rounds.
	ErrContentExhausted = errors.New("not enough prompt cards for stage")
	// ErrNotActive is returned for round intents outside the active phase.
	ErrNotActive = errors.New("session is not in an active round")
	// ErrRoundResolved is returned when acting on an already resolved round.
	ErrRoundResolved = errors.New("round already resolved")
)
