package domain

import "errors"

var (
	// ErrClassNotFound is returned when no class has the given code.
	ErrClassNotFound = errors.New("class not found")
	// ErrCodeExhausted means no unused class code was found within the retry budget.
	ErrCodeExhausted = errors.New("could not allocate a unique class code")
	// ErrForbidden is returned when the caller lacks the role or ownership for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrBattleNotFound indicates the battle id is unknown.
	ErrBattleNotFound = errors.New("battle not found")
	// ErrNotParticipant is returned when a student submits to a battle they are not in.
	ErrNotParticipant = errors.New("student is not a participant in this battle")
	// ErrBattleCompleted is returned when a round is submitted after the last round.
	ErrBattleCompleted = errors.New("battle already completed")
	// ErrRoundConflict indicates the battle moved on while the round was being prepared.
	ErrRoundConflict = errors.New("battle round changed concurrently")
	// ErrAlreadyExists is returned by stores on duplicate keys.
	ErrAlreadyExists = errors.New("already exists")
	// ErrMalformedAI wraps any LLM output that is not the expected JSON shape.
	ErrMalformedAI = errors.New("malformed AI response")
	// ErrInvalidInput covers request payloads that fail domain checks.
	ErrInvalidInput = errors.New("invalid input")
)
