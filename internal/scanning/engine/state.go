package engine

import (
	"errors"
	"time"

	"github.com/buyerscan/buyerscan/internal/core/domain"
)

// State is an alias for domain.ScanState for internal use.
type State = domain.ScanState

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
var ValidTransitions = map[State][]State{
	domain.ScanStateIdle: {domain.ScanStateScanning},
	domain.ScanStateScanning: {
		domain.ScanStateComplete,
		domain.ScanStateQuotaPaused,
		domain.ScanStateFailed,
	},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	validTargets, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, target := range validTargets {
		if target == to {
			return true
		}
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.ScanStateIdle:
		return "Idle - engine created, not yet started"
	case domain.ScanStateScanning:
		return "Scanning - walking transaction history forward"
	case domain.ScanStateComplete:
		return "Complete - upstream ran out of data"
	case domain.ScanStateQuotaPaused:
		return "Quota paused - daily limit reached, resumable"
	case domain.ScanStateFailed:
		return "Failed - unrecoverable error"
	default:
		return "Unknown state"
	}
}
