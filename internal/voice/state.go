package voice

import (
	"errors"
	"fmt"
)

// CallState is the lifecycle state of the single call a controller owns.
type CallState int

const (
	StateIdle CallState = iota
	StateConnecting
	StateConnected
	StateEnding
)

func (s CallState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateEnding:
		return "ending"
	default:
		return fmt.Sprintf("CallState(%d)", int(s))
	}
}

// ErrInvalidTransition is returned for a state change the lifecycle does
// not allow.
var ErrInvalidTransition = errors.New("voice: invalid call state transition")

// transitions lists every legal state change.  Connecting may go straight
// back to idle when the transport fails to start or hangs up before the
// call is established.
var transitions = map[CallState][]CallState{
	StateIdle:       {StateConnecting},
	StateConnecting: {StateConnected, StateEnding, StateIdle},
	StateConnected:  {StateEnding, StateIdle},
	StateEnding:     {StateIdle},
}

func (s CallState) canTransition(to CallState) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// next returns the new state or ErrInvalidTransition.
func (s CallState) next(to CallState) (CallState, error) {
	if !s.canTransition(to) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return to, nil
}
