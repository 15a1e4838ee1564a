package system

import (
	"errors"
	"fmt"
	"slices"
)

// SystemState is the daemon's lifecycle state as reported over the API.
type SystemState string

const (
	StateInitializing SystemState = "INITIALIZING"
	StateRunning      SystemState = "RUNNING"
	StateStopping     SystemState = "STOPPING"
	StateStopped      SystemState = "STOPPED"
	StateError        SystemState = "ERROR"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// A failed start may still be shut down; a stopped daemon may only be
// initialized again.
var validTransitions = map[SystemState][]SystemState{
	StateInitializing: {StateRunning, StateStopping, StateError},
	StateRunning:      {StateStopping, StateError},
	StateStopping:     {StateStopped, StateError},
	StateStopped:      {StateInitializing},
	StateError:        {StateInitializing, StateStopping, StateStopped},
}

func (s SystemState) String() string {
	return string(s)
}

func ValidateTransition(from, to SystemState) error {
	allowed, known := validTransitions[from]
	if !known {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, from)
	}
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
