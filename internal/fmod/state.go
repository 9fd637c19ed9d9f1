package fmod

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ldayton/TotalRecall/internal/audio"
)

// EngineState is the engine lifecycle state.
type EngineState int32

const (
	StateUninitialized EngineState = iota
	StateInitializing
	StateInitialized
	StateClosing
	StateClosed
)

func (s EngineState) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateInitialized:
		return "INITIALIZED"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("EngineState(%d)", int32(s))
	}
}

// stateManager serializes engine lifecycle transitions. All mutation
// happens under a single mutex; reads are lock-free.
type stateManager struct {
	mu    sync.Mutex
	state atomic.Int32
}

func newStateManager() *stateManager {
	return &stateManager{}
}

// Current returns the current state without locking.
func (m *stateManager) Current() EngineState {
	return EngineState(m.state.Load())
}

// IsRunning reports whether audio operations are permitted.
func (m *stateManager) IsRunning() bool {
	return m.Current() == StateInitialized
}

// TransitionTo validates and performs the transition, running action
// under the lock. If action fails the previous state is restored and the
// action's error is returned unchanged.
func (m *stateManager) TransitionTo(target EngineState, action func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current := EngineState(m.state.Load())
	if err := validateTransition(current, target); err != nil {
		return err
	}
	m.state.Store(int32(target))

	if action != nil {
		if err := action(); err != nil {
			m.state.Store(int32(current))
			return err
		}
	}
	return nil
}

// ExecuteInState runs action under the lock after asserting the state.
func (m *stateManager) ExecuteInState(required EngineState, action func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkLocked(required); err != nil {
		return err
	}
	return action()
}

// CompareAndSet transitions only if the current state matches expected
// and the transition is legal. Never fails; reports success.
func (m *stateManager) CompareAndSet(expected, target EngineState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if EngineState(m.state.Load()) != expected {
		return false
	}
	if validateTransition(expected, target) != nil {
		return false
	}
	m.state.Store(int32(target))
	return true
}

// CheckState asserts the current state.
func (m *stateManager) CheckState(expected EngineState) error {
	if current := m.Current(); current != expected {
		return fmt.Errorf("%w: operation requires state %s but current state is %s",
			audio.ErrEngineState, expected, current)
	}
	return nil
}

// CheckStateAny asserts the current state is one of expected.
func (m *stateManager) CheckStateAny(expected ...EngineState) error {
	current := m.Current()
	for _, s := range expected {
		if current == s {
			return nil
		}
	}
	return fmt.Errorf("%w: operation requires one of states %v but current state is %s",
		audio.ErrEngineState, expected, current)
}

func (m *stateManager) checkLocked(expected EngineState) error {
	if current := EngineState(m.state.Load()); current != expected {
		return fmt.Errorf("%w: operation requires state %s but current state is %s",
			audio.ErrEngineState, expected, current)
	}
	return nil
}

// validateTransition enforces the lifecycle table. CLOSED may re-enter
// INITIALIZING so an engine slot can be reused after close.
func validateTransition(from, to EngineState) error {
	valid := false
	switch from {
	case StateUninitialized:
		valid = to == StateInitializing
	case StateInitializing:
		valid = to == StateInitialized || to == StateClosed
	case StateInitialized:
		valid = to == StateClosing
	case StateClosing:
		valid = to == StateClosed
	case StateClosed:
		valid = to == StateInitializing
	}
	if !valid {
		return fmt.Errorf("%w: invalid state transition from %s to %s", audio.ErrEngineState, from, to)
	}
	return nil
}
