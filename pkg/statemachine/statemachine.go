package statemachine

import (
	"sync"
)

// StateEvent is a lifecycle notification a state function reports back
// through its callback as it runs.
type StateEvent int

const (
	StateEntered StateEvent = iota
	StateExited
	TransitionRequested
)

// StateFn is one state in a Rob Pike-style state machine: it inspects
// the entity, optionally reports lifecycle events through callback,
// and returns the state function to run next (itself, for "stay put").
type StateFn[T any] func(*T, func(stateName string, event StateEvent)) StateFn[T]

// Transition is one recorded state change, named by whatever string
// the outgoing and incoming state functions reported through
// StateEntered callbacks. From is empty for the machine's very first
// recorded transition, since there was no prior named state to leave.
type Transition struct {
	From string
	To   string
}

// StateMachine is a thread-safe Rob Pike-style state machine: the
// state functions are the states themselves, and each Dispatch call
// runs the current one and adopts whatever it returns. Unlike a plain
// function-pointer machine, it also keeps an append-only record of
// every named transition it has made, so a caller driving a
// long-lived entity (a moderation case, say) can answer "how did this
// get here" without re-deriving it from the decision log.
type StateMachine[T any] struct {
	entity    *T
	stateFn   StateFn[T]
	mutex     sync.RWMutex
	lastState string
	history   []Transition
}

// NewStateMachine creates a new state machine for the given entity.
func NewStateMachine[T any](entity *T, initialStateFn StateFn[T]) *StateMachine[T] {
	return &StateMachine[T]{
		entity:  entity,
		stateFn: initialStateFn,
	}
}

// Dispatch runs the current state function once and adopts the state
// function it returns. It wraps the caller's callback (which may be
// nil) so that every StateEntered notification also gets appended to
// the machine's transition history, tagged with the state name the
// machine was in before this dispatch.
func (sm *StateMachine[T]) Dispatch(callback func(stateName string, event StateEvent)) {
	sm.mutex.Lock()
	currentStateFn := sm.stateFn
	fromState := sm.lastState
	sm.mutex.Unlock()

	if currentStateFn == nil {
		return
	}

	var toState string
	recording := func(stateName string, event StateEvent) {
		if event == StateEntered {
			toState = stateName
		}
		if callback != nil {
			callback(stateName, event)
		}
	}

	nextStateFn := currentStateFn(sm.entity, recording)

	sm.mutex.Lock()
	sm.stateFn = nextStateFn
	if toState != "" {
		sm.history = append(sm.history, Transition{From: fromState, To: toState})
		sm.lastState = toState
	}
	sm.mutex.Unlock()
}

// GetCurrentState returns the current state function (thread-safe).
func (sm *StateMachine[T]) GetCurrentState() StateFn[T] {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.stateFn
}

// SetState sets the state function without reporting the jump as a
// named transition, then dispatches once so the new state can settle.
func (sm *StateMachine[T]) SetState(stateFn StateFn[T]) {
	sm.mutex.Lock()
	sm.stateFn = stateFn
	sm.mutex.Unlock()

	sm.Dispatch(nil)
}

// History returns every named transition recorded so far, oldest
// first.
func (sm *StateMachine[T]) History() []Transition {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	out := make([]Transition, len(sm.history))
	copy(out, sm.history)
	return out
}
