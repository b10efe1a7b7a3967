package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type door struct {
	locked bool
	cmd    string
}

func lockedState(d *door, cb func(string, StateEvent)) StateFn[door] {
	if d.cmd == "unlock" {
		d.locked = false
		d.cmd = ""
		cb("unlocked", StateEntered)
		return unlockedState
	}
	d.cmd = ""
	return lockedState
}

func unlockedState(d *door, cb func(string, StateEvent)) StateFn[door] {
	if d.cmd == "lock" {
		d.locked = true
		d.cmd = ""
		cb("locked", StateEntered)
		return lockedState
	}
	d.cmd = ""
	return unlockedState
}

func TestDispatchAppliesReturnedState(t *testing.T) {
	d := &door{locked: true}
	sm := NewStateMachine(d, lockedState)

	d.cmd = "unlock"
	sm.Dispatch(nil)
	require.False(t, d.locked)

	d.cmd = "lock"
	sm.Dispatch(nil)
	require.True(t, d.locked)
}

func TestDispatchIgnoresUnrecognizedCommand(t *testing.T) {
	d := &door{locked: true}
	sm := NewStateMachine(d, lockedState)

	d.cmd = "kick"
	sm.Dispatch(nil)
	require.True(t, d.locked, "an unrecognized command must not move the door out of locked")
}

func TestHistoryRecordsNamedTransitionsOnly(t *testing.T) {
	d := &door{locked: true}
	sm := NewStateMachine(d, lockedState)

	d.cmd = "kick" // unrecognized, no transition, no history entry
	sm.Dispatch(nil)
	require.Empty(t, sm.History())

	d.cmd = "unlock"
	sm.Dispatch(nil)
	d.cmd = "lock"
	sm.Dispatch(nil)

	history := sm.History()
	require.Equal(t, []Transition{
		{From: "", To: "unlocked"},
		{From: "unlocked", To: "locked"},
	}, history)
}

func TestHistoryCallbackStillFiresForCaller(t *testing.T) {
	d := &door{locked: true}
	sm := NewStateMachine(d, lockedState)

	var seen []string
	d.cmd = "unlock"
	sm.Dispatch(func(stateName string, event StateEvent) {
		if event == StateEntered {
			seen = append(seen, stateName)
		}
	})
	require.Equal(t, []string{"unlocked"}, seen)
}
