package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForwardTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.CanTransition(StageLOISigned, StageDDInProgress))
	assert.True(t, sm.CanTransition(StageLOISigned, StageSPANegotiation))
	assert.True(t, sm.CanTransition(StageDDInProgress, StageSPANegotiation))
	assert.True(t, sm.CanTransition(StageSPANegotiation, StageClosing))
	assert.True(t, sm.CanTransition(StageClosing, StageCompleted))
}

func TestNoBackwardTransitions(t *testing.T) {
	sm := NewStateMachine()

	assert.False(t, sm.CanTransition(StageClosing, StageDDInProgress))
	assert.False(t, sm.CanTransition(StageSPANegotiation, StageLOISigned))
	assert.False(t, sm.CanTransition(StageCompleted, StageClosing))
	assert.False(t, sm.CanTransition(StageDDInProgress, StageClosing))
}

func TestCancelledReachableFromNonTerminal(t *testing.T) {
	sm := NewStateMachine()

	for _, from := range []Stage{StageLOISigned, StageDDInProgress, StageSPANegotiation, StageClosing} {
		assert.True(t, sm.CanTransition(from, StageCancelled), "expected %s -> CANCELLED", from)
	}
	assert.False(t, sm.CanTransition(StageCompleted, StageCancelled))
	assert.False(t, sm.CanTransition(StageCancelled, StageCancelled))
}

func TestTerminalStages(t *testing.T) {
	sm := NewStateMachine()

	assert.True(t, sm.IsTerminal(StageCompleted))
	assert.True(t, sm.IsTerminal(StageCancelled))
	assert.False(t, sm.IsTerminal(StageClosing))
	assert.Empty(t, sm.GetAllowedTransitions(StageCompleted))
}
