package lifecycle

// Stage is the coarse-grained lifecycle phase of a deal.
type Stage string

const (
	StageLOISigned      Stage = "LOI_SIGNED"
	StageDDInProgress   Stage = "DD_IN_PROGRESS"
	StageSPANegotiation Stage = "SPA_NEGOTIATION"
	StageClosing        Stage = "CLOSING"
	StageCompleted      Stage = "COMPLETED"
	StageCancelled      Stage = "CANCELLED"
)

// StateMachine enforces deal stage transitions
type StateMachine struct {
	allowedTransitions map[Stage][]Stage
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[Stage][]Stage{
			StageLOISigned:      {StageDDInProgress, StageSPANegotiation, StageCancelled},
			StageDDInProgress:   {StageSPANegotiation, StageCancelled},
			StageSPANegotiation: {StageClosing, StageCancelled},
			StageClosing:        {StageCompleted, StageCancelled},
			StageCompleted:      {},
			StageCancelled:      {},
		},
	}
}

// CanTransition checks if a stage transition is allowed
func (sm *StateMachine) CanTransition(from, to Stage) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next stages for a given stage
func (sm *StateMachine) GetAllowedTransitions(from Stage) []Stage {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []Stage{}
	}
	return allowed
}

// IsTerminal reports whether a stage has no outgoing transitions.
func (sm *StateMachine) IsTerminal(stage Stage) bool {
	return len(sm.allowedTransitions[stage]) == 0
}
