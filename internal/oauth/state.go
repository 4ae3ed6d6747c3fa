package oauth

import "sync/atomic"

// TerminalState is shared by the callback server loop and the coordinator's handlers.
//
// Each flag only moves from false to true during an attempt.
type TerminalState struct {
	closedPrematurely atomic.Bool
	flowCompleted     atomic.Bool
	flowFailed        atomic.Bool
}

// NewTerminalState returns a state with every flag cleared.
func NewTerminalState() *TerminalState {
	return &TerminalState{}
}

// Reset clears all flags. Only the orchestrator calls it, at the start of an attempt.
func (s *TerminalState) Reset() {
	s.closedPrematurely.Store(false)
	s.flowCompleted.Store(false)
	s.flowFailed.Store(false)
}

// MarkClosedPrematurely sets the closed-prematurely flag and reports whether this call set it.
func (s *TerminalState) MarkClosedPrematurely() bool {
	return s.closedPrematurely.CompareAndSwap(false, true)
}

// MarkCompleted sets the completed flag and reports whether this call set it.
func (s *TerminalState) MarkCompleted() bool {
	return s.flowCompleted.CompareAndSwap(false, true)
}

// MarkFailed sets the failed flag and reports whether this call set it.
func (s *TerminalState) MarkFailed() bool {
	return s.flowFailed.CompareAndSwap(false, true)
}

func (s *TerminalState) ClosedPrematurely() bool { return s.closedPrematurely.Load() }
func (s *TerminalState) Completed() bool         { return s.flowCompleted.Load() }
func (s *TerminalState) Failed() bool            { return s.flowFailed.Load() }

// Done reports whether any flag is set.
func (s *TerminalState) Done() bool {
	return s.ClosedPrematurely() || s.Completed() || s.Failed()
}
