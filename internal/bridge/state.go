package bridge

// State is the lifecycle stage of a session.
type State uint32

// Session states.
const (
	// StartingState is the state before the serial channel is configured.
	StartingState State = iota
	// RunningState is the main loop.
	RunningState
	// ClosingState releases the channel and flushes the log.
	ClosingState
	// ClosedState is terminal.
	ClosedState
)

// String returns string representation of the state.
func (s State) String() string {
	switch s {
	case StartingState:
		return "starting"
	case RunningState:
		return "running"
	case ClosingState:
		return "closing"
	case ClosedState:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseReason records why a session left the running state.
type CloseReason int

// Close reasons. Everything except ReasonTransport is a normal termination.
const (
	ReasonNone CloseReason = iota
	ReasonSentinel
	ReasonHostEOF
	ReasonBrokenPipe
	ReasonCancelled
	ReasonTransport
)

// String returns string representation of the reason.
func (r CloseReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonSentinel:
		return "sentinel"
	case ReasonHostEOF:
		return "host-eof"
	case ReasonBrokenPipe:
		return "broken-pipe"
	case ReasonCancelled:
		return "cancelled"
	case ReasonTransport:
		return "transport-error"
	default:
		return "unknown"
	}
}

// Normal reports whether the reason is a normal termination.
func (r CloseReason) Normal() bool {
	return r != ReasonTransport
}
