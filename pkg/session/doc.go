// Package session holds the canonical session state and the machine that
// guards it.
//
// A Session moves through a fixed set of states:
//
//	disconnected -> connecting -> connected -> authenticating -> authenticated -> session_ready
//
// plus a terminal-ish error state that an explicit reconnect can leave.
// Transitions are driven by events through Machine.Apply; any (state, event)
// pair outside the transition table is rejected with ErrStateTransition, which
// is how duplicate or out-of-order service events are dropped.
//
// Observers never see the mutable Session. They subscribe to the Bus and
// receive immutable Snapshot values after every accepted transition.
//
// The package also defines the error taxonomy the rest of the SDK wraps with
// fmt.Errorf("%w", ...): connection, auth, negotiation, commit, close,
// readiness and funds sentinels, matchable with errors.Is.
package session
