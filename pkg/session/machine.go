package session

import (
	"fmt"

	"go.uber.org/zap"
)

// Event is a trigger fed into the Machine, either from an explicit caller
// action or from a clearing-link push event.
type Event string

const (
	// Caller actions.
	EventConnect      Event = "connect"
	EventAuthenticate Event = "authenticate"
	EventDisconnect   Event = "disconnect"

	// Link push events.
	EventLinkConnected Event = "link_connected"
	EventAuthSucceeded Event = "auth_succeeded"
	EventAuthFailed    Event = "auth_failed"
	EventLinkError     Event = "link_error"

	// Channel lifecycle outcomes reported by the controllers.
	EventChannelCommitted Event = "channel_committed"
	EventChannelClosed    Event = "channel_closed"
)

// edges is the full transition table. Any (state, event) pair absent from it
// is rejected, with two wildcard exceptions handled in Apply: EventDisconnect
// moves every state to disconnected and EventLinkError moves every state to
// error.
var edges = map[State]map[Event]State{
	StateDisconnected: {
		EventConnect: StateConnecting,
	},
	StateConnecting: {
		EventLinkConnected: StateConnected,
	},
	StateConnected: {
		EventAuthenticate: StateAuthenticating,
	},
	StateAuthenticating: {
		EventAuthSucceeded: StateAuthenticated,
		EventAuthFailed:    StateError,
	},
	StateAuthenticated: {
		EventChannelCommitted: StateSessionReady,
	},
	StateSessionReady: {
		EventChannelClosed: StateDisconnected,
	},
	StateError: {
		EventConnect: StateConnecting,
	},
}

// Machine validates and applies transitions to a Session. All transitions are
// synchronous with respect to the in-memory Session; asynchronous work happens
// in the surrounding controllers, which feed resulting events back in and
// publish snapshots to their observers once their own locks are released.
type Machine struct {
	session *Session
}

// NewMachine wraps a Session.
func NewMachine(s *Session) *Machine {
	return &Machine{session: s}
}

// Session returns the owned session record.
func (m *Machine) Session() *Session { return m.session }

// Apply validates the event against the current state and applies it. An
// event not valid for the current state is a no-op: the session is left
// unchanged except for its error message, and ErrStateTransition is returned.
// Duplicate or out-of-order link events are therefore dropped rather than
// reapplied.
func (m *Machine) Apply(event Event) (State, error) {
	current := m.session.state

	next, ok := m.next(current, event)
	if !ok {
		err := fmt.Errorf("%w: %s in state %s", ErrStateTransition, event, current)
		m.session.lastErr = err.Error()
		zap.L().Debug("Dropped session event",
			zap.String("event", string(event)),
			zap.String("state", string(current)))
		return current, err
	}

	m.session.state = next
	if next == StateDisconnected {
		m.session.reset()
	} else if next != StateError {
		m.session.lastErr = ""
	}

	zap.L().Debug("Session transition",
		zap.String("from", string(current)),
		zap.String("event", string(event)),
		zap.String("to", string(next)))
	return next, nil
}

// Fail transitions the session to error (valid from any state) and stores the
// given message. The message is in place before Fail returns, so a snapshot
// taken afterwards always carries it. Used by controllers for unrecoverable
// link failures.
func (m *Machine) Fail(msg string) {
	if _, err := m.Apply(EventLinkError); err != nil {
		return
	}
	m.session.lastErr = msg
}

func (m *Machine) next(current State, event Event) (State, bool) {
	switch event {
	case EventDisconnect:
		return StateDisconnected, true
	case EventLinkError:
		return StateError, true
	}
	targets, ok := edges[current]
	if !ok {
		return current, false
	}
	next, ok := targets[event]
	return next, ok
}
