package session

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// State is the connection/authentication state of a Session. It only advances
// along the edges registered in the Machine's transition table.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateConnected      State = "connected"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateSessionReady   State = "session_ready"
	StateError          State = "error"
)

// Balance is the off-chain settlement-token balance reported by the clearing
// service. It is only observable while the session is in session_ready.
type Balance struct {
	Raw      *big.Int
	Decimals int32
	Symbol   string
}

// Decimal returns the balance in human denomination (Raw / 10^Decimals).
func (b Balance) Decimal() decimal.Decimal {
	if b.Raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(b.Raw, -b.Decimals)
}

// Session is the single mutable record for one wallet identity's relationship
// to the clearing service and the custody contract. All mutation goes through
// the Machine or the setters below; callers read consistent copies via
// Snapshot.
type Session struct {
	state           State
	environment     string
	sessionID       string
	channelsEnabled bool
	balance         *Balance
	channelOpenHash *common.Hash
	lastErr         string
}

// NewSession returns a disconnected Session tagged with the deployment
// environment. The environment is immutable for the session's lifetime.
func NewSession(environment string) *Session {
	return &Session{
		state:       StateDisconnected,
		environment: environment,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Environment returns the deployment tag set at construction.
func (s *Session) Environment() string { return s.environment }

// SessionID returns the identifier assigned by the clearing service, or the
// empty string before authentication.
func (s *Session) SessionID() string { return s.sessionID }

// ChannelsEnabled reports the capability flag pushed by the clearing service.
func (s *Session) ChannelsEnabled() bool { return s.channelsEnabled }

// Err returns the last stored error message, or the empty string. It is
// cleared on the next successful transition.
func (s *Session) Err() string { return s.lastErr }

// Balance returns the off-chain balance. Outside session_ready the balance is
// undefined and ErrNoBalance is returned.
func (s *Session) Balance() (Balance, error) {
	if s.state != StateSessionReady || s.balance == nil {
		return Balance{}, ErrNoBalance
	}
	return *s.balance, nil
}

// ChannelOpenHash returns the transaction hash of the committed channel and
// whether one exists.
func (s *Session) ChannelOpenHash() (common.Hash, bool) {
	if s.channelOpenHash == nil {
		return common.Hash{}, false
	}
	return *s.channelOpenHash, true
}

// SetSessionID assigns the clearing-service identifier. It may be set exactly
// once per connection lifetime; a disconnect resets it.
func (s *Session) SetSessionID(id string) error {
	if s.sessionID != "" {
		return ErrSessionIDSet
	}
	s.sessionID = id
	return nil
}

// SetChannelsEnabled records the capability flag.
func (s *Session) SetChannelsEnabled(enabled bool) { s.channelsEnabled = enabled }

// SetBalance stores the most recent balance push. The value only becomes
// observable once the session reaches session_ready.
func (s *Session) SetBalance(b Balance) { s.balance = &b }

// SetChannelOpenHash records the on-chain hash of the committed channel.
func (s *Session) SetChannelOpenHash(h common.Hash) { s.channelOpenHash = &h }

// SetError stores a human-readable error message without touching the state.
// Used for precondition failures that must leave the state machine unchanged.
func (s *Session) SetError(msg string) { s.lastErr = msg }

// reset clears everything except the environment. Applied on disconnect.
func (s *Session) reset() {
	s.sessionID = ""
	s.channelsEnabled = false
	s.balance = nil
	s.channelOpenHash = nil
	s.lastErr = ""
}

// Snapshot is an immutable copy of a Session handed to observers and callers.
type Snapshot struct {
	State           State
	Environment     string
	SessionID       string
	ChannelsEnabled bool
	Balance         *Balance
	ChannelOpenHash *common.Hash
	Err             string
}

// Snapshot returns a copy of the session safe to hand outside the owning
// goroutine. The balance pointer is only populated in session_ready.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		State:           s.state,
		Environment:     s.environment,
		SessionID:       s.sessionID,
		ChannelsEnabled: s.channelsEnabled,
		Err:             s.lastErr,
	}
	if s.state == StateSessionReady && s.balance != nil {
		b := *s.balance
		snap.Balance = &b
	}
	if s.channelOpenHash != nil {
		h := *s.channelOpenHash
		snap.ChannelOpenHash = &h
	}
	return snap
}
