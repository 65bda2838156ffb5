package session

import "errors"

// Error taxonomy for the session subsystem. Public SDK operations wrap these
// with context via fmt.Errorf("...: %w", err) so callers can match them with
// errors.Is regardless of the failure site.
var (
	// ErrStateTransition is returned when an event is applied in a state for
	// which no transition edge is defined. The session is left unchanged.
	ErrStateTransition = errors.New("invalid session state transition")

	// ErrConnection indicates the clearing link is unreachable.
	ErrConnection = errors.New("clearing link unreachable")

	// ErrAuth indicates the signature was rejected or invalid.
	ErrAuth = errors.New("authentication rejected")

	// ErrChannelNegotiation indicates the off-chain terms were rejected, or a
	// pending channel already exists.
	ErrChannelNegotiation = errors.New("channel negotiation failed")

	// ErrChannelCommit indicates a wallet rejection or chain revert during the
	// on-chain open.
	ErrChannelCommit = errors.New("channel commit failed")

	// ErrNotReady indicates a payment was attempted outside the
	// authenticated/session_ready states.
	ErrNotReady = errors.New("session not ready for payments")

	// ErrChannelClose indicates the close/withdraw transaction failed.
	ErrChannelClose = errors.New("channel close failed")

	// ErrNoActiveChannel indicates a close was requested with no channel open.
	ErrNoActiveChannel = errors.New("no active channel")

	// ErrInsufficientFunds indicates a deposit exceeds the wallet balance.
	// Detected before submission so no transaction is wasted.
	ErrInsufficientFunds = errors.New("insufficient on-chain funds")

	// ErrNoBalance is returned by Session.Balance outside session_ready.
	ErrNoBalance = errors.New("balance undefined outside session_ready")

	// ErrSessionIDSet is returned when assigning a session ID twice within one
	// connection lifetime.
	ErrSessionIDSet = errors.New("session ID already assigned")
)
