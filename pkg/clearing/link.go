package clearing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// EventType identifies a push event delivered by the clearing service.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventAuthSucceeded EventType = "authSucceeded"
	EventAuthFailed    EventType = "authFailed"
	EventBalanceUpdate EventType = "balanceUpdate"
	EventLinkClosed    EventType = "linkClosed"
)

// Event is a push notification from the clearing service. Only the fields
// relevant to the event type are populated.
type Event struct {
	Type EventType `json:"type"`
	// SessionID accompanies authSucceeded.
	SessionID string `json:"session_id,omitempty"`
	// ChannelsEnabled accompanies authSucceeded.
	ChannelsEnabled bool `json:"channels_enabled,omitempty"`
	// Balance accompanies balanceUpdate.
	Balance *BalanceUpdate `json:"balance,omitempty"`
	// Reason accompanies authFailed and linkClosed.
	Reason string `json:"reason,omitempty"`
}

// BalanceUpdate carries the off-chain settlement-token balance.
type BalanceUpdate struct {
	Raw      string `json:"raw"`
	Decimals int32  `json:"decimals"`
	Symbol   string `json:"symbol"`
}

// PendingTerms is the result of the off-chain half of channel creation:
// negotiated terms that have not yet been committed on-chain. The
// counterparty signature authorizes the on-chain open with exactly these
// terms.
type PendingTerms struct {
	ChannelID       string          `json:"channel_id"`
	Partner         common.Address  `json:"partner"`
	Deposit         decimal.Decimal `json:"deposit"`
	DurationSeconds uint64          `json:"duration_seconds"`
	Nonce           uint64          `json:"nonce"`
	CounterpartySig string          `json:"counterparty_sig"`
}

// Link is the connection to the clearing service. Implementations must be
// safe for use by a single logical owner; push events are fanned out to all
// subscribers.
type Link interface {
	// Connect establishes the connection. Safe to call again after the
	// connection was lost.
	Connect(ctx context.Context) error

	// Challenge fetches the byte payload the wallet must personal-sign to
	// authenticate this identity.
	Challenge(ctx context.Context, address common.Address) ([]byte, error)

	// Authenticate presents the wallet signature over the challenge.
	Authenticate(ctx context.Context, address common.Address, signature []byte) error

	// RequestChannel negotiates channel terms off-chain. The returned terms
	// are revocable until committed on-chain.
	RequestChannel(ctx context.Context, partner common.Address, deposit decimal.Decimal) (PendingTerms, error)

	// SendPayment relays an instant, gasless payment through the open channel
	// and returns once the clearing service acknowledges settlement.
	SendPayment(ctx context.Context, amount decimal.Decimal, recipient common.Address) error

	// RequestTestTokens asks the sandbox faucet to fund the identity.
	RequestTestTokens(ctx context.Context) (bool, error)

	// Subscribe registers a push-event handler and returns its unsubscribe
	// function. Multiple independent subscribers are supported.
	Subscribe(handler func(Event)) func()

	// Close tears the connection down. No linkClosed event is emitted for a
	// deliberate close.
	Close() error
}
