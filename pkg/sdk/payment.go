package sdk

import (
	"context"
	"fmt"

	"github.com/openclearing/clearing-sdk-go/pkg/session"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SendPayment relays an instant payment through the off-chain channel. The
// amount is a decimal string in the settlement token's human denomination.
//
// The session must be authenticated or session_ready; otherwise ErrNotReady
// is returned before anything reaches the clearing link (no partial side
// effect). Settlement happens entirely off-chain: no transaction, no gas, no
// wallet prompt.
func (m *SessionManager) SendPayment(ctx context.Context, amount string, recipient common.Address) error {
	m.mu.Lock()
	state := m.machine.Session().State()
	if state != session.StateAuthenticated && state != session.StateSessionReady {
		m.machine.Session().SetError(fmt.Sprintf("%v: payments require authenticated or session_ready, have %s", session.ErrNotReady, state))
		m.mu.Unlock()
		return fmt.Errorf("%w: have state %s", session.ErrNotReady, state)
	}
	m.mu.Unlock()

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("invalid payment amount %q: %v", amount, err))
		return fmt.Errorf("invalid payment amount %q: %w", amount, err)
	}
	if !dec.IsPositive() {
		m.setErrorMessage(fmt.Sprintf("invalid payment amount %q: must be positive", amount))
		return fmt.Errorf("invalid payment amount %q: must be positive", amount)
	}

	if err := m.link.SendPayment(ctx, dec, recipient); err != nil {
		m.setErrorMessage(fmt.Sprintf("payment failed: %v", err))
		return fmt.Errorf("payment failed: %w", err)
	}

	zap.L().Info("Payment settled",
		zap.String("amount", dec.String()),
		zap.String("recipient", recipient.Hex()))
	return nil
}

// RequestTestTokens asks the sandbox faucet to fund this identity. It
// reports whether funding happened; failures are recorded on the session
// rather than returned, since the faucet is best-effort.
func (m *SessionManager) RequestTestTokens(ctx context.Context) bool {
	funded, err := m.link.RequestTestTokens(ctx)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("faucet request failed: %v", err))
		return false
	}
	return funded
}
