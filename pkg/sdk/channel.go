package sdk

import (
	"context"
	"fmt"

	"github.com/openclearing/clearing-sdk-go/pkg/clearing"
	"github.com/openclearing/clearing-sdk-go/pkg/custody"
	"github.com/openclearing/clearing-sdk-go/pkg/session"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// defaultSessionDuration is used when the clearing service does not pin a
// channel duration in the negotiated terms.
const defaultSessionDuration = 24 * 3600

// PendingChannel is the off-chain-negotiated, not-yet-committed phase of
// channel creation. At most one exists per session; it is consumed by
// CreateChannelOnChain or discarded by CancelPendingChannel/disconnect.
type PendingChannel struct {
	Partner common.Address
	Deposit decimal.Decimal
	Terms   clearing.PendingTerms
}

// HasPendingChannel reports whether a negotiated channel awaits its on-chain
// commit.
func (m *SessionManager) HasPendingChannel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != nil
}

// RequestChannelCreation drives the off-chain half of channel creation: it
// negotiates terms with the clearing service and stores them as the pending
// channel. It requires the authenticated state and fails if a pending
// channel already exists or the service rejects the request. The negotiation
// is cheap and revocable; nothing touches the chain.
func (m *SessionManager) RequestChannelCreation(ctx context.Context, partner common.Address, deposit decimal.Decimal) error {
	if !deposit.IsPositive() {
		m.setErrorMessage(fmt.Sprintf("%v: deposit must be positive, got %s", session.ErrChannelNegotiation, deposit))
		return fmt.Errorf("%w: deposit must be positive, got %s", session.ErrChannelNegotiation, deposit)
	}

	m.mu.Lock()
	if state := m.machine.Session().State(); state != session.StateAuthenticated {
		m.machine.Session().SetError(fmt.Sprintf("%v: negotiation requires authenticated state, have %s", session.ErrChannelNegotiation, state))
		m.mu.Unlock()
		return fmt.Errorf("%w: requires authenticated state, have %s", session.ErrChannelNegotiation, state)
	}
	if m.pending != nil {
		m.machine.Session().SetError(fmt.Sprintf("%v: a pending channel already exists", session.ErrChannelNegotiation))
		m.mu.Unlock()
		return fmt.Errorf("%w: a pending channel already exists", session.ErrChannelNegotiation)
	}
	m.mu.Unlock()

	terms, err := m.link.RequestChannel(ctx, partner, deposit)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("channel negotiation rejected: %v", err))
		return fmt.Errorf("%w: %v", session.ErrChannelNegotiation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		// Lost the race against a concurrent negotiation; keep the first.
		return fmt.Errorf("%w: a pending channel already exists", session.ErrChannelNegotiation)
	}
	m.pending = &PendingChannel{
		Partner: partner,
		Deposit: deposit,
		Terms:   terms,
	}

	zap.L().Info("Channel terms negotiated",
		zap.String("channelID", terms.ChannelID),
		zap.String("partner", partner.Hex()),
		zap.String("deposit", deposit.String()))
	return nil
}

// CancelPendingChannel abandons the negotiated terms before commit. This is
// the only cancellable step of channel creation.
func (m *SessionManager) CancelPendingChannel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = nil
}

// CreateChannelOnChain commits the pending channel on-chain: it builds the
// openSession call from the negotiated terms, submits it through the wallet
// and blocks until the transaction is mined. No further channel operation is
// meaningful before on-chain finality, so the synchronous wait is deliberate.
//
// On success the pending channel is consumed, the open hash recorded and the
// session advances to session_ready. On wallet rejection or chain revert the
// pending channel is retained so only the on-chain step needs retrying, and
// the state does not change.
func (m *SessionManager) CreateChannelOnChain(ctx context.Context) (common.Hash, error) {
	m.mu.Lock()
	pending := m.pending
	m.mu.Unlock()
	if pending == nil {
		return common.Hash{}, fmt.Errorf("%w: no pending channel to commit", session.ErrChannelCommit)
	}

	// The custody contract keeps one session per user; a live record means
	// the previous channel was never reconciled. A stale (zombie) record is
	// surfaced for the caller to force-close, never silently reused.
	record, err := m.custodySessionRecord(ctx)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("custody session lookup: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelCommit, err)
	}
	if record.Active {
		msg := "an on-chain session is already active"
		if record.IsZombie(m.now()) {
			msg = "on-chain session records are stale; close the session before reopening"
		}
		m.setErrorMessage(fmt.Sprintf("%v: %s", session.ErrChannelCommit, msg))
		return common.Hash{}, fmt.Errorf("%w: %s", session.ErrChannelCommit, msg)
	}

	valueWei, err := custody.EthToWei(pending.Deposit.String())
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("invalid deposit: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelCommit, err)
	}

	duration := pending.Terms.DurationSeconds
	if duration == 0 {
		duration = defaultSessionDuration
	}

	data, err := m.custody.PackOpenSession(duration)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("pack openSession: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelCommit, err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainSubmit)
	txHash, err := m.wallet.SendTransaction(submitCtx, m.custody.Address(), data, valueWei)
	cancel()
	if err != nil {
		// Pending channel retained: only the on-chain step needs a retry.
		m.setErrorMessage(fmt.Sprintf("channel commit rejected: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelCommit, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ReceiptWait)
	_, err = m.wallet.WaitForReceipt(waitCtx, txHash)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("channel commit failed on-chain: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelCommit, err)
	}

	m.mu.Lock()
	m.pending = nil
	m.lastChannelID = channelIDBytes(pending.Terms.ChannelID)
	m.machine.Session().SetChannelOpenHash(txHash)
	_, _ = m.machine.Apply(session.EventChannelCommitted)
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)

	zap.L().Info("Channel committed on-chain",
		zap.String("txHash", txHash.Hex()),
		zap.String("channelID", pending.Terms.ChannelID))
	return txHash, nil
}

// OpenSession is the convenience path covering both phases of channel
// creation: off-chain negotiation followed by the on-chain commit.
func (m *SessionManager) OpenSession(ctx context.Context, partner common.Address, deposit decimal.Decimal) (common.Hash, error) {
	if err := m.RequestChannelCreation(ctx, partner, deposit); err != nil {
		return common.Hash{}, err
	}
	return m.CreateChannelOnChain(ctx)
}

// IsZombieSession reports whether the custody contract holds a session that
// is still marked active past its recorded expiry. The caller decides
// whether to force-close and reopen; the SDK never auto-corrects stale
// records and never treats them as usable for payments.
func (m *SessionManager) IsZombieSession(ctx context.Context) (bool, error) {
	record, err := m.custodySessionRecord(ctx)
	if err != nil {
		return false, err
	}
	return record.IsZombie(m.now()), nil
}

func (m *SessionManager) custodySessionRecord(ctx context.Context) (custody.SessionRecord, error) {
	readCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainRead)
	defer cancel()
	return m.custody.Sessions(readCtx, m.wallet.Address())
}

// channelIDBytes normalizes the service-assigned channel identifier into the
// bytes32 form the custody contract expects.
func channelIDBytes(id string) [32]byte {
	if h := common.HexToHash(id); h != (common.Hash{}) {
		return h
	}
	var out [32]byte
	copy(out[:], id)
	return out
}
