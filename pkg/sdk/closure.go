package sdk

import (
	"context"
	"fmt"

	"github.com/openclearing/clearing-sdk-go/pkg/custody"
	"github.com/openclearing/clearing-sdk-go/pkg/session"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// CloseChannel submits the on-chain close/withdraw call, blocks until it is
// mined and resets the session toward disconnected. Funds are swept back to
// the wallet on-chain; the off-chain channel ceases to exist.
//
// Calling it with no channel open returns ErrNoActiveChannel without
// submitting a transaction.
func (m *SessionManager) CloseChannel(ctx context.Context) (common.Hash, error) {
	m.mu.Lock()
	_, haveHash := m.machine.Session().ChannelOpenHash()
	m.mu.Unlock()

	if !haveHash {
		// No channel committed in this session; the custody contract may
		// still hold one from an earlier run.
		readCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainRead)
		active, err := m.custody.IsSessionActive(readCtx, m.wallet.Address())
		cancel()
		if err != nil {
			m.setErrorMessage(fmt.Sprintf("custody lookup: %v", err))
			return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelClose, err)
		}
		if !active {
			return common.Hash{}, session.ErrNoActiveChannel
		}
	}

	data, err := m.custody.PackCloseSession()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("pack closeSession: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelClose, err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainSubmit)
	txHash, err := m.wallet.SendTransaction(submitCtx, m.custody.Address(), data, nil)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("channel close rejected: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelClose, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ReceiptWait)
	_, err = m.wallet.WaitForReceipt(waitCtx, txHash)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("channel close failed on-chain: %v", err))
		return common.Hash{}, fmt.Errorf("%w: %v", session.ErrChannelClose, err)
	}

	m.mu.Lock()
	m.pending = nil
	if _, err := m.machine.Apply(session.EventChannelClosed); err != nil {
		// Closing an on-chain leftover outside session_ready still resets
		// the session; a fresh connect is required for further use.
		_, _ = m.machine.Apply(session.EventDisconnect)
	}
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)

	zap.L().Info("Channel closed on-chain", zap.String("txHash", txHash.Hex()))
	return txHash, nil
}

// CloseSession is the error-only variant of CloseChannel exposed for callers
// that do not care about the transaction hash.
func (m *SessionManager) CloseSession(ctx context.Context) error {
	_, err := m.CloseChannel(ctx)
	return err
}

// DepositToChannel tops up the committed channel with the given ETH amount
// (decimal string). The wallet balance is checked before submission so an
// underfunded deposit surfaces as ErrInsufficientFunds instead of a wasted
// failed transaction.
func (m *SessionManager) DepositToChannel(ctx context.Context, amountEth string) (common.Hash, error) {
	m.mu.Lock()
	_, haveHash := m.machine.Session().ChannelOpenHash()
	channelID := m.lastChannelID
	m.mu.Unlock()
	if !haveHash {
		return common.Hash{}, session.ErrNoActiveChannel
	}

	valueWei, err := custody.EthToWei(amountEth)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("invalid deposit amount: %v", err))
		return common.Hash{}, fmt.Errorf("invalid deposit amount: %w", err)
	}

	readCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainRead)
	balance, err := m.wallet.BalanceAt(readCtx)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("wallet balance check: %v", err))
		return common.Hash{}, fmt.Errorf("wallet balance check: %w", err)
	}
	if balance.Cmp(valueWei) < 0 {
		m.setErrorMessage(fmt.Sprintf("%v: need %s wei, have %s", session.ErrInsufficientFunds, valueWei, balance))
		return common.Hash{}, fmt.Errorf("%w: need %s wei, have %s", session.ErrInsufficientFunds, valueWei, balance)
	}

	data, err := m.custody.PackDepositETH(channelID)
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("pack depositETH: %v", err))
		return common.Hash{}, fmt.Errorf("pack depositETH: %w", err)
	}

	submitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ChainSubmit)
	txHash, err := m.wallet.SendTransaction(submitCtx, m.custody.Address(), data, valueWei)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("deposit rejected: %v", err))
		return common.Hash{}, fmt.Errorf("deposit rejected: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeouts.ReceiptWait)
	_, err = m.wallet.WaitForReceipt(waitCtx, txHash)
	cancel()
	if err != nil {
		m.setErrorMessage(fmt.Sprintf("deposit failed on-chain: %v", err))
		return common.Hash{}, fmt.Errorf("deposit failed on-chain: %w", err)
	}

	zap.L().Info("Deposited to channel", zap.String("txHash", txHash.Hex()))
	return txHash, nil
}
