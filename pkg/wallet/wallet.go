package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// HashPrefix is the standard Ethereum personal-sign prefix for 32-byte
// messages: "\x19Ethereum Signed Message:\n32".
var HashPrefix = []byte("\x19Ethereum Signed Message:\n32")

// Adapter is the opaque wallet capability consumed by the SDK: personal-sign
// a message, submit a transaction, await its receipt, and report the on-chain
// balance for pre-submission funds checks.
type Adapter interface {
	// Address returns the wallet's account address.
	Address() common.Address
	// SignMessage produces an Ethereum personal-sign signature over message.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	// SendTransaction assembles, signs and submits a transaction to the given
	// address with the given calldata and value. It returns the tx hash.
	SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
	// WaitForReceipt blocks until the transaction is mined or ctx is done.
	// It returns an error if the transaction reverted.
	WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	// BalanceAt returns the wallet's current on-chain balance in wei.
	BalanceAt(ctx context.Context) (*big.Int, error)
}

// backend is the subset of ethclient.Client the keyed wallet depends on,
// extracted so tests can substitute a stub.
type backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// KeyedWallet is an Adapter backed by a local ECDSA private key and an
// Ethereum RPC client. Transactions are signed with the configured chain ID
// (EIP-155) and receipts are polled with exponential backoff.
type KeyedWallet struct {
	address common.Address
	prvKey  *ecdsa.PrivateKey
	client  backend
	chainID *big.Int

	// maxBackoff caps the receipt polling interval. Zero means uncapped.
	maxBackoff time.Duration
}

var _ Adapter = (*KeyedWallet)(nil)

// NewKeyedWallet parses the hex-encoded private key, dials the RPC endpoint
// and returns a ready wallet for the given chain ID.
func NewKeyedWallet(privateKey, rpcAddr string, chainID *big.Int) (*KeyedWallet, error) {
	address, prvKey, err := ParsePrivateKeyECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	client, err := ethclient.Dial(rpcAddr)
	if err != nil {
		zap.L().Error("Failed to ethdial", zap.Error(err))
		return nil, err
	}

	return &KeyedWallet{
		address:    address,
		prvKey:     prvKey,
		client:     client,
		chainID:    chainID,
		maxBackoff: 30 * time.Second,
	}, nil
}

// ParsePrivateKeyECDSA parses a hex-encoded ECDSA private key and returns the
// corresponding Ethereum address together with the private key object.
func ParsePrivateKeyECDSA(privateKey string) (common.Address, *ecdsa.PrivateKey, error) {
	privateKeyECDSA, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return common.Address{}, nil, err
	}

	publicKey := privateKeyECDSA.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return common.Address{}, nil, errors.New("failed to get public key")
	}

	address := crypto.PubkeyToAddress(*publicKeyECDSA)
	return address, privateKeyECDSA, nil
}

// Address returns the wallet account address.
func (w *KeyedWallet) Address() common.Address {
	return w.address
}

// SignMessage produces an Ethereum-compatible personal-sign (EIP-191 style)
// signature over the given message. It hashes the payload as
// keccak256("\x19Ethereum Signed Message:\n32" || keccak256(message)) and
// signs with the wallet key. Returns the 65-byte signature (R||S||V).
func (w *KeyedWallet) SignMessage(_ context.Context, message []byte) ([]byte, error) {
	hash := crypto.Keccak256(
		HashPrefix,
		crypto.Keccak256(message),
	)

	signature, err := crypto.Sign(hash, w.prvKey)
	if err != nil {
		zap.L().Error("Failed to sign message", zap.Error(err))
		return nil, err
	}
	return signature, nil
}

// SendTransaction assembles a legacy transaction with a node-suggested gas
// price and estimated gas limit, signs it with the chain-ID signer and
// submits it.
func (w *KeyedWallet) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("fetch nonce: %w", err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}

	gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.prvKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}

	if err := w.client.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}

	zap.L().Debug("Transaction submitted",
		zap.String("hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()))
	return signed.Hash(), nil
}

// WaitForReceipt polls for a transaction receipt with exponential backoff,
// until the receipt is available, ctx is done, or an error occurs. It returns
// an error if the tx is reverted.
func (w *KeyedWallet) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	backoff := time.Second
	for {
		receipt, err := w.client.TransactionReceipt(ctx, txHash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, fmt.Errorf("tx reverted: %s", txHash)
			}
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			if w.maxBackoff == 0 || backoff < w.maxBackoff {
				backoff *= 2
			}
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			return nil, fmt.Errorf("receipt error: %w", err)
		}
	}
}

// BalanceAt returns the wallet's current on-chain balance.
func (w *KeyedWallet) BalanceAt(ctx context.Context) (*big.Int, error) {
	return w.client.BalanceAt(ctx, w.address, nil)
}
