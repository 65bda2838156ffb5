package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// stubBackend is an in-memory backend for exercising the keyed wallet without
// a node. Receipts become visible after notFoundHits polls.
type stubBackend struct {
	nonce        uint64
	gasPrice     *big.Int
	gasLimit     uint64
	balance      *big.Int
	sent         []*types.Transaction
	receipt      *types.Receipt
	notFoundHits int
	receiptErr   error
}

func (s *stubBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return s.nonce, nil
}

func (s *stubBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return s.gasPrice, nil
}

func (s *stubBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return s.gasLimit, nil
}

func (s *stubBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	s.sent = append(s.sent, tx)
	return nil
}

func (s *stubBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	if s.receiptErr != nil {
		return nil, s.receiptErr
	}
	if s.notFoundHits > 0 {
		s.notFoundHits--
		return nil, ethereum.NotFound
	}
	return s.receipt, nil
}

func (s *stubBackend) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return s.balance, nil
}

func newTestWallet(t *testing.T, backend *stubBackend) *KeyedWallet {
	t.Helper()
	prvKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return &KeyedWallet{
		address:    crypto.PubkeyToAddress(prvKey.PublicKey),
		prvKey:     prvKey,
		client:     backend,
		chainID:    big.NewInt(11155111),
		maxBackoff: 10 * time.Millisecond,
	}
}

func TestParsePrivateKeyECDSA(t *testing.T) {
	prvKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	hexKey := common.Bytes2Hex(crypto.FromECDSA(prvKey))

	address, parsed, err := ParsePrivateKeyECDSA(hexKey)
	if err != nil {
		t.Fatalf("ParsePrivateKeyECDSA failed: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected non-nil key")
	}
	if address != crypto.PubkeyToAddress(prvKey.PublicKey) {
		t.Fatalf("unexpected address: %s", address.Hex())
	}
}

func TestParsePrivateKeyECDSA_Invalid(t *testing.T) {
	if _, _, err := ParsePrivateKeyECDSA("not-a-key"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestKeyedWallet_SignMessage(t *testing.T) {
	w := newTestWallet(t, &stubBackend{})

	message := []byte("challenge-42")
	sig, err := w.SignMessage(context.Background(), message)
	if err != nil {
		t.Fatalf("SignMessage failed: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("unexpected signature length: %d", len(sig))
	}

	// The signature must recover to the wallet address.
	hash := crypto.Keccak256(HashPrefix, crypto.Keccak256(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		t.Fatalf("SigToPub failed: %v", err)
	}
	if crypto.PubkeyToAddress(*pub) != w.Address() {
		t.Fatal("signature does not recover to wallet address")
	}
}

func TestKeyedWallet_SendTransaction(t *testing.T) {
	backend := &stubBackend{
		nonce:    7,
		gasPrice: big.NewInt(2_000_000_000),
		gasLimit: 60_000,
	}
	w := newTestWallet(t, backend)

	to := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	hash, err := w.SendTransaction(context.Background(), to, []byte{0x01, 0x02}, big.NewInt(1000))
	if err != nil {
		t.Fatalf("SendTransaction failed: %v", err)
	}
	if hash == (common.Hash{}) {
		t.Fatal("expected non-zero tx hash")
	}

	if len(backend.sent) != 1 {
		t.Fatalf("expected 1 submitted tx, got %d", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Nonce() != 7 {
		t.Fatalf("unexpected nonce: %d", tx.Nonce())
	}
	if tx.To() == nil || *tx.To() != to {
		t.Fatalf("unexpected recipient: %v", tx.To())
	}

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(11155111)), tx)
	if err != nil {
		t.Fatalf("failed to recover sender: %v", err)
	}
	if sender != w.Address() {
		t.Fatal("tx not signed by wallet key")
	}
}

func TestKeyedWallet_WaitForReceipt(t *testing.T) {
	backend := &stubBackend{
		notFoundHits: 2,
		receipt:      &types.Receipt{Status: types.ReceiptStatusSuccessful},
	}
	w := newTestWallet(t, backend)

	receipt, err := w.WaitForReceipt(context.Background(), common.HexToHash("0x01"))
	if err != nil {
		t.Fatalf("WaitForReceipt failed: %v", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		t.Fatalf("unexpected receipt status: %d", receipt.Status)
	}
}

func TestKeyedWallet_WaitForReceipt_Reverted(t *testing.T) {
	backend := &stubBackend{
		receipt: &types.Receipt{Status: types.ReceiptStatusFailed},
	}
	w := newTestWallet(t, backend)

	if _, err := w.WaitForReceipt(context.Background(), common.HexToHash("0x01")); err == nil {
		t.Fatal("expected error for reverted tx")
	}
}

func TestKeyedWallet_WaitForReceipt_ContextCancelled(t *testing.T) {
	backend := &stubBackend{notFoundHits: 1 << 30}
	w := newTestWallet(t, backend)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := w.WaitForReceipt(ctx, common.HexToHash("0x01"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}
