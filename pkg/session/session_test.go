package session

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSession_BalanceGatedOnReady(t *testing.T) {
	s := NewSession("sandbox")
	s.SetBalance(Balance{Raw: big.NewInt(1500000), Decimals: 6, Symbol: "USDC"})

	if _, err := s.Balance(); !errors.Is(err, ErrNoBalance) {
		t.Fatalf("expected ErrNoBalance outside session_ready, got %v", err)
	}

	s.state = StateSessionReady
	bal, err := s.Balance()
	if err != nil {
		t.Fatalf("Balance failed in session_ready: %v", err)
	}
	if bal.Symbol != "USDC" {
		t.Fatalf("unexpected symbol: %s", bal.Symbol)
	}
	if got := bal.Decimal().String(); got != "1.5" {
		t.Fatalf("unexpected decimal balance: %s", got)
	}
}

func TestSession_SnapshotOmitsBalanceOutsideReady(t *testing.T) {
	s := NewSession("sandbox")
	s.state = StateAuthenticated
	s.SetBalance(Balance{Raw: big.NewInt(10), Decimals: 0, Symbol: "TST"})

	if snap := s.Snapshot(); snap.Balance != nil {
		t.Fatal("snapshot exposes balance outside session_ready")
	}

	s.state = StateSessionReady
	if snap := s.Snapshot(); snap.Balance == nil {
		t.Fatal("snapshot missing balance in session_ready")
	}
}

func TestSession_ChannelOpenHash(t *testing.T) {
	s := NewSession("sandbox")

	if _, ok := s.ChannelOpenHash(); ok {
		t.Fatal("unexpected channel hash on fresh session")
	}

	h := common.HexToHash("0xabc0000000000000000000000000000000000000000000000000000000000001")
	s.SetChannelOpenHash(h)

	got, ok := s.ChannelOpenHash()
	if !ok || got != h {
		t.Fatalf("unexpected channel hash: %v (ok=%v)", got, ok)
	}
}

func TestBus_IndependentObservers(t *testing.T) {
	bus := NewBus()

	var a, b int
	unsubA := bus.Subscribe(func(Snapshot) { a++ })
	unsubB := bus.Subscribe(func(Snapshot) { b++ })

	bus.Publish(Snapshot{State: StateConnecting})
	unsubA()
	bus.Publish(Snapshot{State: StateConnected})
	unsubA() // second call is harmless

	if a != 1 {
		t.Fatalf("unsubscribed observer still invoked: %d", a)
	}
	if b != 2 {
		t.Fatalf("remaining observer missed snapshots: %d", b)
	}

	unsubB()
	if bus.Len() != 0 {
		t.Fatalf("expected empty bus, got %d observers", bus.Len())
	}
}
