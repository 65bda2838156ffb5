package config

import (
	"testing"
	"time"
)

// TestConfigValidate_AppliesDefaults verifies that Validate applies default
// values for Environment, Timeouts and Reconnect when they are not set.
func TestConfigValidate_AppliesDefaults(t *testing.T) {
	cfg := &Config{
		ClearingURL: "wss://clearing.example/ws",
		RPCAddr:     "wss://rpc.example",
		CustodyAddr: "0x00000000000000000000000000000000000000aa",
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}

	if cfg.Environment != Sandbox {
		t.Fatalf("expected default Sandbox environment, got %#v", cfg.Environment)
	}
	if cfg.Timeouts.ReceiptWait != 90*time.Second {
		t.Fatalf("unexpected ReceiptWait default: %v", cfg.Timeouts.ReceiptWait)
	}
	if cfg.Reconnect.MaxAttempts != 5 {
		t.Fatalf("unexpected MaxAttempts default: %d", cfg.Reconnect.MaxAttempts)
	}
}

// TestConfigValidate_RequiredFields verifies that Validate rejects configs
// missing the clearing URL, RPC address or custody address.
func TestConfigValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "missing clearing URL",
			cfg: Config{
				RPCAddr:     "wss://rpc.example",
				CustodyAddr: "0x00000000000000000000000000000000000000aa",
			},
		},
		{
			name: "missing RPC address",
			cfg: Config{
				ClearingURL: "wss://clearing.example/ws",
				CustodyAddr: "0x00000000000000000000000000000000000000aa",
			},
		},
		{
			name: "missing custody address",
			cfg: Config{
				ClearingURL: "wss://clearing.example/ws",
				RPCAddr:     "wss://rpc.example",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

// TestTimeoutsWithDefaults verifies that WithDefaults preserves explicitly set
// timeout values and fills in defaults for zero values.
func TestTimeoutsWithDefaults(t *testing.T) {
	in := Timeouts{
		Dial:      2 * time.Second,
		ChainRead: 3 * time.Second,
	}

	out := in.WithDefaults()

	if out.Dial != 2*time.Second {
		t.Fatalf("Dial overridden: %v", out.Dial)
	}
	if out.ChainRead != 3*time.Second {
		t.Fatalf("ChainRead overridden: %v", out.ChainRead)
	}
	if out.Request != 10*time.Second {
		t.Fatalf("unexpected Request default: %v", out.Request)
	}
	if out.ChainSubmit != 25*time.Second {
		t.Fatalf("unexpected ChainSubmit default: %v", out.ChainSubmit)
	}
	if out.ReceiptWait != 90*time.Second {
		t.Fatalf("unexpected ReceiptWait default: %v", out.ReceiptWait)
	}
}

// TestReconnectWithDefaults verifies reconnect defaulting and that explicit
// values survive.
func TestReconnectWithDefaults(t *testing.T) {
	out := Reconnect{MaxAttempts: 2}.WithDefaults()

	if out.MaxAttempts != 2 {
		t.Fatalf("MaxAttempts overridden: %d", out.MaxAttempts)
	}
	if out.InitialBackoff != time.Second {
		t.Fatalf("unexpected InitialBackoff: %v", out.InitialBackoff)
	}
	if out.MaxBackoff != 30*time.Second {
		t.Fatalf("unexpected MaxBackoff: %v", out.MaxBackoff)
	}
}

// TestFromEnv verifies environment decoding of the required fields.
func TestFromEnv(t *testing.T) {
	t.Setenv("CLEARING_URL", "wss://clearing.example/ws")
	t.Setenv("CLEARING_RPC_ADDR", "wss://rpc.example")
	t.Setenv("CLEARING_CUSTODY_ADDR", "0x00000000000000000000000000000000000000aa")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.ClearingURL != "wss://clearing.example/ws" {
		t.Fatalf("unexpected ClearingURL: %s", cfg.ClearingURL)
	}
	if cfg.Environment != Sandbox {
		t.Fatalf("expected Sandbox default, got %#v", cfg.Environment)
	}
}
