package config

import (
	"errors"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds all SDK settings required to initialize the clearing link and
// the custody contract client. Use Validate to fill implicit defaults and to
// check for required fields.
type Config struct {
	// Environment selects the deployment target (sandbox or production).
	Environment Environment `json:"environment" yaml:"environment"`
	// ClearingURL is the websocket endpoint of the clearing service (required).
	ClearingURL string `json:"clearing_url" yaml:"clearing_url" env:"CLEARING_URL"`
	// RPCAddr is the Ethereum RPC endpoint URL (required).
	RPCAddr string `json:"rpc_addr" yaml:"rpc_addr" env:"CLEARING_RPC_ADDR"`
	// CustodyAddr is the hex address of the on-chain custody contract (required).
	CustodyAddr string `json:"custody_addr" yaml:"custody_addr" env:"CLEARING_CUSTODY_ADDR"`
	// PrivateKey is the hex-encoded ECDSA private key used by the default
	// keyed wallet (optional if the caller supplies its own wallet adapter).
	PrivateKey string `json:"private_key" yaml:"private_key" env:"CLEARING_PRIVATE_KEY"`
	// Debug enables verbose logging.
	Debug bool `json:"debug" yaml:"debug" env:"CLEARING_DEBUG,default=false"`
	// Timeouts configures per-operation timeouts. See Timeouts.WithDefaults for defaults.
	Timeouts Timeouts `json:"timeouts" yaml:"timeouts"`
	// Reconnect tunes the automatic reconnect policy. See Reconnect.WithDefaults.
	Reconnect Reconnect `json:"reconnect" yaml:"reconnect"`
}

// Environment describes a clearing-service deployment (name and chain ID).
// ChainID is used for EIP-155 signing; Name is the tag stored on the Session.
type Environment struct {
	Name    string `json:"name" env:"CLEARING_ENV_NAME,default="`
	ChainID string `json:"chain_id" env:"CLEARING_ENV_CHAIN_ID,default="`
}

// Sandbox is a predefined Environment for the Sepolia-backed sandbox deployment.
var Sandbox = Environment{
	Name:    "sandbox",
	ChainID: "11155111",
}

// Production is a predefined Environment for the mainnet-backed deployment.
var Production = Environment{
	Name:    "production",
	ChainID: "1",
}

// Timeouts controls SDK operation deadlines.
// Zero values will be replaced by sane defaults in WithDefaults.
type Timeouts struct {
	Dial        time.Duration // websocket/RPC dial
	Request     time.Duration // clearing-service request round-trip
	ChainRead   time.Duration // eth_call, balance etc
	ChainSubmit time.Duration // send tx
	ReceiptWait time.Duration // wait tx
}

// Reconnect tunes the bounded automatic reconnect attempted after an
// unexpected link loss. Zero values are replaced by WithDefaults.
type Reconnect struct {
	MaxAttempts    int           `env:"CLEARING_RECONNECT_MAX_ATTEMPTS,default=0"`
	InitialBackoff time.Duration `env:"CLEARING_RECONNECT_INITIAL_BACKOFF,default=0"`
	MaxBackoff     time.Duration `env:"CLEARING_RECONNECT_MAX_BACKOFF,default=0"`
}

// Validate normalizes the configuration by applying implicit defaults for
// Environment (defaults to Sandbox), Timeouts and Reconnect, and verifies
// that ClearingURL, RPCAddr and CustodyAddr are provided.
func (c *Config) Validate() error {

	if c.Environment.Name == "" {
		c.Environment = Sandbox
	}

	if c.ClearingURL == "" {
		return errors.New("clearing service URL is required")
	}

	if c.RPCAddr == "" {
		return errors.New("RPC address is required")
	}

	if c.CustodyAddr == "" {
		return errors.New("custody contract address is required")
	}

	c.Timeouts = c.Timeouts.WithDefaults()
	c.Reconnect = c.Reconnect.WithDefaults()

	return nil
}

// FromEnv decodes a Config from process environment variables (CLEARING_*)
// and validates it.
func FromEnv() (*Config, error) {
	var c Config
	if err := envdecode.Decode(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// WithDefaults returns a copy of t with zero values replaced by defaults:
//
//	Dial:        5s
//	Request:     10s
//	ChainRead:   12s
//	ChainSubmit: 25s
//	ReceiptWait: 90s
func (t Timeouts) WithDefaults() Timeouts {
	tt := t
	if tt.Dial == 0 {
		tt.Dial = 5 * time.Second
	}
	if tt.Request == 0 {
		tt.Request = 10 * time.Second
	}
	if tt.ChainRead == 0 {
		tt.ChainRead = 12 * time.Second
	}
	if tt.ChainSubmit == 0 {
		tt.ChainSubmit = 25 * time.Second
	}
	if tt.ReceiptWait == 0 {
		tt.ReceiptWait = 90 * time.Second
	}
	return tt
}

// WithDefaults returns a copy of r with zero values replaced by defaults:
//
//	MaxAttempts:    5
//	InitialBackoff: 1s
//	MaxBackoff:     30s
func (r Reconnect) WithDefaults() Reconnect {
	rr := r
	if rr.MaxAttempts == 0 {
		rr.MaxAttempts = 5
	}
	if rr.InitialBackoff == 0 {
		rr.InitialBackoff = time.Second
	}
	if rr.MaxBackoff == 0 {
		rr.MaxBackoff = 30 * time.Second
	}
	return rr
}
