package sdk

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/openclearing/clearing-sdk-go/pkg/clearing"
	"github.com/openclearing/clearing-sdk-go/pkg/config"
	"github.com/openclearing/clearing-sdk-go/pkg/custody"
	"github.com/openclearing/clearing-sdk-go/pkg/session"
	"github.com/openclearing/clearing-sdk-go/pkg/wallet"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// init configures a default global zap logger for the SDK. Applications may
// replace it with zap.ReplaceGlobals(...) if they need custom logging.
func init() {
	c := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := c.Build()
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(logger)
}

// SessionManager owns the session for exactly one wallet identity: one
// clearing link, one custody client, one canonical Session driven by the
// state machine. It is constructed when the identity becomes available and
// must be disposed with Close when the identity changes or disconnects.
// Callers serialize operations on the same manager; link push events are
// applied internally under the manager's lock.
type SessionManager struct {
	cfg     *config.Config
	wallet  wallet.Adapter
	link    clearing.Link
	custody *custody.Client

	mu      sync.Mutex
	machine *session.Machine
	bus     *session.Bus

	pending       *PendingChannel
	lastChannelID [32]byte

	retry             RetryPolicy
	reconnectDisabled bool
	closed            bool

	// now is the clock used for zombie detection; tests substitute it.
	now func() time.Time

	unsubscribe func()
}

// New composes a SessionManager from explicit collaborators. The config must
// already be validated.
func New(cfg *config.Config, w wallet.Adapter, link clearing.Link, custodyClient *custody.Client) *SessionManager {
	bus := session.NewBus()
	m := &SessionManager{
		cfg:     cfg,
		wallet:  w,
		link:    link,
		custody: custodyClient,
		bus:     bus,
		machine: session.NewMachine(session.NewSession(cfg.Environment.Name)),
		retry:   policyFromConfig(cfg.Reconnect),
		now:     time.Now,
	}
	m.unsubscribe = link.Subscribe(m.onLinkEvent)
	return m
}

// NewFromConfig validates the config and builds the default collaborators: a
// keyed wallet from the configured private key, a websocket clearing link and
// a custody contract client.
func NewFromConfig(cfg *config.Config) (*SessionManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	chainID, ok := new(big.Int).SetString(cfg.Environment.ChainID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain ID %q", cfg.Environment.ChainID)
	}

	w, err := wallet.NewKeyedWallet(cfg.PrivateKey, cfg.RPCAddr, chainID)
	if err != nil {
		return nil, fmt.Errorf("init wallet: %w", err)
	}
	if cfg.Debug {
		zap.L().Debug("signer address", zap.String("addr", w.Address().Hex()))
	}

	custodyClient, err := custody.NewClient(common.HexToAddress(cfg.CustodyAddr), cfg.RPCAddr)
	if err != nil {
		return nil, fmt.Errorf("init custody client: %w", err)
	}

	link := clearing.NewWSLink(cfg.ClearingURL, clearing.WSConfig{
		HandshakeTimeout: cfg.Timeouts.Dial,
		RequestTimeout:   cfg.Timeouts.Request,
		PingInterval:     clearing.DefaultWSConfig.PingInterval,
	})

	return New(cfg, w, link, custodyClient), nil
}

// Session returns a consistent snapshot of the current session.
func (m *SessionManager) Session() session.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Session().Snapshot()
}

// IsConnected reports whether the link handshake has completed (connected or
// any later state).
func (m *SessionManager) IsConnected() bool {
	switch m.Session().State {
	case session.StateConnected, session.StateAuthenticating,
		session.StateAuthenticated, session.StateSessionReady:
		return true
	}
	return false
}

// IsReady reports whether the session is fully established for channel use.
func (m *SessionManager) IsReady() bool {
	return m.Session().State == session.StateSessionReady
}

// SessionID returns the clearing-service session identifier, or empty before
// authentication.
func (m *SessionManager) SessionID() string {
	return m.Session().SessionID
}

// Subscribe registers an observer for session snapshots and returns its
// unsubscribe function. Observers are independent of each other.
func (m *SessionManager) Subscribe(handler func(session.Snapshot)) func() {
	return m.bus.Subscribe(handler)
}

// Connect establishes the clearing link. Valid from disconnected and from
// error (explicit retry).
func (m *SessionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if _, err := m.machine.Apply(session.EventConnect); err != nil {
		m.mu.Unlock()
		return err
	}
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)

	if err := m.link.Connect(ctx); err != nil {
		m.fail(fmt.Sprintf("connect: %v", err))
		return fmt.Errorf("%w: %v", session.ErrConnection, err)
	}
	return nil
}

// Authenticate proves the wallet identity to the clearing service: it fetches
// the service challenge, has the wallet personal-sign it, and presents the
// signature. The resulting auth events advance the state machine.
func (m *SessionManager) Authenticate(ctx context.Context) error {
	m.mu.Lock()
	if _, err := m.machine.Apply(session.EventAuthenticate); err != nil {
		m.mu.Unlock()
		return err
	}
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)

	challenge, err := m.link.Challenge(ctx, m.wallet.Address())
	if err != nil {
		return m.authFailed(fmt.Sprintf("fetch challenge: %v", err))
	}

	signature, err := m.wallet.SignMessage(ctx, challenge)
	if err != nil {
		return m.authFailed(fmt.Sprintf("wallet signing rejected: %v", err))
	}

	if err := m.link.Authenticate(ctx, m.wallet.Address(), signature); err != nil {
		// The link already dispatched authFailed for service rejections;
		// transport errors still need the transition.
		m.mu.Lock()
		state := m.machine.Session().State()
		m.mu.Unlock()
		if state == session.StateAuthenticating {
			return m.authFailed(fmt.Sprintf("authenticate: %v", err))
		}
		return fmt.Errorf("%w: %v", session.ErrAuth, err)
	}
	return nil
}

// Disconnect tears the session down explicitly: the link is closed without a
// reconnect and the session resets to disconnected.
func (m *SessionManager) Disconnect() {
	_ = m.link.Close()

	m.mu.Lock()
	m.pending = nil
	_, _ = m.machine.Apply(session.EventDisconnect)
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)
}

// DisableReconnect switches automatic reconnection off. The switch is
// one-way: once disabled, link loss transitions directly to disconnected
// with no connect attempt. Intended after a high-value operation to avoid
// forcing the user through repeated wallet-signature prompts.
func (m *SessionManager) DisableReconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectDisabled = true
}

// Close releases the manager: the link subscription is dropped, the link is
// closed and the session resets. The manager must not be used afterwards.
func (m *SessionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.Disconnect()
}

// onLinkEvent feeds clearing-service push events into the state machine.
// Events invalid for the current state (duplicates, out-of-order deliveries)
// are rejected by the edge table and dropped. Snapshots are taken under the
// lock and published after it is released, so observer handlers may call
// back into the manager.
func (m *SessionManager) onLinkEvent(ev clearing.Event) {
	m.mu.Lock()

	switch ev.Type {
	case clearing.EventConnected:
		if _, err := m.machine.Apply(session.EventLinkConnected); err != nil {
			m.mu.Unlock()
			return
		}
		snap := m.machine.Session().Snapshot()
		m.mu.Unlock()
		m.bus.Publish(snap)

	case clearing.EventAuthSucceeded:
		if _, err := m.machine.Apply(session.EventAuthSucceeded); err != nil {
			m.mu.Unlock()
			return
		}
		s := m.machine.Session()
		if err := s.SetSessionID(ev.SessionID); err != nil {
			zap.L().Warn("Duplicate session ID assignment dropped", zap.Error(err))
		}
		s.SetChannelsEnabled(ev.ChannelsEnabled)
		snap := s.Snapshot()
		m.mu.Unlock()
		m.bus.Publish(snap)

	case clearing.EventAuthFailed:
		if _, err := m.machine.Apply(session.EventAuthFailed); err != nil {
			m.mu.Unlock()
			return
		}
		m.machine.Session().SetError(fmt.Sprintf("%v: %s", session.ErrAuth, ev.Reason))
		snap := m.machine.Session().Snapshot()
		m.mu.Unlock()
		m.bus.Publish(snap)

	case clearing.EventBalanceUpdate:
		if ev.Balance == nil {
			m.mu.Unlock()
			return
		}
		raw, ok := new(big.Int).SetString(ev.Balance.Raw, 10)
		if !ok {
			zap.L().Warn("Unparsable balance push", zap.String("raw", ev.Balance.Raw))
			m.mu.Unlock()
			return
		}
		m.machine.Session().SetBalance(session.Balance{
			Raw:      raw,
			Decimals: ev.Balance.Decimals,
			Symbol:   ev.Balance.Symbol,
		})
		snap := m.machine.Session().Snapshot()
		m.mu.Unlock()
		m.bus.Publish(snap)

	case clearing.EventLinkClosed:
		m.pending = nil
		if m.reconnectDisabled || m.closed {
			_, _ = m.machine.Apply(session.EventDisconnect)
			snap := m.machine.Session().Snapshot()
			m.mu.Unlock()
			m.bus.Publish(snap)
			return
		}
		_, _ = m.machine.Apply(session.EventLinkError)
		m.machine.Session().SetError(fmt.Sprintf("%v: %s", session.ErrConnection, ev.Reason))
		snap := m.machine.Session().Snapshot()
		retry := m.retry
		m.mu.Unlock()
		m.bus.Publish(snap)
		go m.reconnect(retry)

	default:
		m.mu.Unlock()
		zap.L().Debug("Unknown link event", zap.String("type", string(ev.Type)))
	}
}

// reconnect runs the bounded retry loop after an unexpected link loss.
func (m *SessionManager) reconnect(policy RetryPolicy) {
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		policy.sleep(attempt)

		m.mu.Lock()
		stop := m.reconnectDisabled || m.closed
		m.mu.Unlock()
		if stop {
			return
		}

		err := m.Connect(context.Background())
		if err == nil {
			zap.L().Info("Reconnected to clearing service", zap.Int("attempt", attempt))
			return
		}
		zap.L().Warn("Reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", policy.MaxAttempts),
			zap.Error(err))
	}
	zap.L().Error("Giving up on reconnect", zap.Int("attempts", policy.MaxAttempts))
}

// fail records an unrecoverable link failure.
func (m *SessionManager) fail(msg string) {
	m.mu.Lock()
	m.machine.Fail(msg)
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)
}

// authFailed applies the auth-failure transition, stores the message and
// returns the wrapped taxonomy error.
func (m *SessionManager) authFailed(msg string) error {
	m.mu.Lock()
	if _, err := m.machine.Apply(session.EventAuthFailed); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", session.ErrAuth, msg)
	}
	m.machine.Session().SetError(msg)
	snap := m.machine.Session().Snapshot()
	m.mu.Unlock()
	m.bus.Publish(snap)
	return fmt.Errorf("%w: %s", session.ErrAuth, msg)
}

// setErrorMessage stores a message on the session without a state change.
func (m *SessionManager) setErrorMessage(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.machine.Session().SetError(msg)
}
