package clearing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	// ErrNotConnected is returned for calls made before Connect succeeds.
	ErrNotConnected = errors.New("clearing link not connected")
	// ErrAlreadyConnected is returned when Connect is called on a live link.
	ErrAlreadyConnected = errors.New("clearing link already connected")
)

// WSConfig tunes the websocket link.
type WSConfig struct {
	// HandshakeTimeout bounds the websocket handshake.
	HandshakeTimeout time.Duration
	// RequestTimeout bounds each request round-trip when the caller's context
	// carries no deadline.
	RequestTimeout time.Duration
	// PingInterval is how often keepalive pings are written.
	PingInterval time.Duration
}

// DefaultWSConfig provides sensible defaults for clearing-service connections.
var DefaultWSConfig = WSConfig{
	HandshakeTimeout: 5 * time.Second,
	RequestTimeout:   10 * time.Second,
	PingInterval:     15 * time.Second,
}

// WSLink is the websocket implementation of Link. Responses are correlated to
// requests by ID; frames without an ID are push events fanned out to
// subscribers. A write mutex serializes frames, and a keepalive ping loop
// runs for the lifetime of each connection.
type WSLink struct {
	url string
	cfg WSConfig

	mu      sync.Mutex // guards conn, sinks, closing
	conn    *websocket.Conn
	sinks   map[string]chan *response
	closing bool

	writeMu sync.Mutex

	subMu   sync.Mutex
	nextSub int
	subs    map[int]func(Event)
}

var _ Link = (*WSLink)(nil)

// NewWSLink returns an unconnected link for the given websocket URL.
func NewWSLink(url string, cfg WSConfig) *WSLink {
	if cfg.HandshakeTimeout == 0 {
		cfg = DefaultWSConfig
	}
	return &WSLink{
		url:   url,
		cfg:   cfg,
		sinks: make(map[string]chan *response),
		subs:  make(map[int]func(Event)),
	}
}

// Connect dials the clearing service and starts the read and keepalive
// loops. On success a connected event is dispatched to subscribers.
func (l *WSLink) Connect(ctx context.Context) error {
	l.mu.Lock()
	if l.conn != nil {
		l.mu.Unlock()
		return ErrAlreadyConnected
	}
	l.closing = false
	l.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout:  l.cfg.HandshakeTimeout,
		EnableCompression: true,
	}
	conn, _, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return fmt.Errorf("dial clearing service: %w", err)
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	go l.readLoop(conn)
	go l.pingLoop(conn)

	zap.L().Debug("Clearing link connected", zap.String("url", l.url))
	l.dispatch(Event{Type: EventConnected})
	return nil
}

// Challenge fetches the auth challenge bytes for the given address.
func (l *WSLink) Challenge(ctx context.Context, address common.Address) ([]byte, error) {
	var res challengeResult
	err := l.call(ctx, methodChallenge, challengeParams{Address: address.Hex()}, &res)
	if err != nil {
		return nil, err
	}
	return []byte(res.Challenge), nil
}

// Authenticate presents the wallet signature. On success an authSucceeded
// event (carrying the assigned session ID and capability flags) is dispatched
// to subscribers before Authenticate returns; on service rejection an
// authFailed event is dispatched and an error returned.
func (l *WSLink) Authenticate(ctx context.Context, address common.Address, signature []byte) error {
	params := authParams{
		Address:   address.Hex(),
		Signature: "0x" + hex.EncodeToString(signature),
	}

	var res authResult
	if err := l.call(ctx, methodAuthenticate, params, &res); err != nil {
		var werr *wireError
		if errors.As(err, &werr) {
			l.dispatch(Event{Type: EventAuthFailed, Reason: werr.Message})
		}
		return err
	}

	l.dispatch(Event{
		Type:            EventAuthSucceeded,
		SessionID:       res.SessionID,
		ChannelsEnabled: res.ChannelsEnabled,
	})
	return nil
}

// RequestChannel negotiates channel terms off-chain. The deposit must be a
// positive amount.
func (l *WSLink) RequestChannel(ctx context.Context, partner common.Address, deposit decimal.Decimal) (PendingTerms, error) {
	if deposit.Sign() <= 0 {
		return PendingTerms{}, fmt.Errorf("deposit must be positive, got %s", deposit)
	}

	params := createChannelParams{
		Partner: partner.Hex(),
		Deposit: deposit.String(),
	}

	var terms PendingTerms
	if err := l.call(ctx, methodCreateChannel, params, &terms); err != nil {
		return PendingTerms{}, err
	}
	return terms, nil
}

// SendPayment relays a payment. It returns once the clearing service
// acknowledges settlement; no on-chain interaction is involved.
func (l *WSLink) SendPayment(ctx context.Context, amount decimal.Decimal, recipient common.Address) error {
	if amount.Sign() <= 0 {
		return fmt.Errorf("payment amount must be positive, got %s", amount)
	}

	params := transferParams{
		Amount:    amount.String(),
		Recipient: recipient.Hex(),
	}
	return l.call(ctx, methodTransfer, params, nil)
}

// RequestTestTokens asks the sandbox faucet to fund the identity.
func (l *WSLink) RequestTestTokens(ctx context.Context) (bool, error) {
	var res faucetResult
	if err := l.call(ctx, methodFaucet, nil, &res); err != nil {
		return false, err
	}
	return res.Funded, nil
}

// Subscribe registers a push-event handler.
func (l *WSLink) Subscribe(handler func(Event)) func() {
	l.subMu.Lock()
	defer l.subMu.Unlock()

	id := l.nextSub
	l.nextSub++
	l.subs[id] = handler

	return func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		delete(l.subs, id)
	}
}

// Close tears the connection down without emitting a linkClosed event.
func (l *WSLink) Close() error {
	l.mu.Lock()
	l.closing = true
	conn := l.conn
	l.conn = nil
	l.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// IsConnected reports whether the link currently holds a live connection.
func (l *WSLink) IsConnected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn != nil
}

// call sends one request frame and blocks for its correlated response.
func (l *WSLink) call(ctx context.Context, method string, params any, result any) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	if _, ok := ctx.Deadline(); !ok && l.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.RequestTimeout)
		defer cancel()
	}

	req := request{
		ID:     uuid.NewString(),
		Method: method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		req.Params = raw
	}

	sink := make(chan *response, 1)
	l.mu.Lock()
	l.sinks[req.ID] = sink
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		delete(l.sinks, req.ID)
		l.mu.Unlock()
	}()

	l.writeMu.Lock()
	err := conn.WriteJSON(req)
	l.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s request: %w", method, err)
	}

	select {
	case res := <-sink:
		if res.Error != nil {
			return res.Error
		}
		if result != nil && res.Result != nil {
			if err := json.Unmarshal(res.Result, result); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop routes incoming frames: responses with an ID go to their sink,
// frames carrying an event go to subscribers. When the connection drops
// unexpectedly a linkClosed event is dispatched.
func (l *WSLink) readLoop(conn *websocket.Conn) {
	for {
		var res response
		if err := conn.ReadJSON(&res); err != nil {
			l.handleClosure(conn, err)
			return
		}

		switch {
		case res.ID != "":
			l.mu.Lock()
			sink, ok := l.sinks[res.ID]
			l.mu.Unlock()
			if ok {
				sink <- &res
			} else {
				zap.L().Debug("Response for unknown request", zap.String("id", res.ID))
			}
		case res.Event != nil:
			l.dispatch(*res.Event)
		default:
			zap.L().Debug("Dropped frame without id or event")
		}
	}
}

// pingLoop writes keepalive pings until the connection goes away.
func (l *WSLink) pingLoop(conn *websocket.Conn) {
	if l.cfg.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(l.cfg.PingInterval)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		live := l.conn == conn
		l.mu.Unlock()
		if !live {
			return
		}

		l.writeMu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
		l.writeMu.Unlock()
		if err != nil {
			return
		}
	}
}

func (l *WSLink) handleClosure(conn *websocket.Conn, err error) {
	l.mu.Lock()
	deliberate := l.closing || l.conn != conn
	if l.conn == conn {
		l.conn = nil
	}
	// Unblock any in-flight calls. A sink that already holds its response is
	// left alone.
	for id, sink := range l.sinks {
		select {
		case sink <- &response{ID: id, Error: &wireError{Message: "connection closed"}}:
		default:
		}
		delete(l.sinks, id)
	}
	l.mu.Unlock()

	if deliberate {
		return
	}

	zap.L().Warn("Clearing link lost", zap.Error(err))
	l.dispatch(Event{Type: EventLinkClosed, Reason: err.Error()})
}

func (l *WSLink) dispatch(ev Event) {
	l.subMu.Lock()
	handlers := make([]func(Event), 0, len(l.subs))
	for _, h := range l.subs {
		handlers = append(handlers, h)
	}
	l.subMu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}
