package clearing

import (
	"encoding/json"
	"fmt"
)

// Method names understood by the clearing service.
const (
	methodChallenge     = "auth_challenge"
	methodAuthenticate  = "auth_verify"
	methodCreateChannel = "create_channel"
	methodTransfer      = "transfer"
	methodFaucet        = "faucet"
)

// request is the envelope for client-initiated calls. ID correlates the
// response; push events arrive without an ID.
type request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// response is the envelope for both call responses (ID set) and push events
// (ID empty, Event set).
type response struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *wireError      `json:"error,omitempty"`
	Event  *Event          `json:"event,omitempty"`
}

// wireError is the error shape returned by the clearing service.
type wireError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *wireError) Error() string {
	return fmt.Sprintf("clearing service error %d: %s", e.Code, e.Message)
}

type challengeParams struct {
	Address string `json:"address"`
}

type challengeResult struct {
	Challenge string `json:"challenge"`
}

type authParams struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type authResult struct {
	SessionID       string `json:"session_id"`
	ChannelsEnabled bool   `json:"channels_enabled"`
}

type createChannelParams struct {
	Partner string `json:"partner"`
	Deposit string `json:"deposit"`
}

type transferParams struct {
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type faucetResult struct {
	Funded bool `json:"funded"`
}
