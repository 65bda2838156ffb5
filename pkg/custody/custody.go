package custody

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// custodyABI is the fixed ABI surface of the custody contract.
const custodyABI = `[
	{"type":"function","name":"openSession","stateMutability":"payable","inputs":[{"name":"durationSeconds","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"closeSession","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"isSessionActive","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"getSessionBalance","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"sessions","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[
		{"name":"user","type":"address"},
		{"name":"deposit","type":"uint256"},
		{"name":"spent","type":"uint256"},
		{"name":"nonce","type":"uint256"},
		{"name":"expiry","type":"uint256"},
		{"name":"active","type":"bool"}
	]},
	{"type":"function","name":"depositETH","stateMutability":"payable","inputs":[{"name":"channelId","type":"bytes32"}],"outputs":[]}
]`

// SessionRecord is the custody contract's bookkeeping entry for one user,
// decoded from the named struct fields of the sessions() view.
type SessionRecord struct {
	User    common.Address
	Deposit *big.Int
	Spent   *big.Int
	Nonce   *big.Int
	Expiry  *big.Int
	Active  bool
}

// IsZombie reports whether the record is still marked active past its
// recorded expiry, i.e. the contract's bookkeeping is stale relative to
// wall-clock time. A zombie session must never be treated as usable for
// payments; only the caller can decide to force-close and reopen.
func (r SessionRecord) IsZombie(now time.Time) bool {
	if !r.Active || r.Expiry == nil {
		return false
	}
	return r.Expiry.Cmp(big.NewInt(now.Unix())) < 0
}

// Client is a thin typed wrapper over the custody contract.
type Client struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewClient dials the RPC endpoint and binds the custody contract at the
// given address.
func NewClient(address common.Address, rpcAddr string) (*Client, error) {
	client, err := ethclient.Dial(rpcAddr)
	if err != nil {
		zap.L().Error("Failed to ethdial", zap.Error(err))
		return nil, err
	}
	return NewClientWithBackend(address, client)
}

// NewClientWithBackend binds the custody contract over an existing caller
// backend. Used directly by tests.
func NewClientWithBackend(address common.Address, caller bind.ContractCaller) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(custodyABI))
	if err != nil {
		return nil, fmt.Errorf("parse custody ABI: %w", err)
	}
	return &Client{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, caller, nil, nil),
	}, nil
}

// Address returns the bound contract address.
func (c *Client) Address() common.Address {
	return c.address
}

// IsSessionActive returns the contract's active flag for the user.
func (c *Client) IsSessionActive(ctx context.Context, user common.Address) (bool, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "isSessionActive", user)
	if err != nil {
		return false, fmt.Errorf("isSessionActive: %w", err)
	}
	return *abi.ConvertType(out[0], new(bool)).(*bool), nil
}

// GetSessionBalance returns the remaining session balance for the user.
func (c *Client) GetSessionBalance(ctx context.Context, user common.Address) (*big.Int, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "getSessionBalance", user)
	if err != nil {
		return nil, fmt.Errorf("getSessionBalance: %w", err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Sessions returns the full bookkeeping record for the user, decoded from
// the view's named fields.
func (c *Client) Sessions(ctx context.Context, user common.Address) (SessionRecord, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "sessions", user)
	if err != nil {
		return SessionRecord{}, fmt.Errorf("sessions: %w", err)
	}

	record := SessionRecord{
		User:    *abi.ConvertType(out[0], new(common.Address)).(*common.Address),
		Deposit: *abi.ConvertType(out[1], new(*big.Int)).(**big.Int),
		Spent:   *abi.ConvertType(out[2], new(*big.Int)).(**big.Int),
		Nonce:   *abi.ConvertType(out[3], new(*big.Int)).(**big.Int),
		Expiry:  *abi.ConvertType(out[4], new(*big.Int)).(**big.Int),
		Active:  *abi.ConvertType(out[5], new(bool)).(*bool),
	}
	zap.L().Debug("Custody session record", zap.Any("record", record))
	return record, nil
}

// PackOpenSession returns the calldata for openSession(durationSeconds).
// The deposit travels as the transaction value.
func (c *Client) PackOpenSession(durationSeconds uint64) ([]byte, error) {
	return c.abi.Pack("openSession", new(big.Int).SetUint64(durationSeconds))
}

// PackCloseSession returns the calldata for closeSession().
func (c *Client) PackCloseSession() ([]byte, error) {
	return c.abi.Pack("closeSession")
}

// PackDepositETH returns the calldata for depositETH(channelId). The amount
// travels as the transaction value.
func (c *Client) PackDepositETH(channelID [32]byte) ([]byte, error) {
	return c.abi.Pack("depositETH", channelID)
}
