/*
Package session provides an explicit, signer-bound connection to the
marketplace contract. A Session is opened once and shared by reference
between all the components that need to talk to the chain, it's never
recreated per call.
*/
package session

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ssoonwee/bonafide/pkg/market"
	"go.uber.org/zap"
)

// DefaultDialTimeout is used when Options.DialTimeout is not set.
const DefaultDialTimeout = 10 * time.Second

// ErrReadOnly is returned on attempt to send transaction via a session
// that has no signing key.
var ErrReadOnly = errors.New("read-only session")

// Options are used to open Session.
type Options struct {
	// Endpoint is an RPC node address, http(s):// and ws(s):// are
	// supported, the latter enables subscription-based awaiting.
	Endpoint string
	// ChainID is checked against the one returned by the node if set.
	ChainID *big.Int
	// Contract is the marketplace contract address.
	Contract common.Address
	// ABI is the contract interface.
	ABI abi.ABI
	// Key signs transactions, nil key makes a read-only session.
	Key *ecdsa.PrivateKey
	// GasLimit is used for every transaction if non-zero, otherwise
	// it's estimated by the node.
	GasLimit uint64
	// DialTimeout limits connection establishment time.
	DialTimeout time.Duration
}

// Session is an open connection to the RPC node bound to the contract and
// (optionally) the signing key.
type Session struct {
	client   *ethclient.Client
	contract *bind.BoundContract
	chainID  *big.Int
	sender   common.Address
	log      *zap.Logger

	// txLock serializes sending so that nonces are assigned in order.
	txLock sync.Mutex
	txOpts *bind.TransactOpts
}

// Open connects to the node, checks the chain ID and binds the contract and
// key. All failures wrap market.ErrConnection.
func Open(ctx context.Context, o Options, log *zap.Logger) (*Session, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, o.DialTimeout)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, o.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %w", market.ErrConnection, o.Endpoint, err)
	}
	chainID, err := client.ChainID(dialCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: chain ID: %w", market.ErrConnection, err)
	}
	if o.ChainID != nil && o.ChainID.Cmp(chainID) != 0 {
		client.Close()
		return nil, fmt.Errorf("%w: chain ID mismatch: expected %s, node has %s", market.ErrConnection, o.ChainID, chainID)
	}

	s := &Session{
		client:   client,
		contract: bind.NewBoundContract(o.Contract, o.ABI, client, client, client),
		chainID:  chainID,
		log:      log,
	}
	if o.Key != nil {
		s.txOpts, err = bind.NewKeyedTransactorWithChainID(o.Key, chainID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("%w: signer: %w", market.ErrConnection, err)
		}
		s.txOpts.GasLimit = o.GasLimit
		s.sender = crypto.PubkeyToAddress(o.Key.PublicKey)
	}
	log.Info("session opened",
		zap.String("endpoint", o.Endpoint),
		zap.Stringer("chain", chainID),
		zap.Stringer("contract", o.Contract),
		zap.Stringer("sender", s.sender),
		zap.Bool("signer", s.CanSign()))
	return s, nil
}

// Close releases the connection.
func (s *Session) Close() {
	s.client.Close()
	s.log.Debug("session closed")
}

// ChainID returns the chain ID of the connected node.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Sender returns the address of the key bound to the session (zero address
// for read-only sessions).
func (s *Session) Sender() common.Address {
	return s.sender
}

// CanSign returns true if the session has a signing key.
func (s *Session) CanSign() bool {
	return s.txOpts != nil
}

// Call performs a non-mutating contract call on behalf of the sender.
func (s *Session) Call(ctx context.Context, method string, params ...any) ([]any, error) {
	var out []any
	err := s.contract.Call(&bind.CallOpts{Context: ctx, From: s.sender}, &out, method, params...)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Transact signs and sends a contract method call transaction with the
// given value attached.
func (s *Session) Transact(ctx context.Context, value *big.Int, method string, params ...any) (*types.Transaction, error) {
	if s.txOpts == nil {
		return nil, ErrReadOnly
	}
	s.txLock.Lock()
	defer s.txLock.Unlock()

	opts := *s.txOpts
	opts.Context = ctx
	opts.Value = value
	return s.contract.Transact(&opts, method, params...)
}

// BlockNumber returns the latest block number.
func (s *Session) BlockNumber(ctx context.Context) (uint64, error) {
	return s.client.BlockNumber(ctx)
}

// TransactionReceipt returns the receipt of a mined transaction,
// ethereum.NotFound is returned for transactions not mined yet.
func (s *Session) TransactionReceipt(ctx context.Context, h common.Hash) (*types.Receipt, error) {
	return s.client.TransactionReceipt(ctx, h)
}

// SubscribeNewHead subscribes to new block headers, it only works for
// websocket endpoints.
func (s *Session) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	return s.client.SubscribeNewHead(ctx, ch)
}
