/*
Package gateway is the only component that talks to the marketplace
contract. It performs non-mutating reads, submits transactions and awaits
their confirmation, classifying every failure into the market error
taxonomy. It never retries anything by itself.
*/
package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/waiter"
	"go.uber.org/zap"
)

// ErrReverted is returned when transaction was included into the chain, but
// its execution failed.
var ErrReverted = errors.New("transaction reverted")

// RPCActor is an interface required from the session to read from and
// write to the contract.
type RPCActor interface {
	waiter.RPCPollingBased

	Sender() common.Address
	CanSign() bool
	Call(ctx context.Context, method string, params ...any) ([]any, error)
	Transact(ctx context.Context, value *big.Int, method string, params ...any) (*types.Transaction, error)
}

// Config contains gateway options.
type Config struct {
	Waiter waiter.Config
}

// Gateway reads contract state and drives transactions through
// submission and confirmation.
type Gateway struct {
	act     RPCActor
	waiter  waiter.Waiter
	journal *Journal
	log     *zap.Logger
}

// Pending is a submitted, not yet confirmed transaction.
type Pending struct {
	ID     uuid.UUID
	Hash   common.Hash
	Method string
	Sender common.Address
	SentAt uint64
	Time   time.Time
}

// Receipt is a confirmed transaction.
type Receipt struct {
	Hash        common.Hash
	Method      string
	BlockNumber uint64
	GasUsed     uint64
	Logs        []*types.Log
}

// TxError is a transaction failure, it keeps the hash (if the transaction
// was sent at all) and the last known state. It wraps market.ErrTransaction.
type TxError struct {
	Hash   common.Hash
	Method string
	State  TxState
	Err    error
}

// Error implements the error interface.
func (e *TxError) Error() string {
	if e.Hash == (common.Hash{}) {
		return fmt.Sprintf("%s: %s: %s", market.ErrTransaction, e.Method, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s, %s): %s", market.ErrTransaction, e.Method, e.Hash, e.State, e.Err)
}

// Unwrap allows to check for both market.ErrTransaction and the cause.
func (e *TxError) Unwrap() []error {
	return []error{market.ErrTransaction, e.Err}
}

// New creates a Gateway using the given actor. The waiter is picked based on
// actor capabilities. Journal may be nil, transactions are not recorded then.
func New(act RPCActor, cfg Config, journal *Journal, log *zap.Logger) *Gateway {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gateway{
		act:     act,
		waiter:  waiter.New(act, cfg.Waiter),
		journal: journal,
		log:     log,
	}
}

// Sender returns the address transactions are sent from.
func (g *Gateway) Sender() common.Address {
	return g.act.Sender()
}

// CanSign returns true if the gateway can send transactions.
func (g *Gateway) CanSign() bool {
	return g.act.CanSign()
}

// Journal returns transaction journal used by the gateway (can be nil).
func (g *Gateway) Journal() *Journal {
	return g.journal
}

// Read performs a non-mutating contract call. Any failure is wrapped into
// market.ErrRead.
func (g *Gateway) Read(ctx context.Context, method string, args ...any) ([]any, error) {
	out, err := g.act.Call(ctx, method, args...)
	if err != nil {
		countCall(kindRead, method, err)
		return nil, fmt.Errorf("%w: %s: %w", market.ErrRead, method, err)
	}
	countCall(kindRead, method, nil)
	return out, nil
}

// Submit signs and sends a contract method call transaction with the given
// value (can be nil) attached. A sent transaction is recorded in the journal
// as TxSubmitted.
func (g *Gateway) Submit(ctx context.Context, method string, value *big.Int, args ...any) (*Pending, error) {
	if !g.act.CanSign() {
		return nil, fmt.Errorf("%w: %s: no signer bound to the session", market.ErrConnection, method)
	}
	sentAt, err := g.act.BlockNumber(ctx)
	if err != nil {
		countCall(kindWrite, method, err)
		return nil, fmt.Errorf("%w: block number: %w", market.ErrConnection, err)
	}
	tx, err := g.act.Transact(ctx, value, method, args...)
	if err != nil {
		countCall(kindWrite, method, err)
		g.log.Debug("transaction rejected", zap.String("method", method), zap.Error(err))
		return nil, &TxError{Method: method, State: TxUnknown, Err: err}
	}
	p := &Pending{
		ID:     uuid.New(),
		Hash:   tx.Hash(),
		Method: method,
		Sender: g.act.Sender(),
		SentAt: sentAt,
		Time:   time.Now(),
	}
	g.record(JournalEntry{
		ID:     p.ID,
		Hash:   p.Hash,
		Method: method,
		Sender: p.Sender,
		SentAt: sentAt,
		State:  TxSubmitted,
		Time:   p.Time,
	})
	g.log.Info("transaction sent",
		zap.String("method", method),
		zap.Stringer("hash", p.Hash),
		zap.Uint64("block", sentAt))
	return p, nil
}

// Wait awaits confirmation of the given transaction. Reverted transactions
// return TxError wrapping ErrReverted. If awaiting fails (timeout, context
// cancellation) the transaction stays TxSubmitted and TxError wraps the
// waiter error.
func (g *Gateway) Wait(ctx context.Context, p *Pending) (*Receipt, error) {
	rcpt, err := g.waiter.Wait(ctx, p.Hash, p.SentAt, nil)
	if err != nil {
		countCall(kindWrite, p.Method, err)
		g.log.Warn("transaction not confirmed",
			zap.String("method", p.Method),
			zap.Stringer("hash", p.Hash),
			zap.Error(err))
		return nil, &TxError{Hash: p.Hash, Method: p.Method, State: TxSubmitted, Err: err}
	}
	confirmationTimes.Observe(time.Since(p.Time).Seconds())

	entry := JournalEntry{
		ID:     p.ID,
		Hash:   p.Hash,
		Method: p.Method,
		Sender: p.Sender,
		SentAt: p.SentAt,
		State:  TxConfirmed,
		Time:   time.Now(),
	}
	if rcpt.BlockNumber != nil {
		entry.Block = rcpt.BlockNumber.Uint64()
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		entry.State = TxReverted
		g.record(entry)
		countCall(kindWrite, p.Method, ErrReverted)
		g.log.Warn("transaction reverted",
			zap.String("method", p.Method),
			zap.Stringer("hash", p.Hash),
			zap.Uint64("block", entry.Block))
		return nil, &TxError{Hash: p.Hash, Method: p.Method, State: TxReverted, Err: ErrReverted}
	}
	g.record(entry)
	countCall(kindWrite, p.Method, nil)
	g.log.Info("transaction confirmed",
		zap.String("method", p.Method),
		zap.Stringer("hash", p.Hash),
		zap.Uint64("block", entry.Block),
		zap.Uint64("gas", rcpt.GasUsed))
	return &Receipt{
		Hash:        p.Hash,
		Method:      p.Method,
		BlockNumber: entry.Block,
		GasUsed:     rcpt.GasUsed,
		Logs:        rcpt.Logs,
	}, nil
}

// Write is Submit followed by Wait.
func (g *Gateway) Write(ctx context.Context, method string, value *big.Int, args ...any) (*Receipt, error) {
	p, err := g.Submit(ctx, method, value, args...)
	if err != nil {
		return nil, err
	}
	return g.Wait(ctx, p)
}

func (g *Gateway) record(e JournalEntry) {
	if g.journal == nil {
		return
	}
	if err := g.journal.Put(e); err != nil {
		g.log.Warn("failed to update transaction journal", zap.Stringer("hash", e.Hash), zap.Error(err))
	}
}
