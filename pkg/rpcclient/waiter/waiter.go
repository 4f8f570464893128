/*
Package waiter provides a way to wait until a transaction is included into
the chain. Depending on the RPC client capabilities it's done either via new
head subscriptions (websocket endpoints) or via periodic polling.
*/
package waiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	// DefaultPollRetryCount is a threshold for a number of subsequent failed
	// attempts to get block number from the RPC server for PollingBased. If it
	// fails to retrieve it DefaultPollRetryCount times in a row then
	// transaction awaiting attempt is considered to be failed and an error is
	// returned.
	DefaultPollRetryCount = 3
	// DefaultPollInterval is the default time between subsequent polls.
	DefaultPollInterval = time.Second
	// DefaultMaxBlocks is the default number of blocks after the one the
	// transaction was sent at after which it's considered to be lost.
	DefaultMaxBlocks = 50
)

var (
	// ErrTxNotAccepted is returned when transaction wasn't accepted to the chain
	// after MaxBlocks blocks.
	ErrTxNotAccepted = errors.New("transaction was not accepted to chain")
	// ErrContextDone is returned when Waiter context has been done in the middle
	// of transaction awaiting process and no result was received yet.
	ErrContextDone = errors.New("waiter context done")
	// ErrAwaitingNotSupported is returned from Wait method if Waiter instance
	// doesn't support transaction awaiting. It's compatible with [errors.ErrUnsupported].
	ErrAwaitingNotSupported = fmt.Errorf("%w: awaiting", errors.ErrUnsupported)
	// ErrMissedEvent is returned when RPCEventBased subscription fails in the
	// middle of awaiting.
	ErrMissedEvent = errors.New("some event was missed")
)

type (
	// Waiter is an interface providing transaction awaiting functionality.
	Waiter interface {
		// Wait allows to wait until transaction will be included into the
		// chain. It can be used as a wrapper for transaction sending routine
		// and accepts transaction hash, the block number the transaction was
		// sent at and an error. It returns transaction receipt (that can be
		// both successful and reverted) or an error if transaction wasn't
		// accepted. "already known" err value is not treated as an error
		// because it means the transaction is in the pool already.
		Wait(ctx context.Context, h common.Hash, sentAt uint64, err error) (*types.Receipt, error)
	}
	// RPCPollingBased is an interface that enables transaction awaiting
	// functionality based on periodical BlockNumber and TransactionReceipt
	// polls.
	RPCPollingBased interface {
		BlockNumber(ctx context.Context) (uint64, error)
		TransactionReceipt(ctx context.Context, h common.Hash) (*types.Receipt, error)
	}
	// RPCEventBased is an interface that enables improved transaction awaiting
	// functionality based on new head notifications. RPCEventBased contains
	// RPCPollingBased under the hood and falls back to polling when
	// subscription-based awaiting fails.
	RPCEventBased interface {
		RPCPollingBased

		SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	}
)

// Null is a Waiter stub that doesn't support transaction awaiting functionality.
type Null struct{}

// PollingBased is a polling-based Waiter.
type PollingBased struct {
	polling RPCPollingBased
	config  PollConfig
}

// Config is a unified configuration for [Waiter] implementations that allows to
// customize awaiting behaviour.
type Config struct {
	PollConfig
	// PollOnly disables event-based awaiting even if it's supported by
	// the client.
	PollOnly bool
}

// PollConfig is a configuration for PollingBased waiter.
type PollConfig struct {
	// PollInterval is a time interval between subsequent polls. If not set,
	// DefaultPollInterval is used.
	PollInterval time.Duration
	// RetryCount is the number of retry attempts while fetching a subsequent
	// block number before an error is returned from Wait.
	RetryCount int
	// MaxBlocks is the number of blocks after which non-included transaction
	// is considered to be lost.
	MaxBlocks uint64
}

// EventBased is a subscription-based Waiter.
type EventBased struct {
	ws      RPCEventBased
	polling *PollingBased
}

// errIsAlreadyKnown checks for the error geth and most other nodes return
// when transaction is already in the pool.
func errIsAlreadyKnown(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already known") || strings.Contains(s, "already exists")
}

// New creates Waiter instance. It can be either event-based or polling-based,
// otherwise Waiter stub is returned. As a first argument it accepts
// RPCEventBased implementation, RPCPollingBased implementation or not an
// implementation of these two interfaces. It returns event-based waiter,
// polling-based waiter or a stub correspondingly.
func New(base any, config Config) Waiter {
	if eventW, ok := base.(RPCEventBased); ok && !config.PollOnly {
		return NewEventBased(eventW, config.PollConfig)
	}
	if pollW, ok := base.(RPCPollingBased); ok {
		return NewPollingBased(pollW, config.PollConfig)
	}
	return NewNull()
}

// NewNull creates an instance of Waiter stub.
func NewNull() Null {
	return Null{}
}

// Wait implements Waiter interface.
func (Null) Wait(ctx context.Context, h common.Hash, sentAt uint64, err error) (*types.Receipt, error) {
	return nil, ErrAwaitingNotSupported
}

// NewPollingBased creates an instance of Waiter supporting poll-based
// transaction awaiting, unset config values are replaced with defaults.
func NewPollingBased(waiter RPCPollingBased, config PollConfig) *PollingBased {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.RetryCount <= 0 {
		config.RetryCount = DefaultPollRetryCount
	}
	if config.MaxBlocks == 0 {
		config.MaxBlocks = DefaultMaxBlocks
	}
	return &PollingBased{
		polling: waiter,
		config:  config,
	}
}

// Config returns effective waiter configuration.
func (w *PollingBased) Config() PollConfig {
	return w.config
}

// Wait implements Waiter interface.
func (w *PollingBased) Wait(ctx context.Context, h common.Hash, sentAt uint64, err error) (*types.Receipt, error) {
	if err != nil && !errIsAlreadyKnown(err) {
		return nil, err
	}
	var failedAttempt int
	timer := time.NewTicker(w.config.PollInterval)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			height, err := w.polling.BlockNumber(ctx)
			if err != nil {
				failedAttempt++
				if failedAttempt > w.config.RetryCount {
					return nil, fmt.Errorf("failed to retrieve block number: %w", err)
				}
				continue
			}
			failedAttempt = 0
			rcpt, done, err := w.check(ctx, h, sentAt, height)
			if done {
				return rcpt, err
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
		}
	}
}

// check tries to get transaction receipt at the given height, it returns true
// if awaiting is over (with either a receipt or an error).
func (w *PollingBased) check(ctx context.Context, h common.Hash, sentAt uint64, height uint64) (*types.Receipt, bool, error) {
	rcpt, err := w.polling.TransactionReceipt(ctx, h)
	if err == nil && rcpt != nil {
		return rcpt, true, nil
	}
	if err != nil && !errors.Is(err, ethereum.NotFound) && ctx.Err() != nil {
		return nil, true, fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
	}
	if height >= sentAt+w.config.MaxBlocks {
		return nil, true, ErrTxNotAccepted
	}
	return nil, false, nil
}

// NewEventBased creates an instance of Waiter supporting event-based
// transaction awaiting. EventBased contains PollingBased under the hood and
// falls back to polling when subscription-based awaiting fails.
func NewEventBased(waiter RPCEventBased, config PollConfig) *EventBased {
	return &EventBased{
		ws:      waiter,
		polling: NewPollingBased(waiter, config),
	}
}

// Wait implements Waiter interface.
func (w *EventBased) Wait(ctx context.Context, h common.Hash, sentAt uint64, err error) (res *types.Receipt, waitErr error) {
	if err != nil && !errIsAlreadyKnown(err) {
		return nil, err
	}

	var (
		wsWaitErr error
		heads     = make(chan *types.Header, 2)
	)
	sub, err := w.ws.SubscribeNewHead(ctx, heads)
	if err != nil {
		wsWaitErr = fmt.Errorf("failed to subscribe for new heads: %w", err)
	} else {
		defer sub.Unsubscribe()
		// There is a potential race between subscription and inclusion, so
		// do a polling check once _after_ the subscription.
		var done bool
		res, done, waitErr = w.polling.check(ctx, h, sentAt, sentAt)
		for !done {
			select {
			case hdr := <-heads:
				res, done, waitErr = w.polling.check(ctx, h, sentAt, hdr.Number.Uint64())
			case err := <-sub.Err():
				wsWaitErr = fmt.Errorf("%w: %w", ErrMissedEvent, err)
				done = true
			case <-ctx.Done():
				waitErr = fmt.Errorf("%w: %w", ErrContextDone, ctx.Err())
				done = true
			}
		}
	}

	// Rollback to a poll-based waiter if needed.
	if wsWaitErr != nil && waitErr == nil && res == nil {
		res, waitErr = w.polling.Wait(ctx, h, sentAt, nil)
		if waitErr != nil {
			// Wrap the poll-based error, it's more important.
			waitErr = fmt.Errorf("event-based error: %w; poll-based waiter error: %w", wsWaitErr, waitErr)
		}
	}
	return
}
