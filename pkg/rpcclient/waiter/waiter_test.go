package waiter

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

type pollClient struct {
	mtx       sync.Mutex
	height    uint64
	includeAt uint64 // 0 means never
	blockErrs int
	rcpt      *types.Receipt
}

func (c *pollClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.blockErrs > 0 {
		c.blockErrs--
		return 0, errors.New("connection reset")
	}
	c.height++
	return c.height, nil
}

func (c *pollClient) TransactionReceipt(ctx context.Context, h common.Hash) (*types.Receipt, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.includeAt != 0 && c.height >= c.includeAt {
		return c.rcpt, nil
	}
	return nil, ethereum.NotFound
}

type testSub struct {
	errCh chan error
	once  sync.Once
}

func (s *testSub) Unsubscribe()      { s.once.Do(func() { close(s.errCh) }) }
func (s *testSub) Err() <-chan error { return s.errCh }

type eventClient struct {
	pollClient
	subErr error
	subs   []*testSub
	ch     chan<- *types.Header
}

func (c *eventClient) SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if c.subErr != nil {
		return nil, c.subErr
	}
	s := &testSub{errCh: make(chan error, 1)}
	c.mtx.Lock()
	c.subs = append(c.subs, s)
	c.ch = ch
	c.mtx.Unlock()
	return s, nil
}

func (c *eventClient) newBlock() {
	c.mtx.Lock()
	c.height++
	h := c.height
	c.mtx.Unlock()
	c.ch <- &types.Header{Number: new(big.Int).SetUint64(h)}
}

var fastPoll = PollConfig{PollInterval: time.Millisecond}

func TestNew(t *testing.T) {
	require.IsType(t, Null{}, New(nil, Config{}))
	require.IsType(t, &PollingBased{}, New(&pollClient{}, Config{}))
	require.IsType(t, &EventBased{}, New(&eventClient{}, Config{}))
	require.IsType(t, &PollingBased{}, New(&eventClient{}, Config{PollOnly: true}))

	w := NewPollingBased(&pollClient{}, PollConfig{})
	require.Equal(t, PollConfig{
		PollInterval: DefaultPollInterval,
		RetryCount:   DefaultPollRetryCount,
		MaxBlocks:    DefaultMaxBlocks,
	}, w.Config())
}

func TestNull(t *testing.T) {
	_, err := NewNull().Wait(context.Background(), common.Hash{}, 0, nil)
	require.ErrorIs(t, err, ErrAwaitingNotSupported)
	require.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestPollingBased(t *testing.T) {
	rcpt := &types.Receipt{Status: types.ReceiptStatusSuccessful}

	t.Run("included", func(t *testing.T) {
		c := &pollClient{includeAt: 3, rcpt: rcpt}
		res, err := NewPollingBased(c, fastPoll).Wait(context.Background(), common.Hash{1}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, rcpt, res)
	})
	t.Run("send error", func(t *testing.T) {
		sendErr := errors.New("insufficient funds")
		_, err := NewPollingBased(&pollClient{}, fastPoll).Wait(context.Background(), common.Hash{1}, 0, sendErr)
		require.ErrorIs(t, err, sendErr)
	})
	t.Run("already known", func(t *testing.T) {
		c := &pollClient{includeAt: 1, rcpt: rcpt}
		res, err := NewPollingBased(c, fastPoll).Wait(context.Background(), common.Hash{1}, 0, errors.New("already known"))
		require.NoError(t, err)
		require.Equal(t, rcpt, res)
	})
	t.Run("not accepted", func(t *testing.T) {
		cfg := fastPoll
		cfg.MaxBlocks = 5
		_, err := NewPollingBased(&pollClient{}, cfg).Wait(context.Background(), common.Hash{1}, 0, nil)
		require.ErrorIs(t, err, ErrTxNotAccepted)
	})
	t.Run("retries", func(t *testing.T) {
		c := &pollClient{includeAt: 1, rcpt: rcpt, blockErrs: DefaultPollRetryCount}
		res, err := NewPollingBased(c, fastPoll).Wait(context.Background(), common.Hash{1}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, rcpt, res)

		c = &pollClient{includeAt: 1, rcpt: rcpt, blockErrs: DefaultPollRetryCount + 1}
		_, err = NewPollingBased(c, fastPoll).Wait(context.Background(), common.Hash{1}, 0, nil)
		require.ErrorContains(t, err, "failed to retrieve block number")
	})
	t.Run("context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewPollingBased(&pollClient{}, PollConfig{PollInterval: time.Hour}).Wait(ctx, common.Hash{1}, 0, nil)
		require.ErrorIs(t, err, ErrContextDone)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestEventBased(t *testing.T) {
	rcpt := &types.Receipt{Status: types.ReceiptStatusFailed}

	t.Run("included", func(t *testing.T) {
		c := &eventClient{pollClient: pollClient{includeAt: 2, rcpt: rcpt}}
		w := NewEventBased(c, PollConfig{PollInterval: time.Hour})
		var (
			res *types.Receipt
			err error
			wg  sync.WaitGroup
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err = w.Wait(context.Background(), common.Hash{2}, 0, nil)
		}()
		require.Eventually(t, func() bool {
			c.mtx.Lock()
			defer c.mtx.Unlock()
			return c.ch != nil
		}, time.Second, time.Millisecond)
		c.newBlock()
		c.newBlock()
		wg.Wait()
		require.NoError(t, err)
		require.Equal(t, rcpt, res)
		require.Len(t, c.subs, 1)
	})
	t.Run("already included", func(t *testing.T) {
		c := &eventClient{pollClient: pollClient{includeAt: 1, height: 1, rcpt: rcpt}}
		res, err := NewEventBased(c, fastPoll).Wait(context.Background(), common.Hash{2}, 1, nil)
		require.NoError(t, err)
		require.Equal(t, rcpt, res)
	})
	t.Run("subscription fallback", func(t *testing.T) {
		c := &eventClient{pollClient: pollClient{includeAt: 2, rcpt: rcpt}, subErr: errors.New("notifications not supported")}
		res, err := NewEventBased(c, fastPoll).Wait(context.Background(), common.Hash{2}, 0, nil)
		require.NoError(t, err)
		require.Equal(t, rcpt, res)
	})
	t.Run("both fail", func(t *testing.T) {
		c := &eventClient{subErr: errors.New("notifications not supported")}
		cfg := fastPoll
		cfg.MaxBlocks = 2
		_, err := NewEventBased(c, cfg).Wait(context.Background(), common.Hash{2}, 0, nil)
		require.ErrorIs(t, err, ErrTxNotAccepted)
		require.ErrorContains(t, err, "event-based error")
	})
}
