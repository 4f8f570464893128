package lifecycle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/stretchr/testify/require"
)

func TestGuard(t *testing.T) {
	var (
		g     = NewGuard()
		alice = common.Address{1}
		bob   = common.Address{2}
	)
	release, err := g.Acquire(alice, OpBuy, "1")
	require.NoError(t, err)
	require.True(t, g.Busy(alice, OpBuy, "1"))

	_, err = g.Acquire(alice, OpBuy, "1")
	require.ErrorIs(t, err, market.ErrInFlight)

	// Other senders, operations and targets are independent.
	for _, k := range []struct {
		sender common.Address
		op     Operation
		target string
	}{
		{bob, OpBuy, "1"},
		{alice, OpResell, "1"},
		{alice, OpBuy, "2"},
	} {
		require.False(t, g.Busy(k.sender, k.op, k.target))
		r, err := g.Acquire(k.sender, k.op, k.target)
		require.NoError(t, err)
		r()
	}

	release()
	require.False(t, g.Busy(alice, OpBuy, "1"))
	release, err = g.Acquire(alice, OpBuy, "1")
	require.NoError(t, err)
	release()
}
