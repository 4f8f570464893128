package lifecycle

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/market"
)

// Operation is a state-changing marketplace operation.
type Operation string

// Lifecycle operations.
const (
	OpList        Operation = "list"
	OpAuthorize   Operation = "authorize-verifier"
	OpDeauthorize Operation = "deauthorize-verifier"
	OpApprove     Operation = "approve"
	OpReject      Operation = "reject"
	OpBuy         Operation = "buy"
	OpResell      Operation = "resell"
	OpToggle      Operation = "toggle"
)

type guardKey struct {
	sender common.Address
	op     Operation
	target string
}

// Guard tracks operations that were started, but haven't resolved yet.
// Starting the same operation on the same target from the same sender
// again while the first one is in progress fails with market.ErrInFlight.
type Guard struct {
	mtx    sync.Mutex
	active map[guardKey]struct{}
}

// NewGuard creates an empty Guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[guardKey]struct{})}
}

// Acquire marks the operation as in progress. The returned function must be
// called once the operation resolves.
func (g *Guard) Acquire(sender common.Address, op Operation, target string) (func(), error) {
	k := guardKey{sender, op, target}
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if _, ok := g.active[k]; ok {
		return nil, fmt.Errorf("%w: %s %s", market.ErrInFlight, op, target)
	}
	g.active[k] = struct{}{}
	return func() {
		g.mtx.Lock()
		delete(g.active, k)
		g.mtx.Unlock()
	}, nil
}

// Busy returns true if the operation is in progress.
func (g *Guard) Busy(sender common.Address, op Operation, target string) bool {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	_, ok := g.active[guardKey{sender, op, target}]
	return ok
}
