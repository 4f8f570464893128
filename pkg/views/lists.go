package views

import (
	"context"
	"math/big"

	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
)

// ListView is the presentable state of a list page. Degraded entries are
// kept in place, Degraded is the number of them.
type ListView struct {
	State    State          `json:"state"`
	Entries  []market.Entry `json:"entries"`
	Degraded int            `json:"degraded"`
	Error    *ErrorView     `json:"error,omitempty"`
}

// list is a page showing a list of assets.
type list struct {
	page

	fetch   func(context.Context) ([]market.Entry, error)
	entries []market.Entry
}

// Load fetches the list, the previous one is dropped if it fails.
func (l *list) Load(ctx context.Context) error {
	l.begin()
	entries, err := l.fetch(ctx)

	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.finish(err)
	l.entries = entries
	return err
}

// Entries returns the loaded list.
func (l *list) Entries() []market.Entry {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.entries
}

// View returns the presentable page state.
func (l *list) View() ListView {
	entries := l.Entries()
	v := ListView{
		State:   l.State(),
		Entries: entries,
		Error:   NewErrorView(l.Err()),
	}
	if v.Entries == nil {
		v.Entries = []market.Entry{}
	}
	for _, e := range entries {
		if e.Err != nil {
			v.Degraded++
		}
	}
	return v
}

// Source selects assets shown by ClientList.
type Source byte

// ClientList sources.
const (
	// ForSale is the list of assets available for sale.
	ForSale Source = iota
	// MyListings is the list of assets listed by the viewer.
	MyListings
	// Everything is the list of all assets.
	Everything
)

// ClientList is the page listing assets to clients.
type ClientList struct {
	list
}

// NewClientList creates a list page for the given source.
func NewClientList(ops Operations, src Source) *ClientList {
	l := new(ClientList)
	switch src {
	case MyListings:
		l.fetch = ops.FetchMyListings
	case Everything:
		l.fetch = ops.FetchAll
	default:
		l.fetch = ops.FetchListed
	}
	return l
}

// VerifierQueue is the page of assets awaiting verification.
type VerifierQueue struct {
	list

	ops Operations
}

// NewVerifierQueue creates a verifier queue page.
func NewVerifierQueue(ops Operations) *VerifierQueue {
	return &VerifierQueue{list: list{fetch: ops.FetchPendingVerification}, ops: ops}
}

// Approve approves the asset and reloads the queue.
func (q *VerifierQueue) Approve(ctx context.Context, id *big.Int) (*lifecycle.Outcome, error) {
	return q.act(ctx, func() (*lifecycle.Outcome, error) {
		return q.ops.ApproveVerification(ctx, id)
	})
}

// Reject rejects the asset and reloads the queue.
func (q *VerifierQueue) Reject(ctx context.Context, id *big.Int) (*lifecycle.Outcome, error) {
	return q.act(ctx, func() (*lifecycle.Outcome, error) {
		return q.ops.RejectVerification(ctx, id)
	})
}

// Busy returns true if the verification action on the asset is in
// progress.
func (q *VerifierQueue) Busy(op lifecycle.Operation, id *big.Int) bool {
	return q.ops.Busy(op, id.String())
}

func (q *VerifierQueue) act(ctx context.Context, f func() (*lifecycle.Outcome, error)) (*lifecycle.Outcome, error) {
	o, err := f()
	if o != nil && o.Receipt != nil {
		_ = q.Load(ctx)
	}
	return o, err
}
