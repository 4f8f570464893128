package views

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
)

// Admin is the marketplace management page: verifier set and listing fee.
type Admin struct {
	page

	ops      Operations
	decimals int
	fee      *big.Int
}

// AdminView is the presentable state of Admin.
type AdminView struct {
	State      State      `json:"state"`
	Fee        *big.Int   `json:"fee,omitempty"`
	DisplayFee string     `json:"displayFee,omitempty"`
	Error      *ErrorView `json:"error,omitempty"`
}

// NewAdmin creates an admin page, decimals are used to present the fee.
func NewAdmin(ops Operations, decimals int) *Admin {
	return &Admin{ops: ops, decimals: decimals}
}

// Load fetches the listing fee.
func (a *Admin) Load(ctx context.Context) error {
	a.begin()
	fee, err := a.ops.ListingFee(ctx)

	a.mtx.Lock()
	defer a.mtx.Unlock()
	a.finish(err)
	a.fee = fee
	return err
}

// AddVerifier authorizes the verifier.
func (a *Admin) AddVerifier(ctx context.Context, addr common.Address) (*lifecycle.Outcome, error) {
	return a.ops.AuthorizeVerifier(ctx, addr)
}

// RemoveVerifier revokes verifier authorization.
func (a *Admin) RemoveVerifier(ctx context.Context, addr common.Address) (*lifecycle.Outcome, error) {
	return a.ops.DeauthorizeVerifier(ctx, addr)
}

// Busy returns true if the verifier set action for the address is in
// progress.
func (a *Admin) Busy(op lifecycle.Operation, addr common.Address) bool {
	return a.ops.Busy(op, addr.Hex())
}

// View returns the presentable page state.
func (a *Admin) View() AdminView {
	v := AdminView{State: a.State(), Error: NewErrorView(a.Err())}
	a.mtx.RLock()
	defer a.mtx.RUnlock()
	if a.fee != nil {
		v.Fee = a.fee
		v.DisplayFee = fixedn.ToString(a.fee, a.decimals)
	}
	return v
}
