package views

import (
	"context"
	"math/big"

	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
)

// AssetDetail is the page of a single asset.
type AssetDetail struct {
	page

	ops Operations
	// ID is the token ID of the asset.
	ID *big.Int
	// MetadataURI is the URI passed along with the navigation, token URI
	// is read from the contract if it's empty.
	MetadataURI string

	record *market.AssetRecord
}

// DetailView is the presentable state of AssetDetail.
type DetailView struct {
	State     State               `json:"state"`
	Record    *market.AssetRecord `json:"record,omitempty"`
	CanBuy    bool                `json:"canBuy"`
	CanResell bool                `json:"canResell"`
	CanToggle bool                `json:"canToggle"`
	Error     *ErrorView          `json:"error,omitempty"`
}

// NewAssetDetail creates a page for the given asset.
func NewAssetDetail(ops Operations, id *big.Int, uri string) *AssetDetail {
	return &AssetDetail{ops: ops, ID: id, MetadataURI: uri}
}

// Load fetches the asset record. The previous record is dropped if it
// fails.
func (d *AssetDetail) Load(ctx context.Context) error {
	d.begin()
	rec, err := d.ops.FetchOneWithURI(ctx, d.ID, d.MetadataURI)

	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.finish(err)
	if err != nil {
		d.record = nil
		return err
	}
	d.record = &rec
	return nil
}

// Record returns the loaded asset record.
func (d *AssetDetail) Record() (market.AssetRecord, bool) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()
	if d.record == nil {
		return market.AssetRecord{}, false
	}
	return *d.record, true
}

// CanBuy returns true if the viewer can buy the asset: it's available and
// neither listed nor owned by the viewer.
func (d *AssetDetail) CanBuy() bool {
	rec, ok := d.Record()
	viewer := d.ops.Sender()
	return ok && rec.Status == market.Available && !rec.IsListedBy(viewer) && !rec.IsOwnedBy(viewer)
}

// CanResell returns true if the viewer owns the sold asset.
func (d *AssetDetail) CanResell() bool {
	rec, ok := d.Record()
	return ok && rec.Status == market.Sold && rec.IsOwnedBy(d.ops.Sender())
}

// CanToggle returns true if the viewer owns or sells the asset and its
// availability can be switched.
func (d *AssetDetail) CanToggle() bool {
	rec, ok := d.Record()
	if !ok {
		return false
	}
	viewer := d.ops.Sender()
	if !rec.IsOwnedBy(viewer) && !rec.IsListedBy(viewer) {
		return false
	}
	switch rec.Status {
	case market.Available, market.Sold, market.Unavailable:
		return true
	}
	return false
}

// Busy returns true if the action on this asset is in progress.
func (d *AssetDetail) Busy(op lifecycle.Operation) bool {
	return d.ops.Busy(op, d.ID.String())
}

// Buy buys the asset for its current price.
func (d *AssetDetail) Buy(ctx context.Context) (*lifecycle.Outcome, error) {
	if !d.CanBuy() {
		return nil, ErrActionNotAvailable
	}
	rec, _ := d.Record()
	return d.act(ctx, func() (*lifecycle.Outcome, error) {
		return d.ops.Buy(ctx, d.ID, rec.Price)
	})
}

// Resell lists the owned asset for the given price.
func (d *AssetDetail) Resell(ctx context.Context, price *big.Int) (*lifecycle.Outcome, error) {
	if !d.CanResell() {
		return nil, ErrActionNotAvailable
	}
	return d.act(ctx, func() (*lifecycle.Outcome, error) {
		return d.ops.Resell(ctx, d.ID, price)
	})
}

// Toggle switches the asset availability.
func (d *AssetDetail) Toggle(ctx context.Context) (*lifecycle.Outcome, error) {
	if !d.CanToggle() {
		return nil, ErrActionNotAvailable
	}
	return d.act(ctx, func() (*lifecycle.Outcome, error) {
		return d.ops.ToggleAvailability(ctx, d.ID)
	})
}

// act performs the action and reloads the page if it was confirmed. Reload
// failure is not an action failure, it's reflected in the page state.
func (d *AssetDetail) act(ctx context.Context, f func() (*lifecycle.Outcome, error)) (*lifecycle.Outcome, error) {
	o, err := f()
	if o != nil && o.Receipt != nil {
		_ = d.Load(ctx)
	}
	return o, err
}

// View returns the presentable page state.
func (d *AssetDetail) View() DetailView {
	v := DetailView{
		State:     d.State(),
		CanBuy:    d.CanBuy(),
		CanResell: d.CanResell(),
		CanToggle: d.CanToggle(),
		Error:     NewErrorView(d.Err()),
	}
	if rec, ok := d.Record(); ok {
		v.Record = &rec
	}
	return v
}
