/*
Package lifecycle implements marketplace operations on top of the contract
wrapper. Every state-changing operation checks its client-side
preconditions, submits a transaction, awaits its confirmation and then
re-reads the item to report the state actually recorded by the contract.
Nothing is ever assumed about the new state.
*/
package lifecycle

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/marketplace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the result of a confirmed state-changing operation. Item
// fields are filled from the state read after confirmation, they're empty
// for operations not related to some particular item.
type Outcome struct {
	Receipt *gateway.Receipt
	TokenID *big.Int
	Status  market.Status
	Seller  common.Address
	Owner   common.Address
	Price   *big.Int
}

// Controller performs lifecycle operations on behalf of the session sender.
type Controller struct {
	contract   *marketplace.Contract
	normalizer *market.Normalizer
	guard      *Guard
	log        *zap.Logger
}

// New creates a Controller.
func New(c *marketplace.Contract, n *market.Normalizer, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		contract:   c,
		normalizer: n,
		guard:      NewGuard(),
		log:        log,
	}
}

// Sender returns the address operations are performed from.
func (c *Controller) Sender() common.Address {
	return c.contract.Sender()
}

// Busy returns true if the operation on the given target (token ID, verifier
// address or metadata URI for listing) is in progress.
func (c *Controller) Busy(op Operation, target string) bool {
	return c.guard.Busy(c.contract.Sender(), op, target)
}

// ListingFee returns the current listing fee.
func (c *Controller) ListingFee(ctx context.Context) (*big.Int, error) {
	return c.contract.ListingPrice(ctx)
}

// ListAsset mints a new token with the given metadata URI and lists it for
// the given price. The new asset awaits verification.
func (c *Controller) ListAsset(ctx context.Context, uri string, price *big.Int) (*Outcome, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: empty metadata URI", market.ErrInvalidArgument)
	}
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", market.ErrInvalidArgument)
	}
	release, err := c.guard.Acquire(c.Sender(), OpList, uri)
	if err != nil {
		return nil, err
	}
	defer release()

	fee, err := c.contract.ListingPrice(ctx)
	if err != nil {
		return nil, err
	}
	rcpt, err := c.contract.CreateToken(ctx, uri, price, fee)
	if err != nil {
		return nil, err
	}
	id, ok := marketplace.MintedTokenID(rcpt)
	if !ok {
		return &Outcome{Receipt: rcpt}, fmt.Errorf("%w: no token minted by %s", market.ErrPostcondition, rcpt.Hash)
	}
	c.log.Info("asset listed", zap.Stringer("id", id), zap.String("uri", uri), zap.Stringer("price", price))
	return c.refresh(ctx, rcpt, id, func(o *Outcome) error {
		return expectStatus(o, market.PendingVerification)
	})
}

// AuthorizeVerifier allows the given address to approve and reject assets.
func (c *Controller) AuthorizeVerifier(ctx context.Context, addr common.Address) (*Outcome, error) {
	return c.manageVerifier(ctx, OpAuthorize, addr, c.contract.AddVerifier)
}

// DeauthorizeVerifier revokes verification rights of the given address.
func (c *Controller) DeauthorizeVerifier(ctx context.Context, addr common.Address) (*Outcome, error) {
	return c.manageVerifier(ctx, OpDeauthorize, addr, c.contract.RemoveVerifier)
}

func (c *Controller) manageVerifier(ctx context.Context, op Operation, addr common.Address,
	f func(context.Context, common.Address) (*gateway.Receipt, error)) (*Outcome, error) {
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: zero verifier address", market.ErrInvalidArgument)
	}
	release, err := c.guard.Acquire(c.Sender(), op, addr.Hex())
	if err != nil {
		return nil, err
	}
	defer release()

	rcpt, err := f(ctx, addr)
	if err != nil {
		return nil, err
	}
	c.log.Info("verifier set updated", zap.String("op", string(op)), zap.Stringer("verifier", addr))
	return &Outcome{Receipt: rcpt}, nil
}

// ApproveVerification approves a pending asset making it available for
// sale.
func (c *Controller) ApproveVerification(ctx context.Context, id *big.Int) (*Outcome, error) {
	return c.itemOp(ctx, OpApprove, id, c.contract.Approve, func(o *Outcome) error {
		return expectStatus(o, market.Available)
	})
}

// RejectVerification rejects a pending asset.
func (c *Controller) RejectVerification(ctx context.Context, id *big.Int) (*Outcome, error) {
	return c.itemOp(ctx, OpReject, id, c.contract.Reject, func(o *Outcome) error {
		return expectStatus(o, market.Rejected)
	})
}

// ToggleAvailability switches the asset between Available and Unavailable
// (sold assets become Available).
func (c *Controller) ToggleAvailability(ctx context.Context, id *big.Int) (*Outcome, error) {
	return c.itemOp(ctx, OpToggle, id, c.contract.ToggleAvailability, func(o *Outcome) error {
		if o.Status != market.Available && o.Status != market.Unavailable {
			return fmt.Errorf("%w: token %s is %s", market.ErrPostcondition, o.TokenID, o.Status)
		}
		return nil
	})
}

// Buy purchases the asset paying the given price, which must be the asking
// price recorded by the contract.
func (c *Controller) Buy(ctx context.Context, id *big.Int, price *big.Int) (*Outcome, error) {
	if price == nil || price.Sign() < 0 {
		return nil, fmt.Errorf("%w: price must be non-negative", market.ErrInvalidArgument)
	}
	sender := c.Sender()
	return c.itemOp(ctx, OpBuy, id, func(ctx context.Context, id *big.Int) (*gateway.Receipt, error) {
		return c.contract.CreateMarketSale(ctx, id, price)
	}, func(o *Outcome) error {
		if err := expectStatus(o, market.Sold); err != nil {
			return err
		}
		if o.Owner != sender {
			return fmt.Errorf("%w: token %s is owned by %s", market.ErrPostcondition, o.TokenID, o.Owner)
		}
		return nil
	})
}

// Resell lists the owned asset again for the given price paying the listing
// fee.
func (c *Controller) Resell(ctx context.Context, id *big.Int, price *big.Int) (*Outcome, error) {
	if price == nil || price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", market.ErrInvalidArgument)
	}
	return c.itemOp(ctx, OpResell, id, func(ctx context.Context, id *big.Int) (*gateway.Receipt, error) {
		fee, err := c.contract.ListingPrice(ctx)
		if err != nil {
			return nil, err
		}
		return c.contract.ResellToken(ctx, id, price, fee)
	}, func(o *Outcome) error {
		if err := expectStatus(o, market.Available); err != nil {
			return err
		}
		if o.Price.Cmp(price) != 0 {
			return fmt.Errorf("%w: token %s price is %s", market.ErrPostcondition, o.TokenID, o.Price)
		}
		return nil
	})
}

func (c *Controller) itemOp(ctx context.Context, op Operation, id *big.Int,
	f func(context.Context, *big.Int) (*gateway.Receipt, error), check func(*Outcome) error) (*Outcome, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	release, err := c.guard.Acquire(c.Sender(), op, id.String())
	if err != nil {
		return nil, err
	}
	defer release()

	rcpt, err := f(ctx, id)
	if err != nil {
		return nil, err
	}
	c.log.Info("operation confirmed", zap.String("op", string(op)), zap.Stringer("id", id),
		zap.Stringer("hash", rcpt.Hash))
	return c.refresh(ctx, rcpt, id, check)
}

// refresh reads the item back after confirmation. The outcome is returned
// even if the read fails or the state doesn't match the expectations, the
// transaction is confirmed anyway.
func (c *Controller) refresh(ctx context.Context, rcpt *gateway.Receipt, id *big.Int, check func(*Outcome) error) (*Outcome, error) {
	o := &Outcome{Receipt: rcpt, TokenID: id}
	it, err := c.contract.Item(ctx, id)
	if err != nil {
		c.log.Warn("state refresh failed", zap.Stringer("id", id), zap.Stringer("hash", rcpt.Hash), zap.Error(err))
		return o, fmt.Errorf("transaction %s confirmed, state refresh failed: %w", rcpt.Hash, err)
	}
	status, err := market.StatusFromWire(int64(it.Status))
	if err != nil {
		return o, fmt.Errorf("transaction %s confirmed: token %s: %w", rcpt.Hash, id, err)
	}
	o.Status = status
	o.Seller = it.Seller
	o.Owner = it.Owner
	o.Price = it.Price
	if err := check(o); err != nil {
		c.log.Warn("unexpected state after confirmation", zap.Stringer("id", id), zap.Stringer("status", status))
		return o, err
	}
	return o, nil
}

// FetchOne returns the complete record of the given asset.
func (c *Controller) FetchOne(ctx context.Context, id *big.Int) (market.AssetRecord, error) {
	return c.FetchOneWithURI(ctx, id, "")
}

// FetchOneWithURI is like FetchOne, but uses the given metadata URI instead
// of reading it from the contract (unless it's empty).
func (c *Controller) FetchOneWithURI(ctx context.Context, id *big.Int, uri string) (market.AssetRecord, error) {
	if err := checkID(id); err != nil {
		return market.AssetRecord{}, err
	}
	it, err := c.contract.Item(ctx, id)
	if err != nil {
		return market.AssetRecord{}, err
	}
	if uri == "" {
		uri, err = c.contract.TokenURI(ctx, id)
		if err != nil {
			return market.AssetRecord{}, err
		}
	}
	return c.normalizer.Normalize(ctx, it.Raw(uri))
}

// FetchPendingVerification returns assets awaiting verification. Only
// authorized verifiers can get it, the contract refuses others.
func (c *Controller) FetchPendingVerification(ctx context.Context) ([]market.Entry, error) {
	return c.fetch(ctx, c.contract.PendingItems)
}

// FetchListed returns assets available for sale.
func (c *Controller) FetchListed(ctx context.Context) ([]market.Entry, error) {
	return c.fetch(ctx, c.contract.MarketItems)
}

// FetchMyListings returns assets listed by the sender.
func (c *Controller) FetchMyListings(ctx context.Context) ([]market.Entry, error) {
	return c.fetch(ctx, c.contract.ItemsListed)
}

// FetchAll returns all assets known to the contract.
func (c *Controller) FetchAll(ctx context.Context) ([]market.Entry, error) {
	return c.fetch(ctx, c.contract.AllItems)
}

// fetch gets the list and resolves it element by element, an element that
// can't be resolved is kept with its error.
func (c *Controller) fetch(ctx context.Context, list func(context.Context) ([]marketplace.Item, error)) ([]market.Entry, error) {
	items, err := list(ctx)
	if err != nil {
		return nil, err
	}
	var (
		raws    = make([]market.RawAsset, len(items))
		uriErrs = make([]error, len(items))
		g       errgroup.Group
	)
	g.SetLimit(c.normalizer.Concurrency())
	for i := range items {
		i := i
		g.Go(func() error {
			uri, err := c.contract.TokenURI(ctx, items[i].TokenId)
			if err != nil {
				uriErrs[i] = err
				return nil
			}
			raws[i] = items[i].Raw(uri)
			return nil
		})
	}
	_ = g.Wait()

	var (
		resolvable = make([]market.RawAsset, 0, len(items))
		entries    = make([]market.Entry, len(items))
	)
	for i := range items {
		if uriErrs[i] != nil {
			entries[i] = market.Entry{TokenID: items[i].TokenId, Err: uriErrs[i]}
			continue
		}
		resolvable = append(resolvable, raws[i])
	}
	normalized := c.normalizer.NormalizeAll(ctx, resolvable)
	for i, j := 0, 0; i < len(entries); i++ {
		if uriErrs[i] != nil {
			continue
		}
		entries[i] = normalized[j]
		j++
	}
	for _, e := range entries {
		if e.Err != nil {
			c.log.Debug("degraded list entry", zap.Stringer("id", e.TokenID), zap.Error(e.Err))
		}
	}
	return entries, nil
}

func checkID(id *big.Int) error {
	if id == nil || id.Sign() <= 0 {
		return fmt.Errorf("%w: invalid token id %v", market.ErrInvalidArgument, id)
	}
	return nil
}

func expectStatus(o *Outcome, s market.Status) error {
	if o.Status != s {
		return fmt.Errorf("%w: token %s is %s, expected %s", market.ErrPostcondition, o.TokenID, o.Status, s)
	}
	return nil
}
