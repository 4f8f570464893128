/*
Package marketplace provides a typed wrapper for the marketplace contract.

Reader covers safe methods (item listings, token URIs, listing fee), while
Contract adds state-changing ones. Both build on top of the gateway, so every
error they return wraps one of the market package error kinds.
*/
package marketplace

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
)

// Contract method names.
const (
	MethodCreateToken        = "createToken"
	MethodAddVerifier        = "addAuthorizedVerifiers"
	MethodRemoveVerifier     = "removeAuthorizedVerifiers"
	MethodApprove            = "approveVerification"
	MethodReject             = "rejectVerification"
	MethodCreateMarketSale   = "createMarketSale"
	MethodResellToken        = "resellToken"
	MethodToggle             = "toggleItemToAvailable"
	MethodFetchItem          = "fetchANFT"
	MethodFetchPending       = "fetchPendVerifyItems"
	MethodFetchItemsListed   = "fetchItemsListed"
	MethodFetchMarketItems   = "fetchMarketItems"
	MethodFetchAllItems      = "fetchAllItems"
	MethodTokenURI           = "tokenURI"
	MethodGetListingPrice    = "getListingPrice"
	transferEventDescription = "Transfer(address,address,uint256)"
)

// TransferEvent is the ERC-721 Transfer event topic.
var TransferEvent = crypto.Keccak256Hash([]byte(transferEventDescription))

var parsedABI abi.ABI

func init() {
	var err error
	parsedABI, err = abi.JSON(strings.NewReader(ABI))
	if err != nil {
		panic(err)
	}
}

// ParsedABI returns the contract ABI ready to be used for binding.
func ParsedABI() abi.ABI {
	return parsedABI
}

// Item is the MarketItem structure returned by the contract. Field names
// follow the contract tuple components.
type Item struct {
	Price   *big.Int
	Status  uint8
	TokenId *big.Int //nolint:revive // Must match the ABI component name.
	Seller  common.Address
	Owner   common.Address
}

// Raw converts the item into market.RawAsset with the given metadata URI.
func (i Item) Raw(uri string) market.RawAsset {
	return market.RawAsset{
		TokenID:     i.TokenId,
		Seller:      i.Seller,
		Owner:       i.Owner,
		Price:       i.Price,
		Status:      i.Status,
		MetadataURI: uri,
	}
}

// Invoker is used by Reader to call the contract.
type Invoker interface {
	Read(ctx context.Context, method string, args ...any) ([]any, error)
}

// Actor is used by Contract to send transactions.
type Actor interface {
	Invoker

	Write(ctx context.Context, method string, value *big.Int, args ...any) (*gateway.Receipt, error)
	Sender() common.Address
}

// Reader provides an interface to call safe contract methods.
type Reader struct {
	invoker Invoker
}

// Contract provides full contract interface, both safe and state-changing
// methods.
type Contract struct {
	Reader

	actor Actor
}

// NewReader creates an instance of Reader using the given Invoker.
func NewReader(invoker Invoker) *Reader {
	return &Reader{invoker}
}

// New creates an instance of Contract using the given Actor.
func New(actor Actor) *Contract {
	return &Contract{*NewReader(actor), actor}
}

// Sender returns the address transactions are sent from.
func (c *Contract) Sender() common.Address {
	return c.actor.Sender()
}

// ListingPrice returns the fee charged for listing an asset.
func (r *Reader) ListingPrice(ctx context.Context) (*big.Int, error) {
	out, err := r.invoker.Read(ctx, MethodGetListingPrice)
	if err != nil {
		return nil, err
	}
	return unwrapBigInt(MethodGetListingPrice, out)
}

// TokenURI returns the metadata URI of the given token.
func (r *Reader) TokenURI(ctx context.Context, id *big.Int) (string, error) {
	out, err := r.invoker.Read(ctx, MethodTokenURI, id)
	if err != nil {
		return "", err
	}
	if err := checkLen(MethodTokenURI, out); err != nil {
		return "", err
	}
	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: unexpected result type %T", market.ErrData, MethodTokenURI, out[0])
	}
	return s, nil
}

// Item returns the market item with the given token ID.
func (r *Reader) Item(ctx context.Context, id *big.Int) (Item, error) {
	out, err := r.invoker.Read(ctx, MethodFetchItem, id)
	if err != nil {
		return Item{}, err
	}
	if err := checkLen(MethodFetchItem, out); err != nil {
		return Item{}, err
	}
	return decodeItem(out[0])
}

// PendingItems returns items awaiting verification, only authorized
// verifiers are allowed to fetch them.
func (r *Reader) PendingItems(ctx context.Context) ([]Item, error) {
	return r.items(ctx, MethodFetchPending)
}

// ItemsListed returns items listed by the sender.
func (r *Reader) ItemsListed(ctx context.Context) ([]Item, error) {
	return r.items(ctx, MethodFetchItemsListed)
}

// MarketItems returns items available for sale.
func (r *Reader) MarketItems(ctx context.Context) ([]Item, error) {
	return r.items(ctx, MethodFetchMarketItems)
}

// AllItems returns all items known to the contract.
func (r *Reader) AllItems(ctx context.Context) ([]Item, error) {
	return r.items(ctx, MethodFetchAllItems)
}

func (r *Reader) items(ctx context.Context, method string) ([]Item, error) {
	out, err := r.invoker.Read(ctx, method)
	if err != nil {
		return nil, err
	}
	if err := checkLen(method, out); err != nil {
		return nil, err
	}
	return decodeItems(out[0])
}

// CreateToken mints a new token with the given URI and lists it for the
// given price paying the listing fee.
func (c *Contract) CreateToken(ctx context.Context, uri string, price *big.Int, fee *big.Int) (*gateway.Receipt, error) {
	if err := checkUint256("price", price); err != nil {
		return nil, err
	}
	return c.actor.Write(ctx, MethodCreateToken, fee, uri, price)
}

// AddVerifier authorizes the given address to verify assets.
func (c *Contract) AddVerifier(ctx context.Context, addr common.Address) (*gateway.Receipt, error) {
	return c.actor.Write(ctx, MethodAddVerifier, nil, addr)
}

// RemoveVerifier revokes verification authorization of the given address.
func (c *Contract) RemoveVerifier(ctx context.Context, addr common.Address) (*gateway.Receipt, error) {
	return c.actor.Write(ctx, MethodRemoveVerifier, nil, addr)
}

// Approve approves pending asset making it available for sale.
func (c *Contract) Approve(ctx context.Context, id *big.Int) (*gateway.Receipt, error) {
	return c.actor.Write(ctx, MethodApprove, nil, id)
}

// Reject rejects pending asset.
func (c *Contract) Reject(ctx context.Context, id *big.Int) (*gateway.Receipt, error) {
	return c.actor.Write(ctx, MethodReject, nil, id)
}

// CreateMarketSale buys the asset paying the given value.
func (c *Contract) CreateMarketSale(ctx context.Context, id *big.Int, value *big.Int) (*gateway.Receipt, error) {
	if err := checkUint256("value", value); err != nil {
		return nil, err
	}
	return c.actor.Write(ctx, MethodCreateMarketSale, value, id)
}

// ResellToken lists the owned asset again for the given price paying the
// listing fee.
func (c *Contract) ResellToken(ctx context.Context, id *big.Int, price *big.Int, fee *big.Int) (*gateway.Receipt, error) {
	if err := checkUint256("price", price); err != nil {
		return nil, err
	}
	return c.actor.Write(ctx, MethodResellToken, fee, id, price)
}

// ToggleAvailability switches the asset between available and unavailable
// states.
func (c *Contract) ToggleAvailability(ctx context.Context, id *big.Int) (*gateway.Receipt, error) {
	return c.actor.Write(ctx, MethodToggle, nil, id)
}

// MintedTokenID extracts the ID of the token minted by the transaction from
// its ERC-721 Transfer (from zero address) log.
func MintedTokenID(r *gateway.Receipt) (*big.Int, bool) {
	for _, l := range r.Logs {
		if len(l.Topics) != 4 || l.Topics[0] != TransferEvent || l.Topics[1] != (common.Hash{}) {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[3].Bytes()), true
	}
	return nil, false
}

func checkUint256(name string, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("%w: %s must be non-negative", market.ErrInvalidArgument, name)
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return fmt.Errorf("%w: %s doesn't fit into uint256", market.ErrInvalidArgument, name)
	}
	return nil
}

func checkLen(method string, out []any) error {
	if len(out) != 1 {
		return fmt.Errorf("%w: %s: %d results returned, expected 1", market.ErrData, method, len(out))
	}
	return nil
}

func unwrapBigInt(method string, out []any) (*big.Int, error) {
	if err := checkLen(method, out); err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s: unexpected result type %T", market.ErrData, method, out[0])
	}
	return v, nil
}

// decodeItem converts ABI-decoded tuple (anonymous struct with the same
// field layout) into Item.
func decodeItem(v any) (item Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: can't decode market item %T: %v", market.ErrData, v, r)
		}
	}()
	item = *abi.ConvertType(v, new(Item)).(*Item)
	if item.TokenId == nil || item.Price == nil {
		return Item{}, fmt.Errorf("%w: incomplete market item", market.ErrData)
	}
	return item, nil
}

func decodeItems(v any) (items []Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: can't decode market items %T: %v", market.ErrData, v, r)
		}
	}()
	items = *abi.ConvertType(v, new([]Item)).(*[]Item)
	for i := range items {
		if items[i].TokenId == nil || items[i].Price == nil {
			return nil, fmt.Errorf("%w: incomplete market item #%d", market.ErrData, i)
		}
	}
	return items, nil
}
