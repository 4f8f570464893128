package marketplace

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
	"github.com/stretchr/testify/require"
)

type testAct struct {
	err    error
	res    []any
	rcpt   *gateway.Receipt
	method string
	value  *big.Int
	args   []any
}

func (t *testAct) Read(ctx context.Context, method string, args ...any) ([]any, error) {
	t.method, t.args = method, args
	return t.res, t.err
}
func (t *testAct) Write(ctx context.Context, method string, value *big.Int, args ...any) (*gateway.Receipt, error) {
	t.method, t.value, t.args = method, value, args
	return t.rcpt, t.err
}
func (t *testAct) Sender() common.Address {
	return common.Address{0xaa}
}

// abiOutput packs the value as the given method output and unpacks it back,
// so it has exactly the same representation as the one returned by the node.
func abiOutput(t *testing.T, method string, v any) []any {
	data, err := parsedABI.Methods[method].Outputs.Pack(v)
	require.NoError(t, err)
	out, err := parsedABI.Unpack(method, data)
	require.NoError(t, err)
	return out
}

func testItem(id int64, status market.Status) Item {
	return Item{
		Price:   big.NewInt(id * 1000),
		Status:  uint8(status),
		TokenId: big.NewInt(id),
		Seller:  common.Address{byte(id)},
		Owner:   common.Address{0xff},
	}
}

func TestABI(t *testing.T) {
	a := ParsedABI()
	for _, m := range []string{
		MethodCreateToken, MethodAddVerifier, MethodRemoveVerifier, MethodApprove,
		MethodReject, MethodCreateMarketSale, MethodResellToken, MethodToggle,
		MethodFetchItem, MethodFetchPending, MethodFetchItemsListed,
		MethodFetchMarketItems, MethodFetchAllItems, MethodTokenURI, MethodGetListingPrice,
	} {
		_, ok := a.Methods[m]
		require.True(t, ok, m)
	}
	require.Equal(t, a.Events["Transfer"].ID, TransferEvent)
}

func TestReaderListingPrice(t *testing.T) {
	ta := new(testAct)
	r := NewReader(ta)

	ta.err = errors.New("")
	_, err := r.ListingPrice(context.Background())
	require.Error(t, err)

	ta.err = nil
	ta.res = abiOutput(t, MethodGetListingPrice, big.NewInt(25))
	fee, err := r.ListingPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(25), fee)
	require.Equal(t, MethodGetListingPrice, ta.method)

	ta.res = []any{"25"}
	_, err = r.ListingPrice(context.Background())
	require.ErrorIs(t, err, market.ErrData)

	ta.res = []any{}
	_, err = r.ListingPrice(context.Background())
	require.ErrorIs(t, err, market.ErrData)
}

func TestReaderTokenURI(t *testing.T) {
	ta := new(testAct)
	r := NewReader(ta)

	ta.res = abiOutput(t, MethodTokenURI, "https://meta/1")
	uri, err := r.TokenURI(context.Background(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, "https://meta/1", uri)
	require.Equal(t, []any{big.NewInt(1)}, ta.args)

	ta.res = []any{big.NewInt(1)}
	_, err = r.TokenURI(context.Background(), big.NewInt(1))
	require.ErrorIs(t, err, market.ErrData)
}

func TestReaderItem(t *testing.T) {
	ta := new(testAct)
	r := NewReader(ta)
	expected := testItem(3, market.Sold)

	ta.res = abiOutput(t, MethodFetchItem, expected)
	item, err := r.Item(context.Background(), big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, expected, item)

	// Values produced by in-memory harnesses.
	ta.res = []any{expected}
	item, err = r.Item(context.Background(), big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, expected, item)

	raw := item.Raw("ipfs://cid")
	require.Equal(t, market.RawAsset{
		TokenID:     expected.TokenId,
		Seller:      expected.Seller,
		Owner:       expected.Owner,
		Price:       expected.Price,
		Status:      uint8(market.Sold),
		MetadataURI: "ipfs://cid",
	}, raw)

	for _, bad := range []any{nil, "item", 42, Item{}} {
		ta.res = []any{bad}
		_, err = r.Item(context.Background(), big.NewInt(3))
		require.ErrorIs(t, err, market.ErrData, bad)
	}
}

func TestReaderItems(t *testing.T) {
	ta := new(testAct)
	r := NewReader(ta)
	expected := []Item{testItem(1, market.Available), testItem(2, market.PendingVerification)}

	for method, f := range map[string]func(context.Context) ([]Item, error){
		MethodFetchPending:     r.PendingItems,
		MethodFetchItemsListed: r.ItemsListed,
		MethodFetchMarketItems: r.MarketItems,
		MethodFetchAllItems:    r.AllItems,
	} {
		t.Run(method, func(t *testing.T) {
			ta.err = errors.New("not an authorized verifier")
			_, err := f(context.Background())
			require.Error(t, err)

			ta.err = nil
			ta.res = abiOutput(t, method, expected)
			items, err := f(context.Background())
			require.NoError(t, err)
			require.Equal(t, expected, items)
			require.Equal(t, method, ta.method)

			ta.res = abiOutput(t, method, []Item{})
			items, err = f(context.Background())
			require.NoError(t, err)
			require.Empty(t, items)

			ta.res = []any{[]string{"a"}}
			_, err = f(context.Background())
			require.ErrorIs(t, err, market.ErrData)
		})
	}
}

func TestContractWrites(t *testing.T) {
	ta := &testAct{rcpt: &gateway.Receipt{Hash: common.Hash{1}}}
	c := New(ta)
	require.Equal(t, common.Address{0xaa}, c.Sender())
	ctx := context.Background()
	id := big.NewInt(5)
	price := big.NewInt(1000)
	fee := big.NewInt(25)
	verifier := common.Address{0xbb}

	for name, tc := range map[string]struct {
		call   func() (*gateway.Receipt, error)
		method string
		value  *big.Int
		args   []any
	}{
		"create":  {func() (*gateway.Receipt, error) { return c.CreateToken(ctx, "uri", price, fee) }, MethodCreateToken, fee, []any{"uri", price}},
		"add":     {func() (*gateway.Receipt, error) { return c.AddVerifier(ctx, verifier) }, MethodAddVerifier, nil, []any{verifier}},
		"remove":  {func() (*gateway.Receipt, error) { return c.RemoveVerifier(ctx, verifier) }, MethodRemoveVerifier, nil, []any{verifier}},
		"approve": {func() (*gateway.Receipt, error) { return c.Approve(ctx, id) }, MethodApprove, nil, []any{id}},
		"reject":  {func() (*gateway.Receipt, error) { return c.Reject(ctx, id) }, MethodReject, nil, []any{id}},
		"buy":     {func() (*gateway.Receipt, error) { return c.CreateMarketSale(ctx, id, price) }, MethodCreateMarketSale, price, []any{id}},
		"resell":  {func() (*gateway.Receipt, error) { return c.ResellToken(ctx, id, price, fee) }, MethodResellToken, fee, []any{id, price}},
		"toggle":  {func() (*gateway.Receipt, error) { return c.ToggleAvailability(ctx, id) }, MethodToggle, nil, []any{id}},
	} {
		t.Run(name, func(t *testing.T) {
			r, err := tc.call()
			require.NoError(t, err)
			require.Equal(t, ta.rcpt, r)
			require.Equal(t, tc.method, ta.method)
			require.Equal(t, tc.value, ta.value)
			require.Equal(t, tc.args, ta.args)
		})
	}

	ta.method = ""
	_, err := c.CreateToken(ctx, "uri", big.NewInt(-1), fee)
	require.ErrorIs(t, err, market.ErrInvalidArgument)
	tooBig := new(big.Int).Lsh(big.NewInt(1), 256)
	_, err = c.ResellToken(ctx, id, tooBig, fee)
	require.ErrorIs(t, err, market.ErrInvalidArgument)
	_, err = c.CreateMarketSale(ctx, id, nil)
	require.ErrorIs(t, err, market.ErrInvalidArgument)
	require.Empty(t, ta.method)
}

func TestMintedTokenID(t *testing.T) {
	minter := common.BytesToHash(common.Address{0xcc}.Bytes())
	r := &gateway.Receipt{Logs: []*types.Log{
		{Topics: []common.Hash{common.Hash{0x01}}},
		{Topics: []common.Hash{TransferEvent, minter, minter, common.BigToHash(big.NewInt(9))}},
		{Topics: []common.Hash{TransferEvent, {}, minter, common.BigToHash(big.NewInt(7))}},
	}}
	id, ok := MintedTokenID(r)
	require.True(t, ok)
	require.Equal(t, big.NewInt(7), id)

	_, ok = MintedTokenID(&gateway.Receipt{})
	require.False(t, ok)
}
