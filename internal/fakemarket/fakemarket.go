/*
Package fakemarket provides an in-memory marketplace contract implementing
the gateway.RPCActor interface. It follows the rules of the deployed
contract closely enough to drive lifecycle and view tests end-to-end:
listing fee escrow, verifier authorization, status transitions and ERC-721
Transfer logs. Calls and transactions go through ABI packing, so results
have exactly the shape a real node returns.
*/
package fakemarket

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/marketplace"
)

// Default addresses, the same as the ones a local development node uses for
// the first deployment.
var (
	ContractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	DeployerAddress = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
)

// DefaultListingPrice is the listing fee used by New, 0.025 of the native
// unit.
var DefaultListingPrice = big.NewInt(25_000_000_000_000_000)

// Market is an in-memory marketplace contract with a trivial chain attached:
// every accepted transaction is mined into a separate block.
type Market struct {
	mtx sync.Mutex

	// Owner is the contract deployer, the only one allowed to manage
	// verifiers.
	Owner common.Address
	// Address is the contract address, listed items are escrowed to it.
	Address common.Address
	// ListingPrice is the fee required for listing and reselling.
	ListingPrice *big.Int
	// RevertOnChain makes failing transactions be mined with a failed
	// receipt instead of being rejected at submission.
	RevertOnChain bool
	// DropTransactions makes transactions be accepted but never mined,
	// the chain keeps growing on every BlockNumber request then.
	DropTransactions bool
	// TransactF is called before every transaction is executed (outside
	// of the market lock), non-nil error rejects the transaction.
	TransactF func(sender common.Address, method string) error
	// CallF is called before every call, non-nil error fails it.
	CallF func(sender common.Address, method string) error

	abi       abi.ABI
	items     map[uint64]*marketplace.Item
	uris      map[uint64]string
	verifiers map[common.Address]bool
	receipts  map[common.Hash]*types.Receipt
	lastID    uint64
	height    uint64
	nonce     uint64
}

// Conn is a connection to the market bound to some account.
type Conn struct {
	m       *Market
	sender  common.Address
	canSign bool
}

// revert is a contract-level failure.
type revert string

func (r revert) Error() string {
	return "execution reverted: " + string(r)
}

// ErrExecutionReverted is wrapped by all contract-level failures.
var ErrExecutionReverted = errors.New("execution reverted")

// Is allows to check for ErrExecutionReverted.
func (r revert) Is(target error) bool {
	return target == ErrExecutionReverted
}

// New creates an empty market deployed by DeployerAddress.
func New() *Market {
	return &Market{
		Owner:        DeployerAddress,
		Address:      ContractAddress,
		ListingPrice: new(big.Int).Set(DefaultListingPrice),
		abi:          marketplace.ParsedABI(),
		items:        make(map[uint64]*marketplace.Item),
		uris:         make(map[uint64]string),
		verifiers:    make(map[common.Address]bool),
		receipts:     make(map[common.Hash]*types.Receipt),
	}
}

// Connect returns a signer-bound connection for the given account.
func (m *Market) Connect(addr common.Address) *Conn {
	return &Conn{m: m, sender: addr, canSign: true}
}

// ConnectReadOnly returns a connection without a signer, calls are made from
// the zero address.
func (m *Market) ConnectReadOnly() *Conn {
	return &Conn{m: m}
}

// Height returns the current chain height.
func (m *Market) Height() uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.height
}

// Item returns a copy of the item with the given ID.
func (m *Market) Item(id uint64) (marketplace.Item, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	it, ok := m.items[id]
	if !ok {
		return marketplace.Item{}, false
	}
	return copyItem(it), true
}

// IsVerifier returns true if the given address is an authorized verifier.
func (m *Market) IsVerifier(addr common.Address) bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.verifiers[addr]
}

// SetStatus overwrites the status of the item, any code (including the ones
// unknown to the client) can be set.
func (m *Market) SetStatus(id uint64, status uint8) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if it, ok := m.items[id]; ok {
		it.Status = status
	}
}

// SetURI overwrites the token URI of the item.
func (m *Market) SetURI(id uint64, uri string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if _, ok := m.items[id]; ok {
		m.uris[id] = uri
	}
}

// Sender implements gateway.RPCActor.
func (c *Conn) Sender() common.Address {
	return c.sender
}

// CanSign implements gateway.RPCActor.
func (c *Conn) CanSign() bool {
	return c.canSign
}

// BlockNumber implements gateway.RPCActor.
func (c *Conn) BlockNumber(ctx context.Context) (uint64, error) {
	m := c.m
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.DropTransactions {
		m.height++
	}
	return m.height, nil
}

// TransactionReceipt implements gateway.RPCActor.
func (c *Conn) TransactionReceipt(ctx context.Context, h common.Hash) (*types.Receipt, error) {
	m := c.m
	m.mtx.Lock()
	defer m.mtx.Unlock()
	rcpt, ok := m.receipts[h]
	if !ok {
		return nil, ethereum.NotFound
	}
	return rcpt, nil
}

// Call implements gateway.RPCActor.
func (c *Conn) Call(ctx context.Context, method string, params ...any) ([]any, error) {
	m := c.m
	if f := m.CallF; f != nil {
		if err := f(c.sender, method); err != nil {
			return nil, err
		}
	}
	abiMethod, ok := m.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("method '%s' not found", method)
	}
	if _, err := abiMethod.Inputs.Pack(params...); err != nil {
		return nil, err
	}

	m.mtx.Lock()
	res, err := m.call(c.sender, method, params)
	m.mtx.Unlock()
	if err != nil {
		return nil, err
	}
	data, err := abiMethod.Outputs.Pack(res...)
	if err != nil {
		return nil, err
	}
	return abiMethod.Outputs.Unpack(data)
}

// Transact implements gateway.RPCActor. Contract failures are returned
// as errors (the way gas estimation reports them) unless RevertOnChain is
// set.
func (c *Conn) Transact(ctx context.Context, value *big.Int, method string, params ...any) (*types.Transaction, error) {
	if !c.canSign {
		return nil, errors.New("no signer")
	}
	m := c.m
	if f := m.TransactF; f != nil {
		if err := f(c.sender, method); err != nil {
			return nil, err
		}
	}
	data, err := m.abi.Pack(method, params...)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()

	var (
		to     = m.Address
		status = types.ReceiptStatusSuccessful
		logs   []*types.Log
	)
	if !m.DropTransactions {
		logs, err = m.execute(c.sender, value, method, params)
		if err != nil {
			if !m.RevertOnChain {
				return nil, err
			}
			status = types.ReceiptStatusFailed
			logs = nil
		}
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    m.nonce,
		GasPrice: big.NewInt(1),
		Gas:      300000,
		To:       &to,
		Value:    new(big.Int).Set(value),
		Data:     data,
	})
	m.nonce++
	if m.DropTransactions {
		return tx, nil
	}
	m.height++
	for i, l := range logs {
		l.TxHash = tx.Hash()
		l.BlockNumber = m.height
		l.Index = uint(i)
	}
	m.receipts[tx.Hash()] = &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(m.height),
		GasUsed:     21000 + uint64(len(data))*16,
		Logs:        logs,
	}
	return tx, nil
}

func (m *Market) call(sender common.Address, method string, params []any) ([]any, error) {
	switch method {
	case marketplace.MethodGetListingPrice:
		return []any{new(big.Int).Set(m.ListingPrice)}, nil
	case marketplace.MethodTokenURI:
		id := params[0].(*big.Int)
		if _, err := m.item(id); err != nil {
			return nil, revert("ERC721Metadata: URI query for nonexistent token")
		}
		return []any{m.uris[id.Uint64()]}, nil
	case marketplace.MethodFetchItem:
		it, err := m.item(params[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return []any{copyItem(it)}, nil
	case marketplace.MethodFetchPending:
		if !m.verifiers[sender] {
			return nil, revert("not an authorized verifier")
		}
		return []any{m.filter(func(it *marketplace.Item) bool {
			return it.Status == uint8(market.PendingVerification)
		})}, nil
	case marketplace.MethodFetchItemsListed:
		return []any{m.filter(func(it *marketplace.Item) bool {
			return it.Seller == sender
		})}, nil
	case marketplace.MethodFetchMarketItems:
		return []any{m.filter(func(it *marketplace.Item) bool {
			return it.Status == uint8(market.Available)
		})}, nil
	case marketplace.MethodFetchAllItems:
		return []any{m.filter(func(*marketplace.Item) bool { return true })}, nil
	}
	return nil, fmt.Errorf("method %s is not a view", method)
}

func (m *Market) execute(sender common.Address, value *big.Int, method string, params []any) ([]*types.Log, error) {
	switch method {
	case marketplace.MethodCreateToken:
		uri, price := params[0].(string), params[1].(*big.Int)
		if price.Sign() <= 0 {
			return nil, revert("Price must be at least 1 wei")
		}
		if value.Cmp(m.ListingPrice) != 0 {
			return nil, revert("Price must be equal to listing price")
		}
		m.lastID++
		id := new(big.Int).SetUint64(m.lastID)
		m.items[m.lastID] = &marketplace.Item{
			Price:   new(big.Int).Set(price),
			Status:  uint8(market.PendingVerification),
			TokenId: id,
			Seller:  sender,
			Owner:   m.Address,
		}
		m.uris[m.lastID] = uri
		return []*types.Log{
			m.transferLog(common.Address{}, sender, id),
			m.transferLog(sender, m.Address, id),
		}, nil

	case marketplace.MethodAddVerifier, marketplace.MethodRemoveVerifier:
		if sender != m.Owner {
			return nil, revert("only marketplace owner can manage verifiers")
		}
		addr := params[0].(common.Address)
		if method == marketplace.MethodAddVerifier {
			m.verifiers[addr] = true
		} else {
			delete(m.verifiers, addr)
		}
		return nil, nil

	case marketplace.MethodApprove, marketplace.MethodReject:
		if !m.verifiers[sender] {
			return nil, revert("not an authorized verifier")
		}
		it, err := m.item(params[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		if it.Status != uint8(market.PendingVerification) {
			return nil, revert("item is not pending verification")
		}
		if method == marketplace.MethodApprove {
			it.Status = uint8(market.Available)
		} else {
			it.Status = uint8(market.Rejected)
		}
		return nil, nil

	case marketplace.MethodCreateMarketSale:
		it, err := m.item(params[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		if it.Status != uint8(market.Available) {
			return nil, revert("item is not available for sale")
		}
		if value.Cmp(it.Price) != 0 {
			return nil, revert("Please submit the asking price in order to complete the purchase")
		}
		it.Owner = sender
		it.Status = uint8(market.Sold)
		return []*types.Log{m.transferLog(m.Address, sender, it.TokenId)}, nil

	case marketplace.MethodResellToken:
		it, err := m.item(params[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		price := params[1].(*big.Int)
		if it.Owner != sender {
			return nil, revert("Only item owner can perform this operation")
		}
		if it.Status != uint8(market.Sold) {
			return nil, revert("item is not sold")
		}
		if price.Sign() <= 0 {
			return nil, revert("Price must be at least 1 wei")
		}
		if value.Cmp(m.ListingPrice) != 0 {
			return nil, revert("Price must be equal to listing price")
		}
		it.Seller = sender
		it.Owner = m.Address
		it.Price = new(big.Int).Set(price)
		it.Status = uint8(market.Available)
		return []*types.Log{m.transferLog(sender, m.Address, it.TokenId)}, nil

	case marketplace.MethodToggle:
		it, err := m.item(params[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		if it.Owner != sender && it.Seller != sender {
			return nil, revert("only item owner or seller can toggle availability")
		}
		switch market.Status(it.Status) {
		case market.Available:
			it.Status = uint8(market.Unavailable)
		case market.Sold, market.Unavailable:
			it.Status = uint8(market.Available)
		default:
			return nil, revert("item availability can't be toggled")
		}
		return nil, nil
	}
	return nil, fmt.Errorf("method %s is not payable or doesn't exist", method)
}

func (m *Market) item(id *big.Int) (*marketplace.Item, error) {
	if !id.IsUint64() {
		return nil, revert("no such item")
	}
	it, ok := m.items[id.Uint64()]
	if !ok {
		return nil, revert("no such item")
	}
	return it, nil
}

func (m *Market) filter(f func(*marketplace.Item) bool) []marketplace.Item {
	ids := make([]uint64, 0, len(m.items))
	for id := range m.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]marketplace.Item, 0, len(ids))
	for _, id := range ids {
		if it := m.items[id]; f(it) {
			res = append(res, copyItem(it))
		}
	}
	return res
}

func (m *Market) transferLog(from, to common.Address, id *big.Int) *types.Log {
	return &types.Log{
		Address: m.Address,
		Topics: []common.Hash{
			marketplace.TransferEvent,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
			common.BigToHash(id),
		},
	}
}

func copyItem(it *marketplace.Item) marketplace.Item {
	return marketplace.Item{
		Price:   new(big.Int).Set(it.Price),
		Status:  it.Status,
		TokenId: new(big.Int).Set(it.TokenId),
		Seller:  it.Seller,
		Owner:   it.Owner,
	}
}
