package netmode

import "strconv"

const (
	// MainNet is the chain ID of the Ethereum main network.
	MainNet ChainID = 1
	// TestNet is the chain ID of the Sepolia testing network.
	TestNet ChainID = 11155111
	// PrivNet is the chain ID usually used by local development nodes.
	PrivNet ChainID = 1337
)

// ChainID describes the network the marketplace contract is deployed to.
type ChainID uint64

// String implements the stringer interface.
func (n ChainID) String() string {
	switch n {
	case PrivNet:
		return "privnet"
	case TestNet:
		return "testnet"
	case MainNet:
		return "mainnet"
	default:
		return "chain " + strconv.FormatUint(uint64(n), 10)
	}
}
