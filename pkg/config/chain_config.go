package config

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/waiter"
)

// ChainConfiguration describes the chain and the marketplace contract.
type ChainConfiguration struct {
	// Endpoint is the RPC node address.
	Endpoint string `yaml:"Endpoint"`
	// ChainID is checked against the node if non-zero.
	ChainID uint64 `yaml:"ChainID"`
	// Contract is the marketplace contract address.
	Contract string `yaml:"Contract"`
	// Decimals is the number of decimals of the native unit.
	Decimals int `yaml:"Decimals"`
	// GasLimit is used for every transaction if non-zero.
	GasLimit    uint64        `yaml:"GasLimit"`
	DialTimeout time.Duration `yaml:"DialTimeout"`
	Waiter      Waiter        `yaml:"Waiter"`
}

// Waiter is the transaction awaiting configuration.
type Waiter struct {
	PollInterval time.Duration `yaml:"PollInterval"`
	RetryCount   int           `yaml:"RetryCount"`
	MaxBlocks    uint64        `yaml:"MaxBlocks"`
	PollOnly     bool          `yaml:"PollOnly"`
}

// ContractAddress returns the contract address, Validate ensures it's
// correct.
func (c ChainConfiguration) ContractAddress() common.Address {
	return common.HexToAddress(c.Contract)
}

// ChainIDBig returns the chain ID to check or nil if it's not set.
func (c ChainConfiguration) ChainIDBig() *big.Int {
	if c.ChainID == 0 {
		return nil
	}
	return new(big.Int).SetUint64(c.ChainID)
}

// WaiterConfig converts the configuration into waiter.Config.
func (w Waiter) WaiterConfig() waiter.Config {
	return waiter.Config{
		PollConfig: waiter.PollConfig{
			PollInterval: w.PollInterval,
			RetryCount:   w.RetryCount,
			MaxBlocks:    w.MaxBlocks,
		},
		PollOnly: w.PollOnly,
	}
}
