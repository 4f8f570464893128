package netmode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChainIDString(t *testing.T) {
	assert.Equal(t, "mainnet", MainNet.String())
	assert.Equal(t, "testnet", TestNet.String())
	assert.Equal(t, "privnet", PrivNet.String())
	assert.Equal(t, "chain 42", ChainID(42).String())
}
