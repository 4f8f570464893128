package cmdargs

import (
	"flag"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	require.NoError(t, set.Parse(args))
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestParseTokenID(t *testing.T) {
	id, err := ParseTokenID("42")
	require.NoError(t, err)
	require.Equal(t, 0, id.Cmp(big.NewInt(42)))

	for _, s := range []string{"", "0", "-1", "0x10", "one"} {
		_, err := ParseTokenID(s)
		require.Error(t, err, s)
	}
}

func TestParseAddress(t *testing.T) {
	const s = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	addr, err := ParseAddress(s)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(s), addr)

	addr, err = ParseAddress(s[2:])
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(s), addr)

	_, err = ParseAddress("0x123")
	require.Error(t, err)
}

func TestGetTokenID(t *testing.T) {
	_, err := GetTokenID(newContext(t))
	require.NotNil(t, err)
	_, err = GetTokenID(newContext(t, "1", "2"))
	require.NotNil(t, err)
	_, err = GetTokenID(newContext(t, "x"))
	require.NotNil(t, err)

	id, err := GetTokenID(newContext(t, "7"))
	require.Nil(t, err)
	require.Equal(t, int64(7), id.Int64())
}

func TestGetAddress(t *testing.T) {
	_, err := GetAddress(newContext(t))
	require.NotNil(t, err)

	addr, err := GetAddress(newContext(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3"))
	require.Nil(t, err)
	require.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), addr)
}

func TestEnsureNone(t *testing.T) {
	require.Nil(t, EnsureNone(newContext(t)))
	require.NotNil(t, EnsureNone(newContext(t, "extra")))
}
