package fixedn

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToString(t *testing.T) {
	ether := new(big.Int).Set(Pow10(EtherDecimals))
	for expected, bi := range map[string]*big.Int{
		"0":                    big.NewInt(0),
		"0.000000000000000001": big.NewInt(1),
		"1":                    ether,
		"1.5":                  new(big.Int).Add(ether, new(big.Int).Div(ether, big.NewInt(2))),
		"-0.25":                new(big.Int).Neg(new(big.Int).Div(ether, big.NewInt(4))),
		"12345":                new(big.Int).Mul(ether, big.NewInt(12345)),
	} {
		t.Run(expected, func(t *testing.T) {
			require.Equal(t, expected, ToString(bi, EtherDecimals))
		})
	}
	require.Equal(t, "0", ToString(nil, EtherDecimals))
	require.Equal(t, "42", ToString(big.NewInt(42), 0))
	require.Equal(t, "4.2", ToString(big.NewInt(42), 1))
}

func TestFromString(t *testing.T) {
	testCases := []struct {
		s    string
		prec int
		res  *big.Int
	}{
		{"0", EtherDecimals, big.NewInt(0)},
		{"0.000000000000000001", EtherDecimals, big.NewInt(1)},
		{"1", EtherDecimals, Pow10(EtherDecimals)},
		{"123.456", 3, big.NewInt(123456)},
		{"123.4", 3, big.NewInt(123400)},
		{"-1.5", 2, big.NewInt(-150)},
		{"+7", 2, big.NewInt(700)},
	}
	for _, tc := range testCases {
		t.Run(tc.s, func(t *testing.T) {
			res, err := FromString(tc.s, tc.prec)
			require.NoError(t, err)
			require.Equal(t, 0, tc.res.Cmp(res), "got %s", res)
		})
	}

	errCases := []struct {
		s    string
		prec int
	}{
		{"", 2},
		{".", 2},
		{"1.", 2},
		{".5", 2},
		{"1.234", 2},
		{"12a", 2},
		{"1e18", 18},
		{"1..2", 2},
		{"--1", 2},
	}
	for _, tc := range errCases {
		t.Run(tc.s, func(t *testing.T) {
			_, err := FromString(tc.s, tc.prec)
			require.ErrorIs(t, err, ErrInvalidFormat)
		})
	}

	_, err := FromString("1", -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)
	_, err = FromString("1", MaxPrecision+1)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	require.True(t, ok)
	for _, bi := range []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		new(big.Int).Set(Pow10(EtherDecimals)),
		new(big.Int).Add(Pow10(EtherDecimals), big.NewInt(1)),
		big.NewInt(999999999999999999),
		huge,
	} {
		s := ToString(bi, EtherDecimals)
		back, err := FromString(s, EtherDecimals)
		require.NoError(t, err)
		assert.Equal(t, 0, bi.Cmp(back), "%s -> %s -> %s", bi, s, back)
	}
}
