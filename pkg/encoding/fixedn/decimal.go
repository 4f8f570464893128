/*
Package fixedn converts integer amounts denominated in the chain's smallest
unit to and from their fixed-point decimal representation.

All conversions are performed with big integers, so no rounding of the
integer mantissa ever happens: FromString(ToString(x, p), p) always returns
x for any x and precision p.
*/
package fixedn

import (
	"errors"
	"math/big"
	"strings"
)

const (
	// EtherDecimals is the number of decimals of the native unit of the
	// reference chain (wei to ether).
	EtherDecimals = 18
	// MaxPrecision is the maximum supported precision, 10^77 is the largest
	// power of ten that fits into uint256.
	MaxPrecision = 77
)

var (
	// ErrInvalidFormat is returned when decimal format is invalid.
	ErrInvalidFormat = errors.New("invalid decimal format")
	// ErrInvalidPrecision is returned for precision values outside of
	// [0, MaxPrecision] range.
	ErrInvalidPrecision = errors.New("invalid precision")
)

var _pow10 [MaxPrecision + 1]*big.Int

func init() {
	var ten = big.NewInt(10)
	_pow10[0] = big.NewInt(1)
	for i := 1; i <= MaxPrecision; i++ {
		_pow10[i] = new(big.Int).Mul(_pow10[i-1], ten)
	}
}

// Pow10 returns 10^n. The result must not be modified. It panics if n is
// outside of [0, MaxPrecision].
func Pow10(n int) *big.Int {
	return _pow10[n]
}

// ToString converts an integer amount with the specified precision to a
// decimal string. Trailing fractional zeroes are trimmed, so 10^18 with
// precision 18 is "1" and 1 is "0.000000000000000001". Nil is treated as
// zero.
func ToString(bi *big.Int, precision int) string {
	if bi == nil {
		return "0"
	}
	if precision <= 0 {
		return bi.String()
	}
	if precision > MaxPrecision {
		precision = MaxPrecision
	}
	var (
		abs    = new(big.Int).Abs(bi)
		dp, fp big.Int
		buf    strings.Builder
	)
	dp.QuoRem(abs, _pow10[precision], &fp)
	if bi.Sign() < 0 {
		buf.WriteByte('-')
	}
	buf.WriteString(dp.String())
	if fp.Sign() != 0 {
		frac := fp.String()
		buf.WriteByte('.')
		for i := len(frac); i < precision; i++ {
			buf.WriteByte('0')
		}
		buf.WriteString(strings.TrimRight(frac, "0"))
	}
	return buf.String()
}

// FromString parses s which must be a decimal number with at most
// precision fractional digits and returns it as an integer amount.
func FromString(s string, precision int) (*big.Int, error) {
	if precision < 0 || precision > MaxPrecision {
		return nil, ErrInvalidPrecision
	}
	s = strings.TrimSpace(s)
	var neg bool
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	if !isDigits(parts[0]) || (len(parts) == 2 && !isDigits(parts[1])) {
		return nil, ErrInvalidFormat
	}
	if len(parts) == 2 && len(parts[1]) > precision {
		return nil, ErrInvalidFormat
	}
	bi, ok := new(big.Int).SetString(parts[0], 10)
	if !ok {
		return nil, ErrInvalidFormat
	}
	bi.Mul(bi, _pow10[precision])
	if len(parts) == 2 {
		fp, ok := new(big.Int).SetString(parts[1], 10)
		if !ok {
			return nil, ErrInvalidFormat
		}
		fp.Mul(fp, _pow10[precision-len(parts[1])])
		bi.Add(bi, fp)
	}
	if neg {
		bi.Neg(bi)
	}
	return bi, nil
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
