/*
Package cmdargs contains helpers to parse positional command line arguments.
*/
package cmdargs

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli"
)

var (
	errNoTokenID = errors.New("token ID is required as the first argument")
	errNoAddress = errors.New("address is required as the first argument")
)

// EnsureNone returns an error if there are any positional arguments present.
// It can be used to check for them in commands that don't accept arguments.
func EnsureNone(ctx *cli.Context) *cli.ExitError {
	if ctx.Args().Present() {
		return cli.NewExitError("additional arguments given while this command expects none", 1)
	}
	return nil
}

// GetTokenID parses the only positional argument as a decimal token ID.
func GetTokenID(ctx *cli.Context) (*big.Int, *cli.ExitError) {
	args := ctx.Args()
	if !args.Present() {
		return nil, cli.NewExitError(errNoTokenID, 1)
	}
	if len(args) > 1 {
		return nil, cli.NewExitError("only one token ID is accepted", 1)
	}
	id, err := ParseTokenID(args.First())
	if err != nil {
		return nil, cli.NewExitError(err, 1)
	}
	return id, nil
}

// GetAddress parses the only positional argument as a hex address.
func GetAddress(ctx *cli.Context) (common.Address, *cli.ExitError) {
	args := ctx.Args()
	if !args.Present() {
		return common.Address{}, cli.NewExitError(errNoAddress, 1)
	}
	if len(args) > 1 {
		return common.Address{}, cli.NewExitError("only one address is accepted", 1)
	}
	addr, err := ParseAddress(args.First())
	if err != nil {
		return common.Address{}, cli.NewExitError(err, 1)
	}
	return addr, nil
}

// ParseTokenID parses decimal positive token ID.
func ParseTokenID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid token ID %q", s)
	}
	return id, nil
}

// ParseAddress parses 0x-prefixed (or not) hex address.
func ParseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
