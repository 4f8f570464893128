package flags

import (
	"flag"
	"math/big"
	"strings"

	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/urfave/cli"
)

// Price is a decimal amount of the native unit with flag.Value methods.
// It's converted into the smallest units only when the number of decimals
// is known.
type Price struct {
	IsSet bool
	Value string
}

// PriceFlag is a flag with type Price.
type PriceFlag struct {
	Name  string
	Usage string
	Value Price
}

var (
	_ flag.Value = (*Price)(nil)
	_ cli.Flag   = PriceFlag{}
)

// String implements the fmt.Stringer interface.
func (p Price) String() string {
	return p.Value
}

// Set implements the flag.Value interface.
func (p *Price) Set(s string) error {
	v, err := fixedn.FromString(s, fixedn.MaxPrecision)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if v.Sign() < 0 {
		return cli.NewExitError("negative price", 1)
	}
	p.IsSet = true
	p.Value = s
	return nil
}

// Amount converts the price into the smallest units.
func (p *Price) Amount(decimals int) (*big.Int, error) {
	return fixedn.FromString(p.Value, decimals)
}

// String returns a readable representation of this value
// (for usage defaults).
func (f PriceFlag) String() string {
	var names []string
	eachName(f.Name, func(name string) {
		names = append(names, getNameHelp(name))
	})

	return strings.Join(names, ", ") + "\t" + f.Usage
}

func getNameHelp(name string) string {
	if len(name) == 1 {
		return "-" + name + " value"
	}
	return "--" + name + " value"
}

// GetName returns the name of the flag.
func (f PriceFlag) GetName() string {
	return f.Name
}

// Apply populates the flag given the flag set and environment.
// Ignores errors.
func (f PriceFlag) Apply(set *flag.FlagSet) {
	eachName(f.Name, func(name string) {
		set.Var(&f.Value, name, f.Usage)
	})
}

// PriceFromContext returns the parsed Price value for the given flag name.
func PriceFromContext(ctx *cli.Context, name string) *Price {
	p, _ := ctx.Generic(name).(*Price)
	if p == nil {
		return &Price{}
	}
	return p
}
