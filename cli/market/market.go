/*
Package market contains marketplace commands: listing, verification,
buying and reselling of assets.
*/
package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ssoonwee/bonafide/cli/cmdargs"
	"github.com/ssoonwee/bonafide/cli/flags"
	"github.com/ssoonwee/bonafide/cli/options"
	"github.com/ssoonwee/bonafide/pkg/encoding/fixedn"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/ssoonwee/bonafide/pkg/market"
	"github.com/urfave/cli"
)

var (
	uriFlag = cli.StringFlag{
		Name:  "uri, u",
		Usage: "metadata document URI",
	}
	priceFlag = flags.PriceFlag{
		Name:  "price",
		Usage: "price in the native unit (e.g. 0.5)",
	}
)

// NewCommands returns 'market' and 'verifier' commands.
func NewCommands() []cli.Command {
	common := options.Common()
	withURI := append([]cli.Flag{uriFlag}, common...)
	return []cli.Command{{
		Name:  "market",
		Usage: "work with the marketplace contract",
		Subcommands: []cli.Command{
			{
				Name:   "list",
				Usage:  "list assets available for sale",
				Action: listFunc(func(c *lifecycle.Controller) fetchFunc { return c.FetchListed }),
				Flags:  common,
			},
			{
				Name:   "all",
				Usage:  "list all assets",
				Action: listFunc(func(c *lifecycle.Controller) fetchFunc { return c.FetchAll }),
				Flags:  common,
			},
			{
				Name:   "mine",
				Usage:  "list assets listed by the wallet account",
				Action: listFunc(func(c *lifecycle.Controller) fetchFunc { return c.FetchMyListings }),
				Flags:  common,
			},
			{
				Name:   "pending",
				Usage:  "list assets waiting for verification (verifiers only)",
				Action: listFunc(func(c *lifecycle.Controller) fetchFunc { return c.FetchPendingVerification }),
				Flags:  common,
			},
			{
				Name:      "show",
				Usage:     "show asset details",
				UsageText: "bonafide market show [--uri <uri>] <id>",
				Action:    show,
				Flags:     withURI,
			},
			{
				Name:   "fee",
				Usage:  "show listing fee",
				Action: fee,
				Flags:  common,
			},
			{
				Name:      "create",
				Usage:     "list new asset for verification and sale",
				UsageText: "bonafide market create --uri <uri> --price <price> -w wallet.json",
				Action:    create,
				Flags:     append(flags.MarkRequired([]cli.Flag{uriFlag}, "uri"), append([]cli.Flag{priceFlag}, common...)...),
			},
			{
				Name:      "buy",
				Usage:     "buy asset for its current price",
				UsageText: "bonafide market buy [--price <price>] -w wallet.json <id>",
				Description: `Buys the asset paying its price. Unless --price is given it's read
   from the contract just before buying.`,
				Action: buy,
				Flags:  append([]cli.Flag{priceFlag}, common...),
			},
			{
				Name:      "resell",
				Usage:     "put bought asset on sale again",
				UsageText: "bonafide market resell --price <price> -w wallet.json <id>",
				Action:    resell,
				Flags:     append([]cli.Flag{priceFlag}, common...),
			},
			{
				Name:      "toggle",
				Usage:     "toggle asset availability",
				UsageText: "bonafide market toggle -w wallet.json <id>",
				Action:    itemFunc(func(c *lifecycle.Controller) itemOpFunc { return c.ToggleAvailability }),
				Flags:     common,
			},
			{
				Name:      "approve",
				Usage:     "approve pending asset (verifiers only)",
				UsageText: "bonafide market approve -w wallet.json <id>",
				Action:    itemFunc(func(c *lifecycle.Controller) itemOpFunc { return c.ApproveVerification }),
				Flags:     common,
			},
			{
				Name:      "reject",
				Usage:     "reject pending asset (verifiers only)",
				UsageText: "bonafide market reject -w wallet.json <id>",
				Action:    itemFunc(func(c *lifecycle.Controller) itemOpFunc { return c.RejectVerification }),
				Flags:     common,
			},
			{
				Name:   "journal",
				Usage:  "show sent transactions recorded in the local store",
				Action: journal,
				Flags: []cli.Flag{
					options.Config, options.ConfigFile,
					options.Network[0], options.Network[1], options.Network[2],
					cli.BoolFlag{Name: "pending", Usage: "only show transactions not confirmed yet"},
				},
			},
		},
	}, {
		Name:  "verifier",
		Usage: "manage authorized verifiers (contract owner only)",
		Subcommands: []cli.Command{
			{
				Name:      "add",
				Usage:     "authorize verifier",
				UsageText: "bonafide verifier add -w wallet.json <address>",
				Action:    verifierFunc(func(c *lifecycle.Controller) verifierOpFunc { return c.AuthorizeVerifier }),
				Flags:     common,
			},
			{
				Name:      "remove",
				Usage:     "deauthorize verifier",
				UsageText: "bonafide verifier remove -w wallet.json <address>",
				Action:    verifierFunc(func(c *lifecycle.Controller) verifierOpFunc { return c.DeauthorizeVerifier }),
				Flags:     common,
			},
		},
	}}
}

// run opens the stack and executes f converting errors into exit codes.
// Outcome printed by f is kept even if the error is returned.
func run(ctx *cli.Context, signer bool, f func(context.Context, *options.Stack) error) error {
	gctx, cancel := options.GetTimeoutContext(ctx, signer)
	defer cancel()

	s, err := options.NewStack(gctx, ctx, signer)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer s.Close()

	err = f(gctx, s)
	if err != nil {
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			return err
		}
		return cli.NewExitError(err, 1)
	}
	return nil
}

type fetchFunc func(context.Context) ([]market.Entry, error)

func listFunc(get func(*lifecycle.Controller) fetchFunc) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		if err := cmdargs.EnsureNone(ctx); err != nil {
			return err
		}
		return run(ctx, false, func(gctx context.Context, s *options.Stack) error {
			entries, err := get(s.Controller)(gctx)
			if err != nil {
				return err
			}
			dumpEntries(ctx.App.Writer, entries)
			return nil
		})
	}
}

func show(ctx *cli.Context) error {
	id, exitErr := cmdargs.GetTokenID(ctx)
	if exitErr != nil {
		return exitErr
	}
	return run(ctx, false, func(gctx context.Context, s *options.Stack) error {
		rec, err := s.Controller.FetchOneWithURI(gctx, id, ctx.String("uri"))
		if err != nil {
			return err
		}
		dumpRecord(ctx.App.Writer, rec)
		return nil
	})
}

func fee(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	return run(ctx, false, func(gctx context.Context, s *options.Stack) error {
		f, err := s.Controller.ListingFee(gctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, fixedn.ToString(f, s.Config.Chain.Decimals))
		return nil
	})
}

func getPrice(ctx *cli.Context, decimals int) (*big.Int, error) {
	p := flags.PriceFromContext(ctx, "price")
	if !p.IsSet {
		return nil, nil
	}
	v, err := p.Amount(decimals)
	if err != nil {
		return nil, cli.NewExitError(fmt.Errorf("invalid price %q: %w", p.Value, err), 1)
	}
	return v, nil
}

func requirePrice(ctx *cli.Context, decimals int) (*big.Int, error) {
	v, err := getPrice(ctx, decimals)
	if err == nil && v == nil {
		err = cli.NewExitError("price is required, use '--price' flag", 1)
	}
	return v, err
}

func create(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	if !flags.PriceFromContext(ctx, "price").IsSet {
		return cli.NewExitError("price is required, use '--price' flag", 1)
	}
	return run(ctx, true, func(gctx context.Context, s *options.Stack) error {
		price, err := requirePrice(ctx, s.Config.Chain.Decimals)
		if err != nil {
			return err
		}
		o, err := s.Controller.ListAsset(gctx, ctx.String("uri"), price)
		dumpOutcome(ctx.App.Writer, o, s.Config.Chain.Decimals)
		return err
	})
}

func buy(ctx *cli.Context) error {
	id, exitErr := cmdargs.GetTokenID(ctx)
	if exitErr != nil {
		return exitErr
	}
	return run(ctx, true, func(gctx context.Context, s *options.Stack) error {
		price, err := getPrice(ctx, s.Config.Chain.Decimals)
		if err != nil {
			return err
		}
		if price == nil {
			rec, err := s.Controller.FetchOne(gctx, id)
			if err != nil {
				return err
			}
			price = rec.Price
		}
		o, err := s.Controller.Buy(gctx, id, price)
		dumpOutcome(ctx.App.Writer, o, s.Config.Chain.Decimals)
		return err
	})
}

func resell(ctx *cli.Context) error {
	id, exitErr := cmdargs.GetTokenID(ctx)
	if exitErr != nil {
		return exitErr
	}
	if !flags.PriceFromContext(ctx, "price").IsSet {
		return cli.NewExitError("price is required, use '--price' flag", 1)
	}
	return run(ctx, true, func(gctx context.Context, s *options.Stack) error {
		price, err := requirePrice(ctx, s.Config.Chain.Decimals)
		if err != nil {
			return err
		}
		o, err := s.Controller.Resell(gctx, id, price)
		dumpOutcome(ctx.App.Writer, o, s.Config.Chain.Decimals)
		return err
	})
}

type itemOpFunc func(context.Context, *big.Int) (*lifecycle.Outcome, error)

func itemFunc(get func(*lifecycle.Controller) itemOpFunc) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		id, exitErr := cmdargs.GetTokenID(ctx)
		if exitErr != nil {
			return exitErr
		}
		return run(ctx, true, func(gctx context.Context, s *options.Stack) error {
			o, err := get(s.Controller)(gctx, id)
			dumpOutcome(ctx.App.Writer, o, s.Config.Chain.Decimals)
			return err
		})
	}
}
