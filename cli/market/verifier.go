package market

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ssoonwee/bonafide/cli/cmdargs"
	"github.com/ssoonwee/bonafide/cli/options"
	"github.com/ssoonwee/bonafide/pkg/lifecycle"
	"github.com/urfave/cli"
)

type verifierOpFunc func(context.Context, common.Address) (*lifecycle.Outcome, error)

func verifierFunc(get func(*lifecycle.Controller) verifierOpFunc) func(*cli.Context) error {
	return func(ctx *cli.Context) error {
		addr, exitErr := cmdargs.GetAddress(ctx)
		if exitErr != nil {
			return exitErr
		}
		return run(ctx, true, func(gctx context.Context, s *options.Stack) error {
			o, err := get(s.Controller)(gctx, addr)
			dumpOutcome(ctx.App.Writer, o, s.Config.Chain.Decimals)
			return err
		})
	}
}
