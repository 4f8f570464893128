package market

import (
	"fmt"

	"github.com/ssoonwee/bonafide/cli/cmdargs"
	"github.com/ssoonwee/bonafide/cli/options"
	"github.com/ssoonwee/bonafide/pkg/rpcclient/gateway"
	"github.com/ssoonwee/bonafide/pkg/storage"
	"github.com/urfave/cli"
)

// journal doesn't need the node, only the store.
func journal(ctx *cli.Context) error {
	if err := cmdargs.EnsureNone(ctx); err != nil {
		return err
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("could not initialize storage: %w", err), 1)
	}
	defer store.Close()

	var (
		j       = gateway.NewJournal(store)
		entries []gateway.JournalEntry
	)
	if ctx.Bool("pending") {
		entries, err = j.Pending()
	} else {
		entries, err = j.All()
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	dumpJournal(ctx.App.Writer, entries)
	return nil
}
