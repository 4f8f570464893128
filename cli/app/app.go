/*
Package app creates the bonafide command line application.
*/
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/ssoonwee/bonafide/cli/market"
	"github.com/ssoonwee/bonafide/cli/server"
	"github.com/ssoonwee/bonafide/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "bonafide\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a bonafide instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "bonafide"
	ctl.Version = config.Version
	ctl.Usage = "Client for the bonafide NFT marketplace"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, market.NewCommands()...)
	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	return ctl
}
