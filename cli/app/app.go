// Package app assembles the oracle-bridge command line application.
package app

import (
	"fmt"
	"os"
	"runtime"
	"slices"

	"github.com/nspcc-dev/oracle-bridge/cli/query"
	"github.com/nspcc-dev/oracle-bridge/cli/server"
	"github.com/nspcc-dev/oracle-bridge/cli/wallet"
	"github.com/nspcc-dev/oracle-bridge/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "%s\nVersion: %s\nGoVersion: %s\n",
		c.App.Name, config.Version, runtime.Version())
}

// New creates the oracle-bridge [cli.App] with node, wallet and query
// commands.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "oracle-bridge"
	ctl.Version = config.Version
	ctl.Usage = "Weather data oracle bridge node"
	ctl.ErrWriter = os.Stdout
	ctl.Commands = slices.Concat(
		server.NewCommands(),
		wallet.NewCommands(),
		query.NewCommands(),
	)
	return ctl
}
