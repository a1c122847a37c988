package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/kittychain/cli/kitty"
	"github.com/nspcc-dev/kittychain/cli/query"
	"github.com/nspcc-dev/kittychain/cli/server"
	"github.com/nspcc-dev/kittychain/cli/shell"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "KittyChain\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates a KittyChain instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "kittychain"
	ctl.Version = config.Version
	ctl.Usage = "Kitty ledger node and client"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	ctl.Commands = append(ctl.Commands, kitty.NewCommands()...)
	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	ctl.Commands = append(ctl.Commands, shell.NewCommands()...)
	return ctl
}
