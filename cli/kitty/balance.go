package kitty

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/nspcc-dev/kittychain/cli/flags"
	"github.com/nspcc-dev/kittychain/cli/input"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"github.com/nspcc-dev/kittychain/pkg/rpcclient"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/urfave/cli"
)

var errNoAmount = errors.New("amount is missing, use --amount")

func showBalance(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return cli.NewExitError("at least one address is required", 1)
	}
	accs := make([]util.Uint160, 0, ctx.NArg())
	for _, arg := range ctx.Args() {
		acc, err := flags.ParseAddress(arg)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid address %q: %w", arg, err), 1)
		}
		accs = append(accs, acc)
	}
	return query(ctx, func(c *rpcclient.Client, tw *tabwriter.Writer) error {
		for _, acc := range accs {
			bal, err := c.GetBalance(acc)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\n", address.Uint160ToString(acc), bal.ToBig())
		}
		return nil
	})
}

func showIssuance(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0); err != nil {
		return err
	}
	return query(ctx, func(c *rpcclient.Client, tw *tabwriter.Writer) error {
		total, err := c.GetTotalIssuance()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, total.ToBig())
		return nil
	})
}

func transferFunds(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0); err != nil {
		return err
	}
	sender, err := senderFromContext(ctx)
	if err != nil {
		return err
	}
	to, ok := flags.AddressFromContext(ctx, "to")
	if !ok {
		return cli.NewExitError(errNoRecipient, 1)
	}
	amount := flags.AmountFromContext(ctx, "amount")
	if amount == nil {
		return cli.NewExitError(errNoAmount, 1)
	}
	if !ctx.Bool("force") {
		ok, err := input.Confirm(fmt.Sprintf("Transfer %s from %s to %s?", amount.ToBig(),
			address.Uint160ToString(sender), address.Uint160ToString(to)))
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		if !ok {
			return cli.NewExitError("transfer cancelled", 1)
		}
	}
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.TransferFunds(sender, to, amount)
	})
}
