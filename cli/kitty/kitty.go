/*
Package kitty implements CLI commands operating on kitties and balances via
the node RPC.
*/
package kitty

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/cli/flags"
	"github.com/nspcc-dev/kittychain/cli/options"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"github.com/nspcc-dev/kittychain/pkg/rpcclient"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/urfave/cli"
)

var (
	senderFlag = flags.AddressFlag{
		Name:  "sender",
		Usage: "Account performing the call",
	}
	toFlag = flags.AddressFlag{
		Name:  "to",
		Usage: "Recipient account",
	}
)

var (
	errNoSender    = errors.New("sender account is missing, use --sender")
	errNoRecipient = errors.New("recipient account is missing, use --to")
)

// NewCommands returns 'kitty' and 'balance' commands.
func NewCommands() []cli.Command {
	callFlags := append([]cli.Flag{senderFlag}, options.RPC...)
	transferFlags := append([]cli.Flag{senderFlag, toFlag}, options.RPC...)
	return []cli.Command{
		{
			Name:  "kitty",
			Usage: "create, breed, trade and inspect kitties",
			Subcommands: []cli.Command{
				{
					Name:      "create",
					Usage:     "create a new random kitty",
					UsageText: "kitty create -r endpoint --sender addr",
					Action:    createKitty,
					Flags:     callFlags,
				},
				{
					Name:      "breed",
					Usage:     "breed a new kitty from two parents of different genders",
					UsageText: "kitty breed -r endpoint --sender addr <dna1> <dna2>",
					Action:    breedKitty,
					Flags:     callFlags,
				},
				{
					Name:      "transfer",
					Usage:     "give a kitty to another account",
					UsageText: "kitty transfer -r endpoint --sender addr --to addr <dna>",
					Action:    transferKitty,
					Flags:     transferFlags,
				},
				{
					Name:      "buy",
					Usage:     "buy a kitty that is on sale",
					UsageText: "kitty buy -r endpoint --sender addr [--limit amount] <dna>",
					Description: `Buys the kitty paying its price to the owner. The price must
   not exceed the limit, no limit means only free kitties can be bought.`,
					Action: buyKitty,
					Flags: append([]cli.Flag{flags.AmountFlag{
						Name:  "limit, l",
						Usage: "Maximum price to pay",
					}}, callFlags...),
				},
				{
					Name:      "set-price",
					Usage:     "put a kitty on sale or take it off sale",
					UsageText: "kitty set-price -r endpoint --sender addr [--price amount] <dna>",
					Description: `Sets the asking price of the kitty, without --price the kitty is
   taken off sale.`,
					Action: setPrice,
					Flags: append([]cli.Flag{flags.AmountFlag{
						Name:  "price",
						Usage: "Asking price",
					}}, callFlags...),
				},
				{
					Name:      "show",
					Usage:     "show kitty details",
					UsageText: "kitty show -r endpoint <dna>",
					Action:    showKitty,
					Flags:     options.RPC,
				},
				{
					Name:      "list",
					Usage:     "list all kitties or kitties of an account",
					UsageText: "kitty list -r endpoint [--owner addr]",
					Action:    listKitties,
					Flags: append([]cli.Flag{flags.AddressFlag{
						Name:  "owner, o",
						Usage: "List kitties of this account only",
					}}, options.RPC...),
				},
				{
					Name:      "count",
					Usage:     "show the number of kitties ever created",
					UsageText: "kitty count -r endpoint",
					Action:    countKitties,
					Flags:     options.RPC,
				},
			},
		},
		{
			Name:  "balance",
			Usage: "inspect and transfer funds",
			Subcommands: []cli.Command{
				{
					Name:      "show",
					Usage:     "show account balances",
					UsageText: "balance show -r endpoint <addr> [<addr> ...]",
					Action:    showBalance,
					Flags:     options.RPC,
				},
				{
					Name:      "transfer",
					Usage:     "transfer funds to another account",
					UsageText: "balance transfer -r endpoint --sender addr --to addr --amount amount [--force]",
					Description: `Transfers funds. The sender account is removed if its balance drops
   below the existential deposit, the remainder is lost.`,
					Action: transferFunds,
					Flags: append([]cli.Flag{flags.AmountFlag{
						Name:  "amount, a",
						Usage: "Amount to transfer",
					}, options.Force}, transferFlags...),
				},
				{
					Name:      "issuance",
					Usage:     "show the total issuance",
					UsageText: "balance issuance -r endpoint",
					Action:    showIssuance,
					Flags:     options.RPC,
				},
			},
		},
	}
}

func senderFromContext(ctx *cli.Context) (util.Uint160, error) {
	sender, ok := flags.AddressFromContext(ctx, "sender")
	if !ok {
		return util.Uint160{}, cli.NewExitError(errNoSender, 1)
	}
	return sender, nil
}

func dnaFromArg(ctx *cli.Context, i int) (state.DNA, error) {
	arg := ctx.Args().Get(i)
	if arg == "" {
		return state.DNA{}, cli.NewExitError("kitty DNA is missing", 1)
	}
	dna, err := state.DNAFromString(arg)
	if err != nil {
		return state.DNA{}, cli.NewExitError(fmt.Errorf("invalid DNA %q: %w", arg, err), 1)
	}
	return dna, nil
}

// DumpExecResult prints a call result with its events.
func DumpExecResult(w io.Writer, aer *state.AppExecResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 4, '\t', 0)
	_, _ = fmt.Fprintf(tw, "Call:\t%s\n", aer.Method)
	_, _ = fmt.Fprintf(tw, "Sender:\t%s\n", address.Uint160ToString(aer.Sender))
	_, _ = fmt.Fprintf(tw, "Position:\t%d/%d\n", aer.Block, aer.Index)
	_, _ = fmt.Fprintf(tw, "State:\t%s\n", aer.State)
	if aer.State != state.Halt {
		_, _ = fmt.Fprintf(tw, "Exception:\t%s\n", aer.FaultException)
	}
	for _, e := range aer.Events {
		_, _ = fmt.Fprintf(tw, "Event:\t%s\n", FormatEvent(e))
	}
	_ = tw.Flush()
}

// FormatEvent returns a human-readable event description.
func FormatEvent(e state.Event) string {
	var details string
	switch e := e.(type) {
	case *state.KittyCreated:
		details = fmt.Sprintf("kitty %s owner %s", e.Kitty, address.Uint160ToString(e.Owner))
	case *state.PriceSet:
		details = fmt.Sprintf("kitty %s price %s", e.Kitty, formatPrice(e.Price))
	case *state.KittyTransferred:
		details = fmt.Sprintf("kitty %s from %s to %s", e.Kitty,
			address.Uint160ToString(e.From), address.Uint160ToString(e.To))
	case *state.KittySold:
		details = fmt.Sprintf("kitty %s seller %s buyer %s price %s", e.Kitty,
			address.Uint160ToString(e.Seller), address.Uint160ToString(e.Buyer), e.Price.ToBig().String())
	case *state.FundsTransferred:
		details = fmt.Sprintf("%s from %s to %s", e.Amount.ToBig().String(),
			address.Uint160ToString(e.From), address.Uint160ToString(e.To))
	case *state.DustLost:
		details = fmt.Sprintf("%s of %s", e.Amount.ToBig().String(), address.Uint160ToString(e.Account))
	case *state.Endowed:
		details = fmt.Sprintf("%s to %s", e.Amount.ToBig().String(), address.Uint160ToString(e.Account))
	}
	return e.Type().String() + " " + details
}

func formatPrice(p *uint256.Int) string {
	if p == nil {
		return "not for sale"
	}
	return p.ToBig().String()
}

func checkArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return cli.NewExitError(fmt.Errorf("expected %d argument(s), got %d", n, ctx.NArg()), 1)
	}
	return nil
}

// invoke performs a call with a client and prints its result. FAULTed calls
// are reported with a non-zero exit code.
func invoke(ctx *cli.Context, f func(*rpcclient.Client) (*state.AppExecResult, error)) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	aer, err := f(c)
	if aer == nil {
		return cli.NewExitError(err, 1)
	}
	DumpExecResult(ctx.App.Writer, aer)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("call failed: %w", err), 1)
	}
	return nil
}

func createKitty(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0); err != nil {
		return err
	}
	sender, err := senderFromContext(ctx)
	if err != nil {
		return err
	}
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.CreateKitty(sender)
	})
}

func breedKitty(ctx *cli.Context) error {
	if err := checkArgs(ctx, 2); err != nil {
		return err
	}
	sender, err := senderFromContext(ctx)
	if err != nil {
		return err
	}
	p1, err := dnaFromArg(ctx, 0)
	if err != nil {
		return err
	}
	p2, err := dnaFromArg(ctx, 1)
	if err != nil {
		return err
	}
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.BreedKitty(sender, p1, p2)
	})
}

func transferKitty(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1); err != nil {
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
	id, err := dnaFromArg(ctx, 0)
	if err != nil {
		return err
	}
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.TransferKitty(sender, to, id)
	})
}

func buyKitty(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1); err != nil {
		return err
	}
	sender, err := senderFromContext(ctx)
	if err != nil {
		return err
	}
	id, err := dnaFromArg(ctx, 0)
	if err != nil {
		return err
	}
	limit := flags.AmountFromContext(ctx, "limit")
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.BuyKitty(sender, id, limit)
	})
}

func setPrice(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1); err != nil {
		return err
	}
	sender, err := senderFromContext(ctx)
	if err != nil {
		return err
	}
	id, err := dnaFromArg(ctx, 0)
	if err != nil {
		return err
	}
	price := flags.AmountFromContext(ctx, "price")
	return invoke(ctx, func(c *rpcclient.Client) (*state.AppExecResult, error) {
		return c.SetPrice(sender, id, price)
	})
}

// query runs f with a client and a tabwriter flushed afterwards.
func query(ctx *cli.Context, f func(*rpcclient.Client, *tabwriter.Writer) error) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
	if err := f(c, tw); err != nil {
		return cli.NewExitError(err, 1)
	}
	return tw.Flush()
}

func showKitty(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1); err != nil {
		return err
	}
	id, err := dnaFromArg(ctx, 0)
	if err != nil {
		return err
	}
	return query(ctx, func(c *rpcclient.Client, tw *tabwriter.Writer) error {
		k, err := c.GetKitty(id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(tw, "DNA:\t%s\n", k.DNA)
		_, _ = fmt.Fprintf(tw, "Gender:\t%s\n", k.Gender)
		_, _ = fmt.Fprintf(tw, "Owner:\t%s\n", address.Uint160ToString(k.Owner))
		_, _ = fmt.Fprintf(tw, "Price:\t%s\n", formatPrice(k.Price))
		return nil
	})
}

func listKitties(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0); err != nil {
		return err
	}
	return query(ctx, func(c *rpcclient.Client, tw *tabwriter.Writer) error {
		if owner, ok := flags.AddressFromContext(ctx, "owner"); ok {
			ids, err := c.GetKittiesOf(owner)
			if err != nil {
				return err
			}
			for _, id := range ids {
				_, _ = fmt.Fprintln(tw, id)
			}
			return nil
		}
		return c.TraverseKitties(0, func(k *state.Kitty) bool {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.DNA, k.Gender,
				address.Uint160ToString(k.Owner), formatPrice(k.Price))
			return true
		})
	})
}

func countKitties(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0); err != nil {
		return err
	}
	return query(ctx, func(c *rpcclient.Client, tw *tabwriter.Writer) error {
		n, err := c.GetKittyCount()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(tw, n)
		return nil
	})
}
