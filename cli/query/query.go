package query

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/nspcc-dev/kittychain/cli/flags"
	"github.com/nspcc-dev/kittychain/cli/kitty"
	"github.com/nspcc-dev/kittychain/cli/options"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/rpcclient"
	"github.com/urfave/cli"
)

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	watchFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "stream",
			Value: kittyrpc.NotificationEventID.String(),
			Usage: "Event stream to watch: block_added, call_executed or kitty_event",
		},
		cli.UintFlag{
			Name:  "count, c",
			Usage: "Stop after receiving this number of events (0 means until interrupted)",
		},
		cli.StringFlag{
			Name:  "name",
			Usage: "Event name filter (kitty_event)",
		},
		cli.StringFlag{
			Name:  "kitty",
			Usage: "Kitty DNA filter (kitty_event)",
		},
		flags.AddressFlag{
			Name:  "account",
			Usage: "Participating account filter (kitty_event)",
		},
		cli.StringFlag{
			Name:  "method",
			Usage: "Method filter (call_executed)",
		},
		flags.AddressFlag{
			Name:  "sender",
			Usage: "Sender filter (call_executed)",
		},
		cli.UintFlag{
			Name:  "since",
			Usage: "Minimal block index (block_added)",
		},
	}, options.RPC...)
	return []cli.Command{{
		Name:  "query",
		Usage: "query chain state",
		Subcommands: []cli.Command{
			{
				Name:      "height",
				Usage:     "show the current chain height and the last block hash",
				UsageText: "query height -r endpoint",
				Action:    queryHeight,
				Flags:     options.RPC,
			},
			{
				Name:      "block",
				Usage:     "show block header",
				UsageText: "query block -r endpoint <index>",
				Action:    queryBlock,
				Flags:     options.RPC,
			},
			{
				Name:      "log",
				Usage:     "show results of all calls in the block",
				UsageText: "query log -r endpoint <index>",
				Action:    queryLog,
				Flags:     options.RPC,
			},
			{
				Name:      "watch",
				Usage:     "print chain events as they happen",
				UsageText: "query watch -r endpoint [--stream name] [filters] [--count n]",
				Description: `Subscribes to the given event stream via websocket connection and
   prints events until interrupted or the count is reached. Filters only
   apply to their streams.`,
				Action: watch,
				Flags:  watchFlags,
			},
		},
	}}
}

func blockIndexFromArgs(ctx *cli.Context) (uint32, error) {
	if ctx.NArg() != 1 {
		return 0, cli.NewExitError("block index is missing", 1)
	}
	i, err := strconv.ParseUint(ctx.Args().First(), 10, 32)
	if err != nil {
		return 0, cli.NewExitError(fmt.Errorf("invalid block index: %w", err), 1)
	}
	return uint32(i), nil
}

func withClient(ctx *cli.Context, f func(*rpcclient.Client) error) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()
	if err := f(c); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func queryHeight(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError("unexpected arguments", 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		count, err := c.GetBlockCount()
		if err != nil {
			return err
		}
		h, err := c.GetBestBlockHash()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
		_, _ = fmt.Fprintf(tw, "Height:\t%d\n", count-1)
		_, _ = fmt.Fprintf(tw, "Hash:\t%s\n", h.String())
		return tw.Flush()
	})
}

func queryBlock(ctx *cli.Context) error {
	index, err := blockIndexFromArgs(ctx)
	if err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		b, err := c.GetBlock(index)
		if err != nil {
			return err
		}
		dumpBlock(ctx, b)
		return nil
	})
}

func dumpBlock(ctx *cli.Context, b *state.Block) {
	tw := tabwriter.NewWriter(ctx.App.Writer, 0, 4, 4, '\t', 0)
	_, _ = fmt.Fprintf(tw, "Index:\t%d\n", b.Index)
	_, _ = fmt.Fprintf(tw, "Hash:\t%s\n", b.Hash().String())
	_, _ = fmt.Fprintf(tw, "PrevHash:\t%s\n", b.PrevHash.String())
	_, _ = fmt.Fprintf(tw, "Timestamp:\t%d\n", b.Timestamp)
	_, _ = fmt.Fprintf(tw, "Calls:\t%d\n", b.CallCount)
	_ = tw.Flush()
}

func queryLog(ctx *cli.Context) error {
	index, err := blockIndexFromArgs(ctx)
	if err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		log, err := c.GetApplicationLog(index)
		if err != nil {
			return err
		}
		for i := range log {
			if i != 0 {
				_, _ = fmt.Fprintln(ctx.App.Writer)
			}
			kitty.DumpExecResult(ctx.App.Writer, &log[i])
		}
		return nil
	})
}

func watch(ctx *cli.Context) error {
	if ctx.NArg() != 0 {
		return cli.NewExitError("unexpected arguments", 1)
	}
	stream, err := kittyrpc.GetEventIDFromString(ctx.String("stream"))
	if err != nil || stream == kittyrpc.MissedEventID {
		return cli.NewExitError(fmt.Errorf("invalid stream %q", ctx.String("stream")), 1)
	}

	c, exitErr := options.GetWSClient(ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	var (
		blocks = make(chan *state.Block)
		execs  = make(chan *state.AppExecResult)
		ntfs   = make(chan *state.NotificationEvent)
	)
	switch stream {
	case kittyrpc.BlockEventID:
		var flt *kittyrpc.BlockFilter
		if ctx.IsSet("since") {
			since := uint32(ctx.Uint("since"))
			flt = &kittyrpc.BlockFilter{Since: &since}
		}
		_, err = c.ReceiveBlocks(flt, blocks)
	case kittyrpc.ExecutionEventID:
		var flt *kittyrpc.ExecutionFilter
		if m := ctx.String("method"); m != "" {
			flt = &kittyrpc.ExecutionFilter{Method: &m}
		}
		if sender, ok := flags.AddressFromContext(ctx, "sender"); ok {
			if flt == nil {
				flt = new(kittyrpc.ExecutionFilter)
			}
			flt.Sender = &sender
		}
		_, err = c.ReceiveExecutions(flt, execs)
	case kittyrpc.NotificationEventID:
		var flt *kittyrpc.NotificationFilter
		flt, err = notificationFilter(ctx)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		_, err = c.ReceiveKittyEvents(flt, ntfs)
	}
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to subscribe: %w", err), 1)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := ctx.App.Writer
	limit := ctx.Uint("count")
	for n := uint(0); limit == 0 || n < limit; n++ {
		var ok bool
		select {
		case <-sigCtx.Done():
			return nil
		case b, chOk := <-blocks:
			if ok = chOk; ok {
				_, _ = fmt.Fprintf(w, "block %d: %s, %d calls\n", b.Index, b.Hash().String(), b.CallCount)
			}
		case aer, chOk := <-execs:
			if ok = chOk; ok {
				_, _ = fmt.Fprintf(w, "call %d/%d: %s %s\n", aer.Block, aer.Index, aer.Method, aer.State)
			}
		case ne, chOk := <-ntfs:
			if ok = chOk; ok {
				_, _ = fmt.Fprintf(w, "event %d/%d: %s\n", ne.Block, ne.Index, kitty.FormatEvent(ne.Event))
			}
		}
		if !ok {
			if err := c.GetError(); err != nil {
				return cli.NewExitError(err, 1)
			}
			return nil
		}
	}
	return nil
}

func notificationFilter(ctx *cli.Context) (*kittyrpc.NotificationFilter, error) {
	var (
		flt   kittyrpc.NotificationFilter
		isSet bool
	)
	if name := ctx.String("name"); name != "" {
		if _, err := state.EventTypeFromString(name); err != nil {
			return nil, err
		}
		flt.Name = &name
		isSet = true
	}
	if s := ctx.String("kitty"); s != "" {
		dna, err := state.DNAFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid kitty DNA: %w", err)
		}
		flt.Kitty = &dna
		isSet = true
	}
	if acc, ok := flags.AddressFromContext(ctx, "account"); ok {
		flt.Account = &acc
		isSet = true
	}
	if !isSet {
		return nil, nil
	}
	return &flt, nil
}
