/*
Package shell provides an interactive prompt running kitty and query commands
against a single node.
*/
package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/nspcc-dev/kittychain/cli/kitty"
	"github.com/nspcc-dev/kittychain/cli/options"
	"github.com/nspcc-dev/kittychain/cli/query"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/urfave/cli"
	"golang.org/x/term"
)

const prompt = "kitty> "

// errExit is returned by the 'exit' command to stop the loop.
var errExit = errors.New("exit")

// NewCommands returns 'shell' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:      "shell",
		Usage:     "start an interactive prompt connected to the node",
		UsageText: "shell -r endpoint",
		Description: `Runs kitty, balance and query commands read from the standard input
   line by line, the RPC endpoint and timeout are taken from the shell
   unless specified for the command.`,
		Action: startShell,
		Flags:  options.RPC,
	}}
}

func startShell(ctx *cli.Context) error {
	endpoint := ctx.String(options.RPCEndpointFlag)
	if endpoint == "" {
		return cli.NewExitError("no RPC endpoint specified, use option '--"+options.RPCEndpointFlag+"' or '-r'", 1)
	}
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	cfg := &readline.Config{Prompt: prompt}
	if !interactive {
		cfg.Prompt = ""
	}
	s, err := New(endpoint, ctx.Duration("timeout"), cfg)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if interactive {
		fmt.Fprintf(s.app.Writer, "Connected to %s, type 'help' for the list of commands.\n", endpoint)
	}
	if err := s.Run(); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// Shell reads commands and executes them one by one.
type Shell struct {
	app *cli.App
	rl  *readline.Instance
}

// New creates a shell using the given readline config. Every command run in
// the shell gets the endpoint and the timeout unless overridden.
func New(endpoint string, timeout time.Duration, c *readline.Config) (*Shell, error) {
	commands := append(kitty.NewCommands(), query.NewCommands()...)
	for i := range commands {
		withDefaults(&commands[i], map[string]string{
			options.RPCEndpointFlag: endpoint,
			"timeout":               timeout.String(),
		})
	}
	commands = append(commands, cli.Command{
		Name:   "exit",
		Usage:  "leave the shell",
		Action: func(*cli.Context) error { return errExit },
	})

	if c.AutoComplete == nil {
		c.AutoComplete = newCompleter(commands)
	}
	l, err := readline.NewEx(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}

	ctl := cli.NewApp()
	ctl.Name = "shell"
	ctl.HelpName = ""
	ctl.UsageText = ""
	ctl.Usage = "KittyChain shell"
	ctl.Version = config.Version
	ctl.Writer = l.Stdout()
	ctl.ErrWriter = l.Stderr()
	// Don't exit on command errors.
	ctl.ExitErrHandler = func(*cli.Context, error) {}
	ctl.Commands = commands
	return &Shell{app: ctl, rl: l}, nil
}

// withDefaults wraps leaf command actions setting the given flag values when
// the user hasn't.
func withDefaults(c *cli.Command, defaults map[string]string) {
	for i := range c.Subcommands {
		withDefaults(&c.Subcommands[i], defaults)
	}
	action, ok := c.Action.(func(*cli.Context) error)
	if !ok {
		return
	}
	c.Action = func(ctx *cli.Context) error {
		for name, v := range defaults {
			if !ctx.IsSet(name) {
				_ = ctx.Set(name, v)
			}
		}
		return action(ctx)
	}
}

func newCompleter(commands []cli.Command) *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(completerItems(commands)...)
}

func completerItems(commands []cli.Command) []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, c := range commands {
		if c.Hidden {
			continue
		}
		children := completerItems(c.Subcommands)
		for _, f := range c.Flags {
			names := strings.SplitN(f.GetName(), ", ", 2) // Long name only.
			children = append(children, readline.PcItem("--"+names[0]))
		}
		items = append(items, readline.PcItem(c.Name, children...))
	}
	return items
}

// Run executes commands until EOF, interrupt or 'exit'.
func (s *Shell) Run() error {
	defer s.rl.Close()
	for {
		line, err := s.rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		args, err := shellquote.Split(line)
		if err != nil {
			writeErr(s.app.ErrWriter, fmt.Errorf("failed to parse arguments: %w", err))
			continue
		}
		err = s.app.Run(append([]string{"shell"}, args...))
		if errors.Is(err, errExit) {
			return nil
		}
		if err != nil {
			writeErr(s.app.ErrWriter, err)
		}
	}
}

func writeErr(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %s\n", err)
}
