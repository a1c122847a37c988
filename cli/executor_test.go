package main

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/nspcc-dev/kittychain/cli/app"
	"github.com/nspcc-dev/kittychain/cli/input"
	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/services/rpcsrv"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
	"golang.org/x/term"
)

// executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// Chain is a blockchain instance (can be empty). It's not running, blocks
	// are sealed by tests explicitly.
	Chain *core.Blockchain
	// RPC is an RPC server to query (can be empty).
	RPC *rpcsrv.Server
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
	// In contains command input.
	In *bytes.Buffer
}

func newTestChain(t *testing.T, f func(*config.Config)) (*core.Blockchain, *rpcsrv.Server) {
	chain := testchain.NewChain(t, f)
	cfg := testchain.Config()
	if f != nil {
		f(&cfg)
	}
	rpcServer := rpcsrv.New(chain, cfg.ApplicationConfiguration.RPC, zaptest.NewLogger(t), make(chan error, 2))
	rpcServer.Start()
	return chain, rpcServer
}

func newExecutor(t *testing.T, needChain bool) *executor {
	return newExecutorWithConfig(t, needChain, nil)
}

func newExecutorWithConfig(t *testing.T, needChain bool, f func(*config.Config)) *executor {
	e := &executor{
		CLI: app.New(),
		Out: bytes.NewBuffer(nil),
		Err: bytes.NewBuffer(nil),
		In:  bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	if needChain {
		e.Chain, e.RPC = newTestChain(t, f)
	}
	t.Cleanup(func() {
		e.Close(t)
	})
	return e
}

func (e *executor) Close(t *testing.T) {
	input.Terminal = nil
	if e.RPC != nil {
		e.RPC.Shutdown()
		e.RPC = nil
	}
}

// Endpoint returns the RPC server address usable with --rpc-endpoint.
func (e *executor) Endpoint() string {
	return "http://" + e.RPC.Addresses()[0]
}

// Kitties returns DNAs of the kitties owned by test account #i.
func (e *executor) Kitties(t *testing.T, i int) state.OwnedKitties {
	owned, err := e.Chain.KittiesOf(testchain.Account(i))
	require.NoError(t, err)
	return owned
}

// Balance returns the balance of test account #i.
func (e *executor) Balance(t *testing.T, i int) uint64 {
	bal, err := e.Chain.BalanceOf(testchain.Account(i))
	require.NoError(t, err)
	return bal.Uint64()
}

func (e *executor) getNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

func (e *executor) checkNextLine(t *testing.T, expected string) {
	line := e.getNextLine(t)
	e.checkLine(t, line, expected)
}

func (e *executor) checkLine(t *testing.T, line, expected string) {
	require.Regexp(t, expected, line)
}

func (e *executor) checkEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

// skipUntil drops output lines up to and including the first one matching
// the expression.
func (e *executor) skipUntil(t *testing.T, expected string) {
	for {
		line := e.getNextLine(t)
		if regexp.MustCompile(expected).MatchString(line) {
			return
		}
	}
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// RunWithUsageError runs command and checks that it fails on arguments
// parsing, such errors don't call the exit function.
func (e *executor) RunWithUsageError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 0)
}

// Run runs command and checks that there were no errors.
func (e *executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

func (e *executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	input.Terminal = term.NewTerminal(input.ReadWriter{
		Reader: e.In,
		Writer: io.Discard,
	}, "")
	err := e.CLI.Run(args)
	input.Terminal = nil
	e.In.Reset()
	return err
}
