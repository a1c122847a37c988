package main

import (
	"testing"

	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/stretchr/testify/require"
)

func TestBalance(t *testing.T) {
	e := newExecutor(t, true)
	alice, bob := testchain.Address(0), testchain.Address(1)

	e.Run(t, "kittychain", "balance", "show", "-r", e.Endpoint(), alice, "0x"+testchain.Account(1).String())
	e.checkNextLine(t, `^`+alice+`\s+10$`)
	e.checkNextLine(t, `^`+bob+`\s+10$`)
	e.checkEOF(t)

	t.Run("no accounts", func(t *testing.T) {
		e.RunWithError(t, "kittychain", "balance", "show", "-r", e.Endpoint())
	})
	t.Run("bad account", func(t *testing.T) {
		e.RunWithError(t, "kittychain", "balance", "show", "-r", e.Endpoint(), "kitty")
	})

	e.Run(t, "kittychain", "balance", "issuance", "-r", e.Endpoint())
	e.checkNextLine(t, `^30$`)
	e.checkEOF(t)
}

func TestBalanceTransfer(t *testing.T) {
	e := newExecutor(t, true)
	alice, bob := testchain.Address(0), testchain.Address(1)
	args := []string{"kittychain", "balance", "transfer", "-r", e.Endpoint(),
		"--sender", alice, "--to", bob}

	t.Run("missing amount", func(t *testing.T) {
		e.RunWithError(t, args...)
	})
	t.Run("no confirmation", func(t *testing.T) {
		e.RunWithError(t, append(args, "--amount", "3")...)
	})
	t.Run("declined", func(t *testing.T) {
		e.In.WriteString("n\r")
		e.RunWithError(t, append(args, "--amount", "3")...)
		require.Equal(t, uint64(10), e.Balance(t, 0))
	})
	t.Run("insufficient funds", func(t *testing.T) {
		e.RunWithError(t, append(args, "--amount", "11", "--force")...)
		e.skipUntil(t, `^State:\s+FAULT$`)
		e.checkNextLine(t, `^Exception:\s+.*insufficient funds`)
	})

	e.In.WriteString("y\r")
	e.Run(t, append(args, "--amount", "3")...)
	e.checkNextLine(t, `^Call:\s+transferfunds$`)
	e.skipUntil(t, `^State:\s+HALT$`)
	e.checkNextLine(t, `^Event:\s+FundsTransferred 3 from `+alice+` to `+bob+`$`)
	e.checkEOF(t)
	require.Equal(t, uint64(7), e.Balance(t, 0))
	require.Equal(t, uint64(13), e.Balance(t, 1))

	// Sender goes below the existential deposit and is removed.
	e.Run(t, append(args, "--amount", "7", "--force")...)
	e.skipUntil(t, `^State:\s+HALT$`)
	e.checkNextLine(t, `^Event:\s+FundsTransferred 7 from `+alice+` to `+bob+`$`)
	e.checkEOF(t)
	require.Equal(t, uint64(0), e.Balance(t, 0))

	e.Run(t, "kittychain", "balance", "issuance", "-r", e.Endpoint())
	e.checkNextLine(t, `^30$`)
}
