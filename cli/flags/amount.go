package flags

import (
	"flag"
	"strings"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/urfave/cli"
)

// Amount is a wrapper for a balance amount with flag.Value methods. Value is
// nil until the flag is set.
type Amount struct {
	Value *uint256.Int
}

// AmountFlag is a flag accepting a non-negative decimal amount.
type AmountFlag struct {
	Name  string
	Usage string
	Value Amount
}

var (
	_ flag.Value = (*Amount)(nil)
	_ cli.Flag   = AmountFlag{}
)

// String implements the fmt.Stringer interface.
func (a Amount) String() string {
	if a.Value == nil {
		return ""
	}
	return a.Value.ToBig().String()
}

// Set implements the flag.Value interface.
func (a *Amount) Set(s string) error {
	v, err := state.ParseAmount(s)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	a.Value = v
	return nil
}

// String returns a readable representation of this value
// (for usage defaults).
func (f AmountFlag) String() string {
	var names []string
	eachName(f.Name, func(name string) {
		names = append(names, getNameHelp(name))
	})

	return strings.Join(names, ", ") + "\t" + f.Usage
}

// GetName returns the name of the flag.
func (f AmountFlag) GetName() string {
	return f.Name
}

// Apply populates the flag given the flag set and environment.
// Ignores errors.
func (f AmountFlag) Apply(set *flag.FlagSet) {
	eachName(f.Name, func(name string) {
		set.Var(&f.Value, name, f.Usage)
	})
}

// AmountFromContext returns a parsed amount provided flag name, it's nil if
// the flag wasn't set.
func AmountFromContext(ctx *cli.Context, name string) *uint256.Int {
	a, ok := ctx.Generic(name).(*Amount)
	if !ok {
		return nil
	}
	return a.Value
}
