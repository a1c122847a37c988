package core

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"go.uber.org/zap"
)

// createGenesis fills block zero with configured kitties and balances. Any
// failure here is fatal for the node, genesis state must match between
// nodes.
func (bc *Blockchain) createGenesis() error {
	g := bc.config.Genesis
	for i, k := range g.Kitties {
		owner, err := address.StringToUint160(k.Owner)
		if err != nil {
			return fmt.Errorf("genesis kitty #%d: %w", i, err)
		}
		dna, err := state.DNAFromString(k.DNA)
		if err != nil {
			return fmt.Errorf("genesis kitty #%d: %w", i, err)
		}
		_, err = bc.apply(MethodGenesisMint, owner, func(ic *interop.Context) error {
			return bc.contracts.Kitties.Mint(ic, owner, dna, k.Gender)
		})
		if err != nil {
			return fmt.Errorf("genesis kitty %s: %w", dna, err)
		}
	}
	for i, b := range g.Balances {
		acc, err := address.StringToUint160(b.Account)
		if err != nil {
			return fmt.Errorf("genesis balance #%d: %w", i, err)
		}
		amount := uint256.NewInt(b.Amount)
		_, err = bc.apply(MethodGenesisEndow, acc, func(ic *interop.Context) error {
			return bc.contracts.Balances.Endow(ic, acc, amount)
		})
		if err != nil {
			return fmt.Errorf("genesis balance of %s: %w", b.Account, err)
		}
	}
	b, err := bc.sealBlock(0)
	if err != nil {
		return fmt.Errorf("can't store genesis block: %w", err)
	}
	bc.log.Info("genesis block created",
		zap.Stringer("hash", b.Hash()),
		zap.Int("kitties", len(g.Kitties)),
		zap.Int("accounts", len(g.Balances)))
	return nil
}
