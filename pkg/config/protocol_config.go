package config

import (
	"fmt"
	"time"

	"github.com/nspcc-dev/kittychain/pkg/config/netmode"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
)

// DNA combination policies used by breeding.
const (
	// DNAPolicySelect takes every child byte from one of the parents
	// depending on the parity of the selector byte.
	DNAPolicySelect = "select"
	// DNAPolicyMask mixes parent bytes bitwise using the selector byte as a
	// mask.
	DNAPolicyMask = "mask"
)

type (
	// ProtocolConfiguration represents the protocol config. Every node of
	// the network must use the same values.
	ProtocolConfiguration struct {
		Magic netmode.Magic `yaml:"Magic"`
		// MaxKittiesOwned is the maximum number of kitties a single
		// account can own.
		MaxKittiesOwned uint32 `yaml:"MaxKittiesOwned"`
		// ExistentialDeposit is the minimum balance an account must keep,
		// accounts falling below it are removed.
		ExistentialDeposit uint64 `yaml:"ExistentialDeposit"`
		// DNAPolicy is either DNAPolicySelect or DNAPolicyMask.
		DNAPolicy    string        `yaml:"DNAPolicy"`
		TimePerBlock time.Duration `yaml:"TimePerBlock"`
		Genesis      Genesis       `yaml:"Genesis"`
	}

	// Genesis is the initial ledger state put into block zero.
	Genesis struct {
		Kitties  []GenesisKitty   `yaml:"Kitties"`
		Balances []GenesisBalance `yaml:"Balances"`
	}

	// GenesisKitty is a kitty minted by genesis.
	GenesisKitty struct {
		// Owner is an address.
		Owner string `yaml:"Owner"`
		// DNA is hex-encoded.
		DNA    string       `yaml:"DNA"`
		Gender state.Gender `yaml:"Gender"`
	}

	// GenesisBalance is an initial account balance.
	GenesisBalance struct {
		// Account is an address.
		Account string `yaml:"Account"`
		Amount  uint64 `yaml:"Amount"`
	}
)

// Validate checks ProtocolConfiguration for internal consistency and returns
// an error if anything inappropriate found. Other methods can rely on protocol
// validity after this.
func (p *ProtocolConfiguration) Validate() error {
	if p.MaxKittiesOwned == 0 {
		return fmt.Errorf("%w: MaxKittiesOwned must be positive", ErrInvalidConfig)
	}
	switch p.DNAPolicy {
	case DNAPolicySelect, DNAPolicyMask:
	default:
		return fmt.Errorf("%w: unknown DNAPolicy %q", ErrInvalidConfig, p.DNAPolicy)
	}
	if p.TimePerBlock < 0 {
		return fmt.Errorf("%w: negative TimePerBlock", ErrInvalidConfig)
	}
	for i, k := range p.Genesis.Kitties {
		if _, err := address.StringToUint160(k.Owner); err != nil {
			return fmt.Errorf("%w: genesis kitty #%d: bad owner: %v", ErrInvalidConfig, i, err)
		}
		if _, err := state.DNAFromString(k.DNA); err != nil {
			return fmt.Errorf("%w: genesis kitty #%d: bad DNA: %v", ErrInvalidConfig, i, err)
		}
		if k.Gender != state.Male && k.Gender != state.Female {
			return fmt.Errorf("%w: genesis kitty #%d: unknown gender %s", ErrInvalidConfig, i, k.Gender)
		}
	}
	for i, b := range p.Genesis.Balances {
		if _, err := address.StringToUint160(b.Account); err != nil {
			return fmt.Errorf("%w: genesis balance #%d: bad account: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}
