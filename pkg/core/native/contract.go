package native

import (
	"github.com/nspcc-dev/kittychain/pkg/config"
)

// Contracts is a set of native contracts.
type Contracts struct {
	Kitties  *Kitties
	Balances *Balances
}

// NewContracts returns new set of native contracts configured according to
// the protocol configuration.
func NewContracts(cfg config.ProtocolConfiguration) (*Contracts, error) {
	policy, err := PolicyByName(cfg.DNAPolicy)
	if err != nil {
		return nil, err
	}
	balances := newBalances(cfg.ExistentialDeposit)
	kitties := &Kitties{
		MaxOwned: int(cfg.MaxKittiesOwned),
		Policy:   policy,
		Balances: balances,
	}
	return &Contracts{
		Kitties:  kitties,
		Balances: balances,
	}, nil
}
