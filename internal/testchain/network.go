package testchain

import (
	"time"

	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/config/netmode"
	"github.com/nspcc-dev/kittychain/pkg/core/storage/dbconfig"
)

// Network returns the test network magic.
func Network() netmode.Magic {
	return netmode.UnitTestNet
}

// GenesisBalance is the initial balance of every genesis account.
const GenesisBalance = 10

// Config returns unit test network configuration: at most two kitties per
// account, existential deposit of 1 and AccountsCount accounts with
// GenesisBalance each.
func Config() config.Config {
	balances := make([]config.GenesisBalance, AccountsCount)
	for i := range balances {
		balances[i] = config.GenesisBalance{Account: Address(i), Amount: GenesisBalance}
	}
	return config.Config{
		ProtocolConfiguration: config.ProtocolConfiguration{
			Magic:              Network(),
			MaxKittiesOwned:    2,
			ExistentialDeposit: 1,
			DNAPolicy:          config.DNAPolicySelect,
			TimePerBlock:       100 * time.Millisecond,
			Genesis:            config.Genesis{Balances: balances},
		},
		ApplicationConfiguration: config.ApplicationConfiguration{
			DBConfiguration:  dbconfig.DBConfiguration{Type: dbconfig.InMemoryDB},
			ExecLogCacheSize: 16,
			RPC: config.RPC{
				BasicService: config.BasicService{
					Enabled:   true,
					Addresses: []string{"localhost:0"},
				},
				MaxKittiesPageSize: 10,
			},
		},
	}
}
