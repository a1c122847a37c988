package testchain

import (
	"bytes"

	"github.com/nspcc-dev/kittychain/pkg/encoding/address"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// AccountsCount is the number of accounts endowed in the test genesis.
const AccountsCount = 3

// Account returns account #i, accounts 0 to AccountsCount-1 have genesis
// balances, others are empty.
func Account(i int) util.Uint160 {
	u, err := util.Uint160DecodeBytesBE(bytes.Repeat([]byte{byte(i + 1)}, util.Uint160Size))
	if err != nil {
		panic(err)
	}
	return u
}

// Address returns the address of account #i.
func Address(i int) string {
	return address.Uint160ToString(Account(i))
}
