package result

import (
	"github.com/nspcc-dev/kittychain/pkg/core/state"
)

type (
	// KittiesPage is a part of the kitty list ordered by DNA. Next is the
	// DNA to start the next page from, it's nil for the last page.
	KittiesPage struct {
		Kitties []*state.Kitty `json:"kitties"`
		Next    *state.DNA     `json:"next,omitempty"`
	}

	// KittiesOf is the list of kitties owned by an account.
	KittiesOf struct {
		Address string      `json:"address"`
		Kitties []state.DNA `json:"kitties"`
	}

	// Balance is the balance of an account, the amount is a decimal string.
	Balance struct {
		Address string `json:"address"`
		Amount  string `json:"amount"`
	}
)
