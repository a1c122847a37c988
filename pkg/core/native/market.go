package native

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// Buy purchases the kitty for its price if it doesn't exceed limit. The
// price is paid to the seller keeping the buyer account alive. Nil limit is
// the same as zero.
func (k *Kitties) Buy(ic *interop.Context, id state.DNA, limit *uint256.Int) error {
	if limit == nil {
		limit = new(uint256.Int)
	}
	return k.relocate(ic, id, ic.Sender, limit)
}

// relocate moves the kitty to a new owner. If limit is not nil it's a sale
// and the price is paid by the recipient. All checks are done before any
// kitty state is written, balance changes happen before the ownership
// change, so a failed payment leaves everything untouched.
func (k *Kitties) relocate(ic *interop.Context, id state.DNA, to util.Uint160, limit *uint256.Int) error {
	kitty, err := k.GetKitty(ic.DAO, id)
	if err != nil {
		return err
	}
	from := kitty.Owner
	if from.Equals(to) {
		return ErrTransferToSelf
	}

	fromOwned, err := ic.DAO.GetOwnedKitties(from)
	if err != nil {
		return err
	}
	if !fromOwned.SwapRemove(id) {
		return fmt.Errorf("%w: %s is missing from owner index", ErrNoKitty, id)
	}
	toOwned, err := ic.DAO.GetOwnedKitties(to)
	if err != nil {
		return err
	}
	if !toOwned.TryPush(id, k.MaxOwned) {
		return ErrTooManyOwned
	}

	if limit != nil {
		if kitty.Price == nil {
			return ErrNotForSale
		}
		if limit.Lt(kitty.Price) {
			return fmt.Errorf("%w: price %s, limit %s", ErrBidPriceTooLow, kitty.Price.ToBig(), limit.ToBig())
		}
		if err := k.Balances.Transfer(ic, to, from, kitty.Price, KeepAlive); err != nil {
			return err
		}
		ic.AddNotification(&state.KittySold{Seller: from, Buyer: to, Kitty: id, Price: kitty.Price.Clone()})
	}

	kitty.Owner = to
	kitty.Price = nil
	if err := ic.DAO.PutKitty(kitty); err != nil {
		return err
	}
	if err := ic.DAO.PutOwnedKitties(from, fromOwned); err != nil {
		return err
	}
	if err := ic.DAO.PutOwnedKitties(to, toOwned); err != nil {
		return err
	}
	ic.AddNotification(&state.KittyTransferred{From: from, To: to, Kitty: id})
	return nil
}
