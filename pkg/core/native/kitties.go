package native

import (
	"errors"
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"go.uber.org/zap"
)

// Kitties is the kitty ownership ledger together with the marketplace.
type Kitties struct {
	// MaxOwned is the maximum number of kitties per account.
	MaxOwned int
	Policy   DNAPolicy
	Balances *Balances
}

// GetKitty returns the kitty with the given DNA.
func (k *Kitties) GetKitty(d *dao.Simple, id state.DNA) (*state.Kitty, error) {
	kitty, err := d.GetKitty(id)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoKitty, id)
		}
		return nil, err
	}
	return kitty, nil
}

// KittiesOf returns the list of kitties owned by acc.
func (k *Kitties) KittiesOf(d *dao.Simple, acc util.Uint160) (state.OwnedKitties, error) {
	return d.GetOwnedKitties(acc)
}

// Count returns the number of kitties ever minted.
func (k *Kitties) Count(d *dao.Simple) (uint64, error) {
	return d.GetKittyCount()
}

// Create mints a kitty with generated DNA to the caller.
func (k *Kitties) Create(ic *interop.Context) (state.DNA, error) {
	dna, gender := GenDNA(ic)
	return dna, k.Mint(ic, ic.Sender, dna, gender)
}

// Breed mints a child of two kitties owned by the caller to the caller.
func (k *Kitties) Breed(ic *interop.Context, p1, p2 state.DNA) (state.DNA, error) {
	parent1, err := k.GetKitty(ic.DAO, p1)
	if err != nil {
		return state.DNA{}, err
	}
	parent2, err := k.GetKitty(ic.DAO, p2)
	if err != nil {
		return state.DNA{}, err
	}
	if !parent1.Owner.Equals(ic.Sender) || !parent2.Owner.Equals(ic.Sender) {
		return state.DNA{}, ErrNotOwner
	}
	if parent1.Gender == parent2.Gender {
		return state.DNA{}, ErrCantBreed
	}
	dna, gender := BreedDNA(ic, k.Policy, p1, p2)
	return dna, k.Mint(ic, ic.Sender, dna, gender)
}

// Mint creates a new kitty owned by owner. Nothing is written unless all
// checks pass.
func (k *Kitties) Mint(ic *interop.Context, owner util.Uint160, dna state.DNA, gender state.Gender) error {
	_, err := ic.DAO.GetKitty(dna)
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDuplicateKitty, dna)
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return err
	}
	count, err := ic.DAO.GetKittyCount()
	if err != nil {
		return err
	}
	if count == math.MaxUint64 {
		return fmt.Errorf("%w: kitty count", ErrOverflow)
	}
	owned, err := ic.DAO.GetOwnedKitties(owner)
	if err != nil {
		return err
	}
	if !owned.TryPush(dna, k.MaxOwned) {
		return ErrTooManyOwned
	}

	kitty := &state.Kitty{DNA: dna, Gender: gender, Owner: owner}
	if err := ic.DAO.PutKitty(kitty); err != nil {
		return err
	}
	if err := ic.DAO.PutOwnedKitties(owner, owned); err != nil {
		return err
	}
	ic.DAO.PutKittyCount(count + 1)

	ic.Log.Debug("kitty created", zap.Stringer("dna", dna), zap.Stringer("owner", owner))
	ic.AddNotification(&state.KittyCreated{Kitty: dna, Owner: owner})
	return nil
}

// Transfer gives the caller's kitty to another account for free.
func (k *Kitties) Transfer(ic *interop.Context, to util.Uint160, id state.DNA) error {
	kitty, err := k.GetKitty(ic.DAO, id)
	if err != nil {
		return err
	}
	if !kitty.Owner.Equals(ic.Sender) {
		return ErrNotOwner
	}
	return k.relocate(ic, id, to, nil)
}

// SetPrice puts the caller's kitty on sale for the given price or removes it
// from sale if price is nil.
func (k *Kitties) SetPrice(ic *interop.Context, id state.DNA, price *uint256.Int) error {
	kitty, err := k.GetKitty(ic.DAO, id)
	if err != nil {
		return err
	}
	if !kitty.Owner.Equals(ic.Sender) {
		return ErrNotOwner
	}
	if price != nil {
		price = price.Clone()
	}
	kitty.Price = price
	if err := ic.DAO.PutKitty(kitty); err != nil {
		return err
	}
	ev := &state.PriceSet{Kitty: id}
	if price != nil {
		ev.Price = price.Clone()
	}
	ic.AddNotification(ev)
	return nil
}
