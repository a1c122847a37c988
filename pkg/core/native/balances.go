package native

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"go.uber.org/zap"
)

// ExistenceRequirement tells whether the payer account may be reaped by a
// transfer.
type ExistenceRequirement byte

const (
	// KeepAlive requires the payer to keep at least the existential
	// deposit.
	KeepAlive ExistenceRequirement = iota
	// AllowDeath allows the payer balance to drop below the existential
	// deposit, the remainder is burned then.
	AllowDeath
)

// Balances is the fungible currency used to pay for kitties.
type Balances struct {
	// ExistentialDeposit is the minimum balance of an existing account.
	ExistentialDeposit *uint256.Int
}

func newBalances(ed uint64) *Balances {
	return &Balances{ExistentialDeposit: uint256.NewInt(ed)}
}

// BalanceOf returns the balance of acc.
func (b *Balances) BalanceOf(d *dao.Simple, acc util.Uint160) (*uint256.Int, error) {
	return d.GetBalance(acc)
}

// TotalIssuance returns the total amount of funds in existence.
func (b *Balances) TotalIssuance(d *dao.Simple) (*uint256.Int, error) {
	return d.GetTotalIssuance()
}

// Transfer moves amount from one account to another. Zero amount and
// transfers to self are successful no-ops.
func (b *Balances) Transfer(ic *interop.Context, from, to util.Uint160, amount *uint256.Int, req ExistenceRequirement) error {
	if amount.IsZero() || from.Equals(to) {
		return nil
	}
	fromBalance, err := ic.DAO.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: balance %s, need %s", ErrInsufficientFunds, fromBalance.ToBig(), amount.ToBig())
	}
	remainder := new(uint256.Int).Sub(fromBalance, amount)
	reaped := remainder.Lt(b.ExistentialDeposit)
	if reaped && req == KeepAlive {
		return ErrKeepAlive
	}

	toBalance, err := ic.DAO.GetBalance(to)
	if err != nil {
		return err
	}
	newTo, overflow := addChecked(toBalance, amount)
	if overflow {
		return fmt.Errorf("%w: recipient balance", ErrOverflow)
	}
	if newTo.Lt(b.ExistentialDeposit) {
		return fmt.Errorf("%w: recipient balance %s", ErrExistentialDeposit, newTo.ToBig())
	}

	var dust *uint256.Int
	if reaped && !remainder.IsZero() {
		issuance, err := ic.DAO.GetTotalIssuance()
		if err != nil {
			return err
		}
		dust = remainder
		remainder = new(uint256.Int)
		ic.DAO.PutTotalIssuance(new(uint256.Int).Sub(issuance, dust))
	}
	ic.DAO.PutBalance(from, remainder)
	ic.DAO.PutBalance(to, newTo)

	ic.AddNotification(&state.FundsTransferred{From: from, To: to, Amount: amount.Clone()})
	if dust != nil {
		ic.Log.Debug("account reaped", zap.Stringer("account", from), zap.Stringer("dust", dust.ToBig()))
		ic.AddNotification(&state.DustLost{Account: from, Amount: dust})
	}
	return nil
}

// Endow credits acc with new funds, it's only used by genesis.
func (b *Balances) Endow(ic *interop.Context, acc util.Uint160, amount *uint256.Int) error {
	balance, err := ic.DAO.GetBalance(acc)
	if err != nil {
		return err
	}
	newBalance, overflow := addChecked(balance, amount)
	if overflow {
		return fmt.Errorf("%w: balance", ErrOverflow)
	}
	if newBalance.Lt(b.ExistentialDeposit) {
		return fmt.Errorf("%w: balance %s", ErrExistentialDeposit, newBalance.ToBig())
	}
	issuance, err := ic.DAO.GetTotalIssuance()
	if err != nil {
		return err
	}
	newIssuance, overflow := addChecked(issuance, amount)
	if overflow {
		return fmt.Errorf("%w: total issuance", ErrOverflow)
	}
	ic.DAO.PutBalance(acc, newBalance)
	ic.DAO.PutTotalIssuance(newIssuance)
	ic.AddNotification(&state.Endowed{Account: acc, Amount: amount.Clone()})
	return nil
}

// addChecked returns x+y and whether it overflowed.
func addChecked(x, y *uint256.Int) (*uint256.Int, bool) {
	z := new(uint256.Int).Add(x, y)
	return z, z.Lt(x)
}
