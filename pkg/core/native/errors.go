package native

import (
	"errors"
	"fmt"
)

// Ledger errors. Every failed call returns one of them (possibly wrapped)
// unless it's a storage failure.
var (
	// ErrNoKitty is returned when the kitty doesn't exist.
	ErrNoKitty = errors.New("kitty not found")
	// ErrNotOwner is returned when the caller doesn't own the kitty.
	ErrNotOwner = errors.New("not owner")
	// ErrTooManyOwned is returned when the recipient already owns the
	// maximum allowed number of kitties.
	ErrTooManyOwned = errors.New("too many kitties owned")
	// ErrTransferToSelf is returned when the kitty is moved to its owner.
	ErrTransferToSelf = errors.New("transfer to self")
	// ErrDuplicateKitty is returned when the DNA is already taken.
	ErrDuplicateKitty = errors.New("duplicate kitty")
	// ErrNotForSale is returned when buying a kitty without a price.
	ErrNotForSale = errors.New("kitty not for sale")
	// ErrBidPriceTooLow is returned when the bid limit is below the price.
	ErrBidPriceTooLow = errors.New("bid price too low")
	// ErrCantBreed is returned when parents are of the same gender.
	ErrCantBreed = errors.New("can't breed kitties of the same gender")
	// ErrOverflow is returned when a counter or a balance overflows.
	ErrOverflow = errors.New("arithmetic overflow")
	// ErrInsufficientFunds is returned when the payer can't afford the
	// transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrKeepAlive is returned when the transfer would take the payer below
	// the existential deposit while it's required to stay alive.
	ErrKeepAlive = fmt.Errorf("%w: payer would be reaped", ErrInsufficientFunds)
	// ErrExistentialDeposit is returned when the recipient balance would be
	// below the existential deposit.
	ErrExistentialDeposit = errors.New("existential deposit not reached")
)

// ErrorKind is a coarse classification of ledger errors.
type ErrorKind byte

// Error kinds.
const (
	// Internal is a storage or consistency failure.
	Internal ErrorKind = iota
	NotFound
	Authorization
	Capacity
	Policy
	Duplicate
	// External is a failure of the balance collaborator.
	External
)

var kindErrors = []struct {
	err  error
	kind ErrorKind
}{
	{ErrNoKitty, NotFound},
	{ErrNotOwner, Authorization},
	{ErrTooManyOwned, Capacity},
	{ErrOverflow, Capacity},
	{ErrTransferToSelf, Policy},
	{ErrNotForSale, Policy},
	{ErrBidPriceTooLow, Policy},
	{ErrCantBreed, Policy},
	{ErrDuplicateKitty, Duplicate},
	{ErrInsufficientFunds, External},
	{ErrExistentialDeposit, External},
}

// Kind returns the kind of err, Internal for unknown errors.
func Kind(err error) ErrorKind {
	for _, ke := range kindErrors {
		if errors.Is(err, ke.err) {
			return ke.kind
		}
	}
	return Internal
}

// String implements the fmt.Stringer interface.
func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case Authorization:
		return "Authorization"
	case Capacity:
		return "Capacity"
	case Policy:
		return "Policy"
	case Duplicate:
		return "Duplicate"
	case External:
		return "External"
	default:
		return "Internal"
	}
}
