package state

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/io"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// EventType is a binary tag of Event.
type EventType byte

// Event types, values are stored in the DB and must never change.
const (
	KittyCreatedT EventType = iota + 1
	PriceSetT
	KittyTransferredT
	KittySoldT
	FundsTransferredT
	DustLostT
	EndowedT
)

// Event is something that happened to the ledger as a result of a call. The
// set of implementations is closed, it's the list of types below.
type Event interface {
	io.Serializable
	// Type returns the event tag.
	Type() EventType
}

type (
	// KittyCreated is emitted when a kitty is minted.
	KittyCreated struct {
		Kitty DNA          `json:"kitty"`
		Owner util.Uint160 `json:"owner"`
	}
	// PriceSet is emitted when the owner sets or clears the price. Nil
	// Price means the kitty is no longer for sale.
	PriceSet struct {
		Kitty DNA
		Price *uint256.Int
	}
	// KittyTransferred is emitted on every ownership change.
	KittyTransferred struct {
		From  util.Uint160 `json:"from"`
		To    util.Uint160 `json:"to"`
		Kitty DNA          `json:"kitty"`
	}
	// KittySold is emitted on a successful purchase, it's always followed
	// by KittyTransferred.
	KittySold struct {
		Seller util.Uint160
		Buyer  util.Uint160
		Kitty  DNA
		Price  *uint256.Int
	}
	// FundsTransferred is emitted on balance transfers.
	FundsTransferred struct {
		From   util.Uint160
		To     util.Uint160
		Amount *uint256.Int
	}
	// DustLost is emitted when an account is reaped and the remainder
	// below the existential deposit is burned.
	DustLost struct {
		Account util.Uint160
		Amount  *uint256.Int
	}
	// Endowed is emitted when an account is credited by genesis.
	Endowed struct {
		Account util.Uint160
		Amount  *uint256.Int
	}
)

var eventNames = map[EventType]string{
	KittyCreatedT:     "KittyCreated",
	PriceSetT:         "PriceSet",
	KittyTransferredT: "KittyTransferred",
	KittySoldT:        "KittySold",
	FundsTransferredT: "FundsTransferred",
	DustLostT:         "DustLost",
	EndowedT:          "Endowed",
}

// String implements the fmt.Stringer interface.
func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(%d)", byte(t))
}

// EventTypeFromString converts event name into its type.
func EventTypeFromString(s string) (EventType, error) {
	for t, name := range eventNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", s)
}

// NewEvent returns an empty event of the given type.
func NewEvent(t EventType) (Event, error) {
	switch t {
	case KittyCreatedT:
		return new(KittyCreated), nil
	case PriceSetT:
		return new(PriceSet), nil
	case KittyTransferredT:
		return new(KittyTransferred), nil
	case KittySoldT:
		return new(KittySold), nil
	case FundsTransferredT:
		return new(FundsTransferred), nil
	case DustLostT:
		return new(DustLost), nil
	case EndowedT:
		return new(Endowed), nil
	default:
		return nil, fmt.Errorf("unknown event type %d", byte(t))
	}
}

// Type implements Event.
func (e *KittyCreated) Type() EventType { return KittyCreatedT }

// Type implements Event.
func (e *PriceSet) Type() EventType { return PriceSetT }

// Type implements Event.
func (e *KittyTransferred) Type() EventType { return KittyTransferredT }

// Type implements Event.
func (e *KittySold) Type() EventType { return KittySoldT }

// Type implements Event.
func (e *FundsTransferred) Type() EventType { return FundsTransferredT }

// Type implements Event.
func (e *DustLost) Type() EventType { return DustLostT }

// Type implements Event.
func (e *Endowed) Type() EventType { return EndowedT }

// EncodeBinary implements the io.Serializable interface.
func (e *KittyCreated) EncodeBinary(w *io.BinWriter) {
	e.Kitty.EncodeBinary(w)
	e.Owner.EncodeBinary(w)
}

// DecodeBinary implements the io.Serializable interface.
func (e *KittyCreated) DecodeBinary(r *io.BinReader) {
	e.Kitty.DecodeBinary(r)
	e.Owner.DecodeBinary(r)
}

// EncodeBinary implements the io.Serializable interface.
func (e *PriceSet) EncodeBinary(w *io.BinWriter) {
	e.Kitty.EncodeBinary(w)
	w.WriteBool(e.Price != nil)
	if e.Price != nil {
		EncodeAmount(w, e.Price)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (e *PriceSet) DecodeBinary(r *io.BinReader) {
	e.Kitty.DecodeBinary(r)
	e.Price = nil
	if r.ReadBool() {
		e.Price = DecodeAmount(r)
	}
}

// EncodeBinary implements the io.Serializable interface.
func (e *KittyTransferred) EncodeBinary(w *io.BinWriter) {
	e.From.EncodeBinary(w)
	e.To.EncodeBinary(w)
	e.Kitty.EncodeBinary(w)
}

// DecodeBinary implements the io.Serializable interface.
func (e *KittyTransferred) DecodeBinary(r *io.BinReader) {
	e.From.DecodeBinary(r)
	e.To.DecodeBinary(r)
	e.Kitty.DecodeBinary(r)
}

// EncodeBinary implements the io.Serializable interface.
func (e *KittySold) EncodeBinary(w *io.BinWriter) {
	e.Seller.EncodeBinary(w)
	e.Buyer.EncodeBinary(w)
	e.Kitty.EncodeBinary(w)
	EncodeAmount(w, e.Price)
}

// DecodeBinary implements the io.Serializable interface.
func (e *KittySold) DecodeBinary(r *io.BinReader) {
	e.Seller.DecodeBinary(r)
	e.Buyer.DecodeBinary(r)
	e.Kitty.DecodeBinary(r)
	e.Price = DecodeAmount(r)
}

// EncodeBinary implements the io.Serializable interface.
func (e *FundsTransferred) EncodeBinary(w *io.BinWriter) {
	e.From.EncodeBinary(w)
	e.To.EncodeBinary(w)
	EncodeAmount(w, e.Amount)
}

// DecodeBinary implements the io.Serializable interface.
func (e *FundsTransferred) DecodeBinary(r *io.BinReader) {
	e.From.DecodeBinary(r)
	e.To.DecodeBinary(r)
	e.Amount = DecodeAmount(r)
}

// EncodeBinary implements the io.Serializable interface.
func (e *DustLost) EncodeBinary(w *io.BinWriter) {
	e.Account.EncodeBinary(w)
	EncodeAmount(w, e.Amount)
}

// DecodeBinary implements the io.Serializable interface.
func (e *DustLost) DecodeBinary(r *io.BinReader) {
	e.Account.DecodeBinary(r)
	e.Amount = DecodeAmount(r)
}

// EncodeBinary implements the io.Serializable interface.
func (e *Endowed) EncodeBinary(w *io.BinWriter) {
	e.Account.EncodeBinary(w)
	EncodeAmount(w, e.Amount)
}

// DecodeBinary implements the io.Serializable interface.
func (e *Endowed) DecodeBinary(r *io.BinReader) {
	e.Account.DecodeBinary(r)
	e.Amount = DecodeAmount(r)
}

type priceSetAux struct {
	Kitty DNA         `json:"kitty"`
	Price *jsonAmount `json:"price"`
}

// MarshalJSON implements the json.Marshaler interface.
func (e *PriceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(&priceSetAux{Kitty: e.Kitty, Price: (*jsonAmount)(e.Price)})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *PriceSet) UnmarshalJSON(data []byte) error {
	aux := new(priceSetAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Kitty, e.Price = aux.Kitty, (*uint256.Int)(aux.Price)
	return nil
}

type kittySoldAux struct {
	Seller util.Uint160 `json:"seller"`
	Buyer  util.Uint160 `json:"buyer"`
	Kitty  DNA          `json:"kitty"`
	Price  *jsonAmount  `json:"price"`
}

// MarshalJSON implements the json.Marshaler interface.
func (e *KittySold) MarshalJSON() ([]byte, error) {
	return json.Marshal(&kittySoldAux{
		Seller: e.Seller,
		Buyer:  e.Buyer,
		Kitty:  e.Kitty,
		Price:  (*jsonAmount)(e.Price),
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *KittySold) UnmarshalJSON(data []byte) error {
	aux := new(kittySoldAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Seller, e.Buyer, e.Kitty = aux.Seller, aux.Buyer, aux.Kitty
	e.Price = (*uint256.Int)(aux.Price)
	return nil
}

type fundsTransferredAux struct {
	From   util.Uint160 `json:"from"`
	To     util.Uint160 `json:"to"`
	Amount *jsonAmount  `json:"amount"`
}

// MarshalJSON implements the json.Marshaler interface.
func (e *FundsTransferred) MarshalJSON() ([]byte, error) {
	return json.Marshal(&fundsTransferredAux{From: e.From, To: e.To, Amount: (*jsonAmount)(e.Amount)})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *FundsTransferred) UnmarshalJSON(data []byte) error {
	aux := new(fundsTransferredAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.From, e.To, e.Amount = aux.From, aux.To, (*uint256.Int)(aux.Amount)
	return nil
}

// accountAmountAux is shared by DustLost and Endowed.
type accountAmountAux struct {
	Account util.Uint160 `json:"account"`
	Amount  *jsonAmount  `json:"amount"`
}

// MarshalJSON implements the json.Marshaler interface.
func (e *DustLost) MarshalJSON() ([]byte, error) {
	return json.Marshal(&accountAmountAux{Account: e.Account, Amount: (*jsonAmount)(e.Amount)})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *DustLost) UnmarshalJSON(data []byte) error {
	aux := new(accountAmountAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Account, e.Amount = aux.Account, (*uint256.Int)(aux.Amount)
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (e *Endowed) MarshalJSON() ([]byte, error) {
	return json.Marshal(&accountAmountAux{Account: e.Account, Amount: (*jsonAmount)(e.Amount)})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (e *Endowed) UnmarshalJSON(data []byte) error {
	aux := new(accountAmountAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Account, e.Amount = aux.Account, (*uint256.Int)(aux.Amount)
	return nil
}
