package state

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/io"
)

// jsonAmount is *uint256.Int marshaled as a decimal string.
type jsonAmount uint256.Int

// ParseAmount parses a non-negative decimal integer that fits into 256 bits.
func ParseAmount(s string) (*uint256.Int, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	a, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("amount %q overflows 256 bits", s)
	}
	return a, nil
}

// EncodeAmount writes a as a fixed 32-byte big-endian value.
func EncodeAmount(w *io.BinWriter, a *uint256.Int) {
	b := a.Bytes32()
	w.WriteBytes(b[:])
}

// DecodeAmount reads an amount written by EncodeAmount.
func DecodeAmount(r *io.BinReader) *uint256.Int {
	var b [32]byte
	r.ReadBytes(b[:])
	if r.Err != nil {
		return nil
	}
	return new(uint256.Int).SetBytes(b[:])
}

// MarshalJSON implements the json.Marshaler interface.
func (a *jsonAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal((*uint256.Int)(a).ToBig().String())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (a *jsonAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = jsonAmount(*v)
	return nil
}
