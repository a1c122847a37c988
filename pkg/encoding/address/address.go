/*
Package address implements conversion of account identifiers to and from
their textual address form.
*/
package address

import (
	"errors"

	"github.com/nspcc-dev/kittychain/pkg/encoding/base58"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

const (
	// KittyPrefix is the first byte of an encoded address, it makes all
	// addresses start with 'K'.
	KittyPrefix byte = 0x2e
)

// Prefix is the byte used to prepend to addresses when encoding them. It can
// be changed, but should only be done once before any encoding happens.
var Prefix = KittyPrefix

// Uint160ToString returns the address string from the given Uint160.
func Uint160ToString(u util.Uint160) string {
	b := append([]byte{Prefix}, u.BytesBE()...)
	return base58.CheckEncode(b)
}

// StringToUint160 attempts to decode the given address string into a Uint160.
func StringToUint160(s string) (u util.Uint160, err error) {
	b, err := base58.CheckDecode(s)
	if err != nil {
		return u, err
	}
	if len(b) != util.Uint160Size+1 {
		return u, errors.New("invalid address length")
	}
	if b[0] != Prefix {
		return u, errors.New("wrong address prefix")
	}
	return util.Uint160DecodeBytesBE(b[1:])
}
