/*
Package base58 wraps generic base58 encoder with the checksum used by account
addresses.
*/
package base58

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// checksumLen is the number of double-SHA256 bytes appended to the data.
const checksumLen = 4

// CheckDecode implements base58-encoded string decoding with a hash-based
// checksum check.
func CheckDecode(s string) (b []byte, err error) {
	b, err = base58.Decode(s)
	if err != nil {
		return nil, err
	}

	if len(b) < checksumLen+1 {
		return nil, errors.New("invalid base-58 check string: missing checksum")
	}

	if !bytes.Equal(checksum(b[:len(b)-checksumLen]), b[len(b)-checksumLen:]) {
		return nil, errors.New("invalid base-58 check string: invalid checksum")
	}

	// Strip the 4 byte long hash.
	b = b[:len(b)-checksumLen]

	return b, nil
}

// CheckEncode encodes the given byte slice into a base58 string with a
// hash-based checksum appended to it.
func CheckEncode(b []byte) string {
	b = append(b, checksum(b)...)

	return base58.Encode(b)
}

func checksum(b []byte) []byte {
	h1 := sha256.Sum256(b)
	h2 := sha256.Sum256(h1[:])
	return h2[:checksumLen]
}
