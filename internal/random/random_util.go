package random

import (
	"math/rand"
	"time"

	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
)

// String returns a random string with the n as its length.
func String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(Int(65, 90))
	}

	return string(b)
}

// Bytes returns a random byte slice of the specified length.
func Bytes(n int) []byte {
	b := make([]byte, n)
	fill(b)
	return b
}

// fill fills buffer with random bytes.
func fill(buf []byte) {
	// Rand reader returns no errors
	r.Read(buf)
}

// Int returns a random integer in [minI,maxI).
func Int(minI, maxI int) int {
	return minI + r.Intn(maxI-minI)
}

// Uint256 returns a random Uint256.
func Uint256() util.Uint256 {
	var u util.Uint256
	fill(u[:])
	return u
}

// Uint160 returns a random Uint160.
func Uint160() util.Uint160 {
	var u util.Uint160
	fill(u[:])
	return u
}

// DNA returns random kitty DNA.
func DNA() state.DNA {
	var d state.DNA
	fill(d[:])
	return d
}

var r = rand.New(rand.NewSource(time.Now().UTC().UnixNano()))
