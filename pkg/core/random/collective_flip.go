/*
Package random provides the entropy source used for kitty DNA generation.
*/
package random

import (
	"github.com/nspcc-dev/kittychain/pkg/util"
	"golang.org/x/crypto/blake2b"
)

// MaterialLen is the number of recent block hashes mixed into every random
// value.
const MaterialLen = 81

// Source is a subject-scoped source of randomness.
type Source interface {
	Random(subject []byte) util.Uint256
}

// CollectiveFlip derives random values from the hashes of the most recent
// blocks. Values are unpredictable before the blocks are sealed and are the
// same for every call made within a single block with the same subject,
// callers are expected to mix in some call-specific data. It's not safe for
// concurrent use.
type CollectiveFlip struct {
	material []util.Uint256
	next     int
}

// NewCollectiveFlip returns an empty CollectiveFlip.
func NewCollectiveFlip() *CollectiveFlip {
	return &CollectiveFlip{
		material: make([]util.Uint256, 0, MaterialLen),
	}
}

// Push adds the hash of a newly sealed block replacing the oldest one once
// MaterialLen hashes are accumulated.
func (c *CollectiveFlip) Push(h util.Uint256) {
	if len(c.material) < MaterialLen {
		c.material = append(c.material, h)
		return
	}
	c.material[c.next] = h
	c.next = (c.next + 1) % MaterialLen
}

// Len returns the number of hashes accumulated.
func (c *CollectiveFlip) Len() int {
	return len(c.material)
}

// Random implements Source. It's BLAKE2b-256 of the subject followed by all
// accumulated hashes from the oldest to the newest one.
func (c *CollectiveFlip) Random(subject []byte) util.Uint256 {
	h, _ := blake2b.New256(nil) // Never fails without a key.
	h.Write(subject)
	for i := range c.material {
		h.Write(c.material[(c.next+i)%len(c.material)][:])
	}
	var res util.Uint256
	copy(res[:], h.Sum(nil))
	return res
}
