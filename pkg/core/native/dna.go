package native

import (
	"encoding/binary"
	"fmt"

	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"golang.org/x/crypto/blake2b"
)

// dnaSubject is the randomness subject used for DNA generation.
var dnaSubject = []byte("dna")

// DNAPolicy computes a child DNA byte from the selector byte and the
// corresponding bytes of both parents.
type DNAPolicy func(sel, p1, p2 byte) byte

// SelectPolicy takes the byte of the first parent for even selectors and the
// byte of the second parent otherwise.
func SelectPolicy(sel, p1, p2 byte) byte {
	if sel%2 == 0 {
		return p1
	}
	return p2
}

// MaskPolicy takes bits of the first parent where the selector has ones and
// bits of the second parent where it has zeroes.
func MaskPolicy(sel, p1, p2 byte) byte {
	return (sel & p1) | (^sel & p2)
}

// PolicyByName returns the policy for the config.DNAPolicy* value.
func PolicyByName(name string) (DNAPolicy, error) {
	switch name {
	case config.DNAPolicySelect, "":
		return SelectPolicy, nil
	case config.DNAPolicyMask:
		return MaskPolicy, nil
	default:
		return nil, fmt.Errorf("unknown DNA policy %q", name)
	}
}

// GenDNA generates new DNA from the randomness source, the call position and
// the height of the block being built. Gender is derived from the first DNA
// byte.
func GenDNA(ic *interop.Context) (state.DNA, state.Gender) {
	var (
		dna state.DNA
		rnd = ic.Random.Random(dnaSubject)
		buf = make([]byte, 0, len(rnd)+4+4)
	)
	buf = append(buf, rnd[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, ic.Index)
	buf = binary.LittleEndian.AppendUint32(buf, ic.Height)

	h, _ := blake2b.New(state.DNASize, nil) // Never fails for sizes up to 64 without a key.
	h.Write(buf)
	copy(dna[:], h.Sum(nil))
	return dna, genderOf(dna)
}

// BreedDNA derives a child DNA from the parents. Every byte of the child is
// computed by policy from the parent bytes at the same position and a fresh
// selector byte, child gender comes from the selector.
func BreedDNA(ic *interop.Context, policy DNAPolicy, p1, p2 state.DNA) (state.DNA, state.Gender) {
	var child state.DNA
	sel, gender := GenDNA(ic)
	for i := range child {
		child[i] = policy(sel[i], p1[i], p2[i])
	}
	return child, gender
}

func genderOf(dna state.DNA) state.Gender {
	if dna[0]%2 == 0 {
		return state.Male
	}
	return state.Female
}
