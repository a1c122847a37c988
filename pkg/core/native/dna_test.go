package native

import (
	"encoding/hex"
	"testing"

	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDNAContext(height, index uint32) *interop.Context {
	return interop.NewContext(nil, util.Uint160{}, height, index, seqRandom(), zap.NewNop())
}

func TestGenDNA(t *testing.T) {
	t.Run("vectors", func(t *testing.T) {
		// blake2b-128(random || LE32 index || LE32 height)
		for _, tc := range []struct {
			height, index uint32
			dna           string
			gender        state.Gender
		}{
			{0, 0, "1b6a0a281f1a641a32ff0953278d6b8c", state.Female},
			{2, 1, "beee17c123891ebd7cf67bec5526f6a0", state.Male},
		} {
			dna, g := GenDNA(newDNAContext(tc.height, tc.index))
			require.Equal(t, tc.dna, hex.EncodeToString(dna[:]))
			require.Equal(t, tc.gender, g)
		}
	})
	t.Run("deterministic", func(t *testing.T) {
		d1, g1 := GenDNA(newDNAContext(5, 3))
		d2, g2 := GenDNA(newDNAContext(5, 3))
		require.Equal(t, d1, d2)
		require.Equal(t, g1, g2)
	})
	t.Run("position matters", func(t *testing.T) {
		base, _ := GenDNA(newDNAContext(5, 3))
		other, _ := GenDNA(newDNAContext(5, 4))
		require.NotEqual(t, base, other)
		other, _ = GenDNA(newDNAContext(6, 3))
		require.NotEqual(t, base, other)
	})
	t.Run("gender follows first byte", func(t *testing.T) {
		for i := uint32(0); i < 32; i++ {
			dna, g := GenDNA(newDNAContext(1, i))
			require.Equal(t, dna[0]%2 == 1, g == state.Female)
		}
	})
}

func TestBreedDNA(t *testing.T) {
	p1, p2 := dnaOf(0xaa), dnaOf(0x55)
	for i := range p1 {
		p1[i] = byte(i)
		p2[i] = byte(0xff - i)
	}
	ic := newDNAContext(3, 7)
	sel, selGender := GenDNA(ic)

	t.Run("select", func(t *testing.T) {
		child, g := BreedDNA(ic, SelectPolicy, p1, p2)
		require.Equal(t, selGender, g)
		for i := range child {
			if sel[i]%2 == 0 {
				require.Equal(t, p1[i], child[i])
			} else {
				require.Equal(t, p2[i], child[i])
			}
		}
		again, _ := BreedDNA(ic, SelectPolicy, p1, p2)
		require.Equal(t, child, again)
	})
	t.Run("mask", func(t *testing.T) {
		var ones, zeroes state.DNA
		for i := range ones {
			ones[i] = 0xff
		}
		child, _ := BreedDNA(ic, MaskPolicy, ones, zeroes)
		require.Equal(t, sel, child)
		child, _ = BreedDNA(ic, MaskPolicy, zeroes, ones)
		for i := range child {
			require.Equal(t, ^sel[i], child[i])
		}
	})
}

func TestPolicies(t *testing.T) {
	require.Equal(t, byte(0x11), SelectPolicy(2, 0x11, 0x22))
	require.Equal(t, byte(0x22), SelectPolicy(3, 0x11, 0x22))
	require.Equal(t, byte(0xf0|0x05), MaskPolicy(0xf0, 0xff, 0x05))

	for _, name := range []string{"", config.DNAPolicySelect, config.DNAPolicyMask} {
		p, err := PolicyByName(name)
		require.NoError(t, err)
		require.NotNil(t, p)
	}
	_, err := PolicyByName("xor")
	require.Error(t, err)
}
