package native

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/interop"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fixedRandom returns the same value for any subject.
type fixedRandom util.Uint256

func (r fixedRandom) Random([]byte) util.Uint256 { return util.Uint256(r) }

func seqRandom() fixedRandom {
	var r fixedRandom
	for i := range r {
		r[i] = byte(i)
	}
	return r
}

var (
	alice = util.Uint160{1}
	bob   = util.Uint160{2}
	carol = util.Uint160{3}
)

type testLedger struct {
	t     *testing.T
	dao   *dao.Simple
	cs    *Contracts
	index uint32
}

func newTestLedger(t *testing.T, maxOwned uint32, ed uint64) *testLedger {
	cs, err := NewContracts(config.ProtocolConfiguration{
		MaxKittiesOwned:    maxOwned,
		ExistentialDeposit: ed,
		DNAPolicy:          config.DNAPolicySelect,
	})
	require.NoError(t, err)
	return &testLedger{
		t:   t,
		dao: dao.NewSimple(storage.NewMemoryStore()),
		cs:  cs,
	}
}

// context returns a context for the next call, every call gets its own
// index so that generated DNA differs.
func (l *testLedger) context(sender util.Uint160) *interop.Context {
	l.index++
	return interop.NewContext(l.dao, sender, 1, l.index, seqRandom(), zaptest.NewLogger(l.t))
}

func (l *testLedger) endow(acc util.Uint160, amount uint64) {
	require.NoError(l.t, l.cs.Balances.Endow(l.context(acc), acc, uint256.NewInt(amount)))
}

func (l *testLedger) mint(owner util.Uint160, dna state.DNA, g state.Gender) {
	require.NoError(l.t, l.cs.Kitties.Mint(l.context(owner), owner, dna, g))
}

func (l *testLedger) kitty(id state.DNA) *state.Kitty {
	k, err := l.cs.Kitties.GetKitty(l.dao, id)
	require.NoError(l.t, err)
	return k
}

func (l *testLedger) owned(acc util.Uint160) state.OwnedKitties {
	o, err := l.cs.Kitties.KittiesOf(l.dao, acc)
	require.NoError(l.t, err)
	return o
}

func (l *testLedger) count() uint64 {
	n, err := l.cs.Kitties.Count(l.dao)
	require.NoError(l.t, err)
	return n
}

func (l *testLedger) balance(acc util.Uint160) uint64 {
	b, err := l.cs.Balances.BalanceOf(l.dao, acc)
	require.NoError(l.t, err)
	return b.Uint64()
}

func (l *testLedger) issuance() uint64 {
	b, err := l.cs.Balances.TotalIssuance(l.dao)
	require.NoError(l.t, err)
	return b.Uint64()
}

// checkIndex verifies that every kitty is in its owner's index only.
func (l *testLedger) checkIndex(accs ...util.Uint160) {
	var total int
	for _, acc := range accs {
		for _, id := range l.owned(acc) {
			require.Equal(l.t, acc, l.kitty(id).Owner)
			total++
		}
	}
	var stored int
	require.NoError(l.t, l.dao.SeekKitties(nil, func(*state.Kitty) bool {
		stored++
		return true
	}))
	require.Equal(l.t, stored, total)
}

func dnaOf(b byte) state.DNA {
	var d state.DNA
	for i := range d {
		d[i] = b
	}
	return d
}
