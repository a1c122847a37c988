package core_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/dao"
	"github.com/nspcc-dev/kittychain/pkg/core/native"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/nspcc-dev/kittychain/pkg/core/storage/dbconfig"
	"github.com/nspcc-dev/kittychain/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	alice = testchain.Account(0)
	bob   = testchain.Account(1)
	carol = testchain.Account(2)
	dave  = testchain.Account(3)
)

// createdKitty returns the DNA of the kitty minted by a successful call.
func createdKitty(t *testing.T, aer *state.AppExecResult) state.DNA {
	require.Equal(t, state.Halt, aer.State)
	for _, e := range aer.Events {
		if kc, ok := e.(*state.KittyCreated); ok {
			return kc.Kitty
		}
	}
	t.Fatal("no KittyCreated event")
	return state.DNA{}
}

func mustCreate(t *testing.T, bc *core.Blockchain, sender util.Uint160) state.DNA {
	aer, err := bc.CreateKitty(sender)
	require.NoError(t, err)
	return createdKitty(t, aer)
}

func balanceOf(t *testing.T, bc *core.Blockchain, acc util.Uint160) uint64 {
	b, err := bc.BalanceOf(acc)
	require.NoError(t, err)
	return b.Uint64()
}

func TestGenesis(t *testing.T) {
	bc := testchain.NewChain(t, nil)

	require.Equal(t, uint32(0), bc.BlockHeight())
	b, err := bc.GetBlock(0)
	require.NoError(t, err)
	require.Equal(t, util.Uint256{}, b.PrevHash)
	require.Equal(t, uint32(testchain.AccountsCount), b.CallCount)
	require.Equal(t, b.Hash(), bc.CurrentBlockHash())

	for i := 0; i < testchain.AccountsCount; i++ {
		require.Equal(t, uint64(testchain.GenesisBalance), balanceOf(t, bc, testchain.Account(i)))
	}
	total, err := bc.TotalIssuance()
	require.NoError(t, err)
	require.Equal(t, uint64(testchain.AccountsCount*testchain.GenesisBalance), total.Uint64())

	l, err := bc.GetExecLog(0)
	require.NoError(t, err)
	require.Len(t, l, testchain.AccountsCount)
	for i, aer := range l {
		require.Equal(t, uint32(i), aer.Index)
		require.Equal(t, core.MethodGenesisEndow, aer.Method)
		require.Equal(t, state.Halt, aer.State)
	}
}

func TestGenesisKitties(t *testing.T) {
	dna := state.DNA{1, 2, 3}
	bc := testchain.NewChain(t, func(c *config.Config) {
		c.ProtocolConfiguration.Genesis.Kitties = []config.GenesisKitty{
			{Owner: testchain.Address(3), DNA: dna.String(), Gender: state.Female},
		}
	})
	k, err := bc.GetKitty(dna)
	require.NoError(t, err)
	require.Equal(t, dave, k.Owner)
	require.Equal(t, state.Female, k.Gender)
	owned, err := bc.KittiesOf(dave)
	require.NoError(t, err)
	require.Equal(t, state.OwnedKitties{dna}, owned)
}

func TestGenesisFailure(t *testing.T) {
	cfg := testchain.Config()
	dna := state.DNA{1}.String()
	cfg.ProtocolConfiguration.Genesis.Kitties = []config.GenesisKitty{
		{Owner: testchain.Address(0), DNA: dna, Gender: state.Male},
		{Owner: testchain.Address(1), DNA: dna, Gender: state.Male},
	}
	_, err := core.NewBlockchain(storage.NewMemoryStore(), cfg, zaptest.NewLogger(t))
	require.ErrorIs(t, err, native.ErrDuplicateKitty)
}

func TestVersionMismatch(t *testing.T) {
	s := storage.NewMemoryStore()
	d := dao.NewSimple(s)
	d.PutVersion("0.0.1")
	_, err := d.Persist()
	require.NoError(t, err)

	_, err = core.NewBlockchain(s, testchain.Config(), zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestCreateKitty(t *testing.T) {
	bc := testchain.NewChain(t, nil)

	aer, err := bc.CreateKitty(alice)
	require.NoError(t, err)
	require.Equal(t, uint32(1), aer.Block)
	require.Equal(t, uint32(0), aer.Index)
	require.Equal(t, core.MethodCreateKitty, aer.Method)
	require.Equal(t, alice, aer.Sender)
	dna := createdKitty(t, aer)
	require.Equal(t, []state.Event{&state.KittyCreated{Kitty: dna, Owner: alice}}, aer.Events)

	k, err := bc.GetKitty(dna)
	require.NoError(t, err)
	require.Equal(t, alice, k.Owner)
	require.Nil(t, k.Price)
	n, err := bc.KittyCount()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	// Same block, next position, different DNA.
	dna2 := mustCreate(t, bc, alice)
	require.NotEqual(t, dna, dna2)
}

// Owner at the limit can't create a new kitty, the failed call is still
// logged and nothing else changes.
func TestCreateKittyCapacity(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	first := mustCreate(t, bc, alice)
	second := mustCreate(t, bc, alice)

	aer, err := bc.CreateKitty(alice)
	require.ErrorIs(t, err, native.ErrTooManyOwned)
	require.Equal(t, state.Fault, aer.State)
	require.Equal(t, uint32(2), aer.Index)
	require.NotEmpty(t, aer.FaultException)
	require.Empty(t, aer.Events)

	owned, err := bc.KittiesOf(alice)
	require.NoError(t, err)
	require.Equal(t, state.OwnedKitties{first, second}, owned)
	n, err := bc.KittyCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	b, err := bc.SealBlock()
	require.NoError(t, err)
	require.Equal(t, uint32(3), b.CallCount)
	l, err := bc.GetExecLog(b.Index)
	require.NoError(t, err)
	require.Len(t, l, 3)
	require.Equal(t, state.Fault, l[2].State)
}

func TestBreedKitty(t *testing.T) {
	bc := testchain.NewChain(t, func(c *config.Config) {
		c.ProtocolConfiguration.MaxKittiesOwned = 100
	})

	byGender := make(map[state.Gender][]state.DNA)
	for i := 0; i < 40 && (len(byGender[state.Male]) < 2 || len(byGender[state.Female]) < 1); i++ {
		dna := mustCreate(t, bc, alice)
		k, err := bc.GetKitty(dna)
		require.NoError(t, err)
		byGender[k.Gender] = append(byGender[k.Gender], dna)
	}
	require.GreaterOrEqual(t, len(byGender[state.Male]), 2)
	require.GreaterOrEqual(t, len(byGender[state.Female]), 1)
	m1, m2, f := byGender[state.Male][0], byGender[state.Male][1], byGender[state.Female][0]

	t.Run("same gender", func(t *testing.T) {
		aer, err := bc.BreedKitty(alice, m1, m2)
		require.ErrorIs(t, err, native.ErrCantBreed)
		require.Equal(t, state.Fault, aer.State)
	})
	t.Run("not owner", func(t *testing.T) {
		_, err := bc.BreedKitty(bob, m1, f)
		require.ErrorIs(t, err, native.ErrNotOwner)
	})
	t.Run("missing parent", func(t *testing.T) {
		_, err := bc.BreedKitty(alice, m1, state.DNA{0xff})
		require.ErrorIs(t, err, native.ErrNoKitty)
	})
	t.Run("good", func(t *testing.T) {
		aer, err := bc.BreedKitty(alice, m1, f)
		require.NoError(t, err)
		child := createdKitty(t, aer)
		k, err := bc.GetKitty(child)
		require.NoError(t, err)
		require.Equal(t, alice, k.Owner)
		for i := range child {
			require.True(t, child[i] == m1[i] || child[i] == f[i])
		}
	})
}

func TestTransferKitty(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	dna := mustCreate(t, bc, alice)

	_, err := bc.TransferKitty(bob, carol, dna)
	require.ErrorIs(t, err, native.ErrNotOwner)
	_, err = bc.TransferKitty(alice, alice, dna)
	require.ErrorIs(t, err, native.ErrTransferToSelf)

	aer, err := bc.TransferKitty(alice, bob, dna)
	require.NoError(t, err)
	require.Equal(t, []state.Event{&state.KittyTransferred{From: alice, To: bob, Kitty: dna}}, aer.Events)

	owned, err := bc.KittiesOf(alice)
	require.NoError(t, err)
	require.Empty(t, owned)
	owned, err = bc.KittiesOf(bob)
	require.NoError(t, err)
	require.Equal(t, state.OwnedKitties{dna}, owned)
}

func TestBuyKitty(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	dna := mustCreate(t, bc, alice)

	_, err := bc.BuyKitty(bob, dna, uint256.NewInt(5))
	require.ErrorIs(t, err, native.ErrNotForSale)

	_, err = bc.SetPrice(bob, dna, uint256.NewInt(5))
	require.ErrorIs(t, err, native.ErrNotOwner)
	aer, err := bc.SetPrice(alice, dna, uint256.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, []state.Event{&state.PriceSet{Kitty: dna, Price: uint256.NewInt(5)}}, aer.Events)

	_, err = bc.BuyKitty(bob, dna, uint256.NewInt(4))
	require.ErrorIs(t, err, native.ErrBidPriceTooLow)

	aer, err = bc.BuyKitty(bob, dna, uint256.NewInt(6))
	require.NoError(t, err)
	require.Len(t, aer.Events, 3)
	require.Equal(t, &state.KittySold{Seller: alice, Buyer: bob, Kitty: dna, Price: uint256.NewInt(5)}, aer.Events[1])

	k, err := bc.GetKitty(dna)
	require.NoError(t, err)
	require.Equal(t, bob, k.Owner)
	require.Nil(t, k.Price)
	require.Equal(t, uint64(15), balanceOf(t, bc, alice))
	require.Equal(t, uint64(5), balanceOf(t, bc, bob))
}

// Failed payment leaves the kitty, the indices and balances untouched.
func TestBuyKittyAtomicity(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	dna := mustCreate(t, bc, alice)
	_, err := bc.SetPrice(alice, dna, uint256.NewInt(testchain.GenesisBalance))
	require.NoError(t, err)

	aer, err := bc.BuyKitty(bob, dna, uint256.NewInt(testchain.GenesisBalance))
	require.ErrorIs(t, err, native.ErrInsufficientFunds)
	require.Equal(t, state.Fault, aer.State)
	require.Empty(t, aer.Events)

	k, err := bc.GetKitty(dna)
	require.NoError(t, err)
	require.Equal(t, alice, k.Owner)
	require.Equal(t, uint64(testchain.GenesisBalance), k.Price.Uint64())
	owned, err := bc.KittiesOf(bob)
	require.NoError(t, err)
	require.Empty(t, owned)
	owned, err = bc.KittiesOf(alice)
	require.NoError(t, err)
	require.Equal(t, state.OwnedKitties{dna}, owned)
	require.Equal(t, uint64(testchain.GenesisBalance), balanceOf(t, bc, alice))
	require.Equal(t, uint64(testchain.GenesisBalance), balanceOf(t, bc, bob))
}

func TestTransferFunds(t *testing.T) {
	bc := testchain.NewChain(t, func(c *config.Config) {
		c.ProtocolConfiguration.ExistentialDeposit = 2
	})

	_, err := bc.TransferFunds(alice, dave, uint256.NewInt(1))
	require.ErrorIs(t, err, native.ErrExistentialDeposit)
	_, err = bc.TransferFunds(alice, dave, uint256.NewInt(11))
	require.ErrorIs(t, err, native.ErrInsufficientFunds)

	aer, err := bc.TransferFunds(alice, dave, uint256.NewInt(9))
	require.NoError(t, err)
	require.Equal(t, []state.Event{
		&state.FundsTransferred{From: alice, To: dave, Amount: uint256.NewInt(9)},
		&state.DustLost{Account: alice, Amount: uint256.NewInt(1)},
	}, aer.Events)
	require.Equal(t, uint64(0), balanceOf(t, bc, alice))
	require.Equal(t, uint64(9), balanceOf(t, bc, dave))
	total, err := bc.TotalIssuance()
	require.NoError(t, err)
	require.Equal(t, uint64(3*testchain.GenesisBalance-1), total.Uint64())
}

func TestForEachKitty(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	var created []state.DNA
	for i := 0; i < 3; i++ {
		created = append(created, mustCreate(t, bc, testchain.Account(i)))
	}

	var seen []state.DNA
	require.NoError(t, bc.ForEachKitty(nil, func(k *state.Kitty) bool {
		seen = append(seen, k.DNA)
		return true
	}))
	require.ElementsMatch(t, created, seen)
	for i := 1; i < len(seen); i++ {
		require.Negative(t, compareDNA(seen[i-1], seen[i]))
	}

	var rest []state.DNA
	require.NoError(t, bc.ForEachKitty(&seen[1], func(k *state.Kitty) bool {
		rest = append(rest, k.DNA)
		return len(rest) < 1
	}))
	require.Equal(t, seen[1:2], rest)
}

func compareDNA(a, b state.DNA) int {
	for i := range a {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return 0
}

func TestSealBlock(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	genesis := bc.CurrentBlockHash()

	mustCreate(t, bc, alice)
	b, err := bc.SealBlock()
	require.NoError(t, err)
	require.Equal(t, uint32(1), b.Index)
	require.Equal(t, genesis, b.PrevHash)
	require.Equal(t, uint32(1), bc.BlockHeight())

	empty, err := bc.SealBlock()
	require.NoError(t, err)
	require.Equal(t, uint32(0), empty.CallCount)
	require.Equal(t, b.Hash(), empty.PrevHash)

	aer, err := bc.CreateKitty(alice)
	require.NoError(t, err)
	require.Equal(t, uint32(3), aer.Block)
	require.Equal(t, uint32(0), aer.Index)

	_, err = bc.GetBlock(3)
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
	_, err = bc.GetExecLog(3)
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestSubscriptions(t *testing.T) {
	bc := testchain.NewChain(t, nil)

	var (
		blockCh = make(chan *state.Block, 4)
		notesCh = make(chan *state.NotificationEvent, 4)
		execCh  = make(chan *state.AppExecResult, 4)
	)
	bc.SubscribeForBlocks(blockCh)
	bc.SubscribeForNotifications(notesCh)
	bc.SubscribeForExecutions(execCh)

	dna := mustCreate(t, bc, alice)
	_, err := bc.TransferKitty(bob, carol, dna)
	require.Error(t, err)
	b, err := bc.SealBlock()
	require.NoError(t, err)

	var aer *state.AppExecResult
	require.Eventually(t, func() bool {
		select {
		case aer = <-execCh:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, uint32(0), aer.Index)

	var ne *state.NotificationEvent
	require.Eventually(t, func() bool {
		select {
		case ne = <-notesCh:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, &state.NotificationEvent{
		Block: 1,
		Index: 0,
		Event: &state.KittyCreated{Kitty: dna, Owner: alice},
	}, ne)

	var got *state.Block
	require.Eventually(t, func() bool {
		select {
		case got = <-blockCh:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	require.Equal(t, b, got)
	// Nothing for the failed call.
	require.Len(t, execCh, 0)
	require.Len(t, notesCh, 0)

	bc.UnsubscribeFromBlocks(blockCh)
	bc.UnsubscribeFromNotifications(notesCh)
	bc.UnsubscribeFromExecutions(execCh)
	_, err = bc.SealBlock()
	require.NoError(t, err)
	mustCreate(t, bc, bob)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, blockCh, 0)
}

func TestSubscriptionsSkipGenesis(t *testing.T) {
	for i := 0; i < 20; i++ {
		bc := testchain.NewChain(t, func(c *config.Config) {
			c.ProtocolConfiguration.Genesis.Kitties = []config.GenesisKitty{
				{Owner: testchain.Address(3), DNA: state.DNA{1, 2, 3}.String(), Gender: state.Female},
			}
		})
		var (
			blockCh = make(chan *state.Block, 4)
			execCh  = make(chan *state.AppExecResult, 8)
		)
		bc.SubscribeForBlocks(blockCh)
		bc.SubscribeForExecutions(execCh)

		mustCreate(t, bc, alice)
		var aer *state.AppExecResult
		select {
		case aer = <-execCh:
		case <-time.After(time.Second):
			t.Fatal("no execution received")
		}
		require.Equal(t, uint32(1), aer.Block)
		require.Equal(t, core.MethodCreateKitty, aer.Method)
		require.Len(t, blockCh, 0)

		b, err := bc.SealBlock()
		require.NoError(t, err)
		select {
		case got := <-blockCh:
			require.Equal(t, b, got)
		case <-time.After(time.Second):
			t.Fatal("no block received")
		}
		require.NoError(t, bc.Close())
	}
}

func TestClose(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	require.NoError(t, bc.Close())
	require.NoError(t, bc.Close())
	_, err := bc.CreateKitty(alice)
	require.ErrorIs(t, err, core.ErrNotRunning)
	_, err = bc.SealBlock()
	require.ErrorIs(t, err, core.ErrNotRunning)
}

func TestRun(t *testing.T) {
	bc := testchain.NewChain(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		bc.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return bc.BlockHeight() >= 2 }, 2*time.Second, 20*time.Millisecond)
	cancel()
	<-done
}

func TestPersistence(t *testing.T) {
	for name, newCfg := range map[string]func(dir string) dbconfig.DBConfiguration{
		dbconfig.LevelDB: func(dir string) dbconfig.DBConfiguration {
			return dbconfig.DBConfiguration{
				Type:           dbconfig.LevelDB,
				LevelDBOptions: dbconfig.LevelDBOptions{DataDirectoryPath: dir},
			}
		},
		dbconfig.BoltDB: func(dir string) dbconfig.DBConfiguration {
			return dbconfig.DBConfiguration{
				Type:          dbconfig.BoltDB,
				BoltDBOptions: dbconfig.BoltDBOptions{FilePath: filepath.Join(dir, "chain.bolt")},
			}
		},
	} {
		t.Run(name, func(t *testing.T) {
			dbCfg := newCfg(t.TempDir())
			cfg := testchain.Config()
			cfg.ApplicationConfiguration.DBConfiguration = dbCfg

			open := func() *core.Blockchain {
				s, err := storage.NewStore(dbCfg)
				require.NoError(t, err)
				bc, err := core.NewBlockchain(s, cfg, zaptest.NewLogger(t))
				require.NoError(t, err)
				return bc
			}

			bc := open()
			first := mustCreate(t, bc, alice)
			_, err := bc.SealBlock()
			require.NoError(t, err)
			// Pending calls are sealed on close.
			second := mustCreate(t, bc, bob)
			top := bc.CurrentBlockHash()
			require.NoError(t, bc.Close())

			bc = open()
			defer func() { assert.NoError(t, bc.Close()) }()
			require.Equal(t, uint32(2), bc.BlockHeight())
			require.NotEqual(t, top, bc.CurrentBlockHash())
			for acc, dna := range map[util.Uint160]state.DNA{alice: first, bob: second} {
				k, err := bc.GetKitty(dna)
				require.NoError(t, err)
				require.Equal(t, acc, k.Owner)
			}
			l, err := bc.GetExecLog(2)
			require.NoError(t, err)
			require.Len(t, l, 1)
			require.Equal(t, core.MethodCreateKitty, l[0].Method)

			third := mustCreate(t, bc, carol)
			require.NotEqual(t, first, third)
		})
	}
}
