package rpcclient

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/nspcc-dev/kittychain/internal/testchain"
	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/kittyrpc"
	"github.com/nspcc-dev/kittychain/pkg/services/rpcsrv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func initTestServer(t *testing.T) (*core.Blockchain, string) {
	chain := testchain.NewChain(t, nil)
	cfg := testchain.Config().ApplicationConfiguration.RPC
	errCh := make(chan error, 1)
	srv := rpcsrv.New(chain, cfg, zaptest.NewLogger(t), errCh)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	select {
	case err := <-errCh:
		t.Fatal(err)
	default:
	}
	return chain, "http://" + srv.Addresses()[0]
}

func newTestClient(t *testing.T) (*core.Blockchain, *Client) {
	chain, endpoint := initTestServer(t)
	c, err := New(context.Background(), endpoint, Options{})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return chain, c
}

func TestClientInit(t *testing.T) {
	_, c := newTestClient(t)

	_, err := c.GetNetwork()
	require.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, c.Init())
	net, err := c.GetNetwork()
	require.NoError(t, err)
	require.Equal(t, testchain.Network(), net)
	require.NoError(t, c.Ping())

	v, err := c.GetVersion()
	require.NoError(t, err)
	require.Equal(t, config.UserAgent(), v.UserAgent)
	require.Equal(t, uint32(2), v.Protocol.MaxKittiesOwned)
	require.Equal(t, 10, v.RPC.MaxKittiesPageSize)
}

func TestClientBlocks(t *testing.T) {
	chain, c := newTestClient(t)

	count, err := c.GetBlockCount()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	_, err = c.CreateKitty(testchain.Account(0))
	require.NoError(t, err)
	aer, err := c.TransferKitty(testchain.Account(0), testchain.Account(1), state.DNA{0xff})
	require.ErrorIs(t, err, kittyrpc.ErrUnknownKitty)
	require.NotNil(t, aer)
	require.Equal(t, state.Fault, aer.State)
	require.Equal(t, uint32(1), aer.Block)
	require.Equal(t, uint32(1), aer.Index)
	require.Equal(t, core.MethodTransferKitty, aer.Method)
	require.Empty(t, aer.Events)

	b, err := chain.SealBlock()
	require.NoError(t, err)

	h, err := c.GetBestBlockHash()
	require.NoError(t, err)
	require.Equal(t, b.Hash(), h)

	actual, err := c.GetBlock(b.Index)
	require.NoError(t, err)
	require.Equal(t, b, actual)

	log, err := c.GetApplicationLog(b.Index)
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, state.Halt, log[0].State)
	require.Equal(t, state.Fault, log[1].State)
	require.NotEmpty(t, log[1].FaultException)

	_, err = c.GetBlock(b.Index + 1)
	require.ErrorIs(t, err, kittyrpc.ErrUnknownBlock)
}

func TestClientKitties(t *testing.T) {
	_, c := newTestClient(t)
	alice, bob := testchain.Account(0), testchain.Account(1)

	aer, err := c.CreateKitty(alice)
	require.NoError(t, err)
	require.Equal(t, core.MethodCreateKitty, aer.Method)
	require.Len(t, aer.Events, 1)
	created := aer.Events[0].(*state.KittyCreated)
	mom := created.Kitty

	aer, err = c.CreateKitty(alice)
	require.NoError(t, err)
	dad := aer.Events[0].(*state.KittyCreated).Kitty

	k, err := c.GetKitty(mom)
	require.NoError(t, err)
	require.Equal(t, alice, k.Owner)
	require.Nil(t, k.Price)

	// Two kitties is the limit.
	_, err = c.CreateKitty(alice)
	require.ErrorIs(t, err, kittyrpc.ErrCapacity)
	_, err = c.BreedKitty(bob, mom, dad)
	require.ErrorIs(t, err, kittyrpc.ErrNotOwner)

	_, err = c.TransferKitty(alice, bob, dad)
	require.NoError(t, err)
	_, err = c.TransferKitty(alice, bob, dad)
	require.ErrorIs(t, err, kittyrpc.ErrNotOwner)

	owned, err := c.GetKittiesOf(bob)
	require.NoError(t, err)
	require.Equal(t, []state.DNA{dad}, owned)

	_, err = c.SetPrice(bob, dad, uint256.NewInt(3))
	require.NoError(t, err)
	k, err = c.GetKitty(dad)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(3), k.Price)

	_, err = c.BuyKitty(alice, dad, uint256.NewInt(2))
	require.ErrorIs(t, err, kittyrpc.ErrNotAllowed)
	_, err = c.BuyKitty(alice, dad, uint256.NewInt(3))
	require.NoError(t, err)

	bal, err := c.GetBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(testchain.GenesisBalance-3), bal)
	bal, err = c.GetBalance(bob)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(testchain.GenesisBalance+3), bal)

	_, err = c.TransferFunds(bob, alice, uint256.NewInt(1))
	require.NoError(t, err)
	_, err = c.TransferFunds(bob, alice, nil)
	require.Error(t, err)

	total, err := c.GetTotalIssuance()
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(testchain.GenesisBalance*testchain.AccountsCount), total)

	n, err := c.GetKittyCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)

	_, err = c.GetKitty(state.DNA{0xff})
	require.ErrorIs(t, err, kittyrpc.ErrUnknownKitty)

	require.NoError(t, c.ValidateAddress(testchain.Address(0)))
	require.Error(t, c.ValidateAddress("meow"))
}

func TestClientTraverseKitties(t *testing.T) {
	_, c := newTestClient(t)

	var expected = make(map[state.DNA]bool)
	for i := 0; i < testchain.AccountsCount; i++ {
		for j := 0; j < 2; j++ {
			aer, err := c.CreateKitty(testchain.Account(i))
			require.NoError(t, err)
			expected[aer.Events[0].(*state.KittyCreated).Kitty] = true
		}
	}

	page, err := c.GetKitties(nil, 4)
	require.NoError(t, err)
	require.Len(t, page.Kitties, 4)
	require.NotNil(t, page.Next)

	var seen = make(map[state.DNA]bool)
	var prev *state.DNA
	require.NoError(t, c.TraverseKitties(4, func(k *state.Kitty) bool {
		if prev != nil {
			require.Less(t, prev.String(), k.DNA.String())
		}
		dna := k.DNA
		prev = &dna
		seen[k.DNA] = true
		return true
	}))
	require.Equal(t, expected, seen)

	var cnt int
	require.NoError(t, c.TraverseKitties(0, func(*state.Kitty) bool {
		cnt++
		return cnt < 3
	}))
	require.Equal(t, 3, cnt)
}

func TestClientConnectionError(t *testing.T) {
	c, err := New(context.Background(), "http://localhost:1", Options{DialTimeout: 100 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.GetBlockCount()
	require.Error(t, err)
	require.Error(t, c.Init())
}
