package testchain

import (
	"testing"

	"github.com/nspcc-dev/kittychain/pkg/config"
	"github.com/nspcc-dev/kittychain/pkg/core"
	"github.com/nspcc-dev/kittychain/pkg/core/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// NewChain returns a chain over a new in-memory store using Config modified
// by f (if not nil). The chain is closed on test cleanup.
func NewChain(t testing.TB, f func(*config.Config)) *core.Blockchain {
	cfg := Config()
	if f != nil {
		f(&cfg)
	}
	return NewChainWithStore(t, storage.NewMemoryStore(), cfg)
}

// NewChainWithStore returns a chain over the given store, the chain is closed
// on test cleanup.
func NewChainWithStore(t testing.TB, s storage.Store, cfg config.Config) *core.Blockchain {
	bc, err := core.NewBlockchain(s, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bc.Close() })
	return bc
}
