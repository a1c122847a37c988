package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/kittychain/pkg/config/netmode"
	"github.com/nspcc-dev/kittychain/pkg/core/state"
	"github.com/nspcc-dev/kittychain/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

const testConfigPath = "../../config"

func TestLoadInvalidFromDir(t *testing.T) {
	_, err := Load("./testdata", netmode.PrivNet)
	require.Error(t, err)
}

func TestLoadPrivNet(t *testing.T) {
	cfg, err := Load(testConfigPath, netmode.PrivNet)
	require.NoError(t, err)
	require.Equal(t, netmode.PrivNet, cfg.ProtocolConfiguration.Magic)
	require.Equal(t, uint32(9999), cfg.ProtocolConfiguration.MaxKittiesOwned)
	require.Equal(t, 6*time.Second, cfg.ProtocolConfiguration.TimePerBlock)
	require.Len(t, cfg.ProtocolConfiguration.Genesis.Kitties, 2)
	require.Equal(t, state.Male, cfg.ProtocolConfiguration.Genesis.Kitties[0].Gender)
	require.Equal(t, state.Female, cfg.ProtocolConfiguration.Genesis.Kitties[1].Gender)
	require.Len(t, cfg.ProtocolConfiguration.Genesis.Balances, 3)
	require.Equal(t, dbconfig.LevelDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.True(t, cfg.ApplicationConfiguration.RPC.Enabled)
}

func TestLoadUnitTestNet(t *testing.T) {
	cfg, err := Load(testConfigPath, netmode.UnitTestNet)
	require.NoError(t, err)
	require.Equal(t, netmode.UnitTestNet, cfg.ProtocolConfiguration.Magic)
	require.Equal(t, uint32(2), cfg.ProtocolConfiguration.MaxKittiesOwned)
	require.Equal(t, uint64(1), cfg.ProtocolConfiguration.ExistentialDeposit)
	require.Equal(t, 100*time.Millisecond, cfg.ProtocolConfiguration.TimePerBlock)
	require.Equal(t, dbconfig.InMemoryDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.Equal(t, 16, cfg.ApplicationConfiguration.ExecLogCacheSize)
}

func writeConfig(t *testing.T, data string) string {
	p := filepath.Join(t.TempDir(), "protocol.test.yml")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "ProtocolConfiguration:\n  Magic: 7\n"))
	require.NoError(t, err)
	require.Equal(t, uint32(DefaultMaxKittiesOwned), cfg.ProtocolConfiguration.MaxKittiesOwned)
	require.Equal(t, DNAPolicySelect, cfg.ProtocolConfiguration.DNAPolicy)
	require.Equal(t, DefaultTimePerBlock, cfg.ProtocolConfiguration.TimePerBlock)
	require.Equal(t, dbconfig.InMemoryDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.Equal(t, DefaultExecLogCacheSize, cfg.ApplicationConfiguration.ExecLogCacheSize)
	require.Equal(t, DefaultMaxKittiesPageSize, cfg.ApplicationConfiguration.RPC.MaxKittiesPageSize)
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})
	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ProtocolConfiguration:\n  Meow: 1\n"))
		require.Error(t, err)
	})
	t.Run("bad DB", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ApplicationConfiguration:\n  DBConfiguration:\n    Type: paper\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
	t.Run("bad genesis gender", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ProtocolConfiguration:\n  Genesis:\n    Kitties:\n      - Owner: KWe4AwYziRBT1R2xKuSnf828wtmg69qPBm\n        DNA: 0a1b2c3d4e5f60718293a4b5c6d7e8f9\n        Gender: cat\n"))
		require.Error(t, err)
	})
	t.Run("bad policy", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "ProtocolConfiguration:\n  DNAPolicy: random\n"))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}
