package config

import (
	"fmt"

	"github.com/nspcc-dev/kittychain/pkg/core/storage/dbconfig"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`

	LogLevel string `yaml:"LogLevel"`
	LogPath  string `yaml:"LogPath"`

	Pprof      BasicService `yaml:"Pprof"`
	Prometheus BasicService `yaml:"Prometheus"`
	RPC        RPC          `yaml:"RPC"`

	// ExecLogCacheSize is the number of block execution logs kept in memory.
	ExecLogCacheSize int `yaml:"ExecLogCacheSize"`
}

// Validate checks ApplicationConfiguration for internal consistency and
// returns an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	switch a.DBConfiguration.Type {
	case dbconfig.InMemoryDB, dbconfig.LevelDB, dbconfig.BoltDB:
	default:
		return fmt.Errorf("%w: unknown DB type %q", ErrInvalidConfig, a.DBConfiguration.Type)
	}
	if a.ExecLogCacheSize <= 0 {
		return fmt.Errorf("%w: ExecLogCacheSize must be positive", ErrInvalidConfig)
	}
	return a.RPC.Validate()
}
