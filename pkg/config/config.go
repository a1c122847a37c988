package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nspcc-dev/kittychain/pkg/config/netmode"
	"github.com/nspcc-dev/kittychain/pkg/core/storage/dbconfig"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is the default path to the config directory.
	DefaultConfigPath = "./config"
	// DefaultMaxKittiesOwned is the default per-account kitty limit.
	DefaultMaxKittiesOwned = 9999
	// DefaultTimePerBlock is the default block sealing interval.
	DefaultTimePerBlock = 6 * time.Second
	// DefaultExecLogCacheSize is the default number of execution logs
	// cached in memory.
	DefaultExecLogCacheSize = 128
)

// UserAgentFormat is a formatted string used to generate user agent string.
const UserAgentFormat = "/KittyChain:%s/"

// Version is the version of the node, set at the build time.
var Version string

// UserAgent returns the node user agent string.
func UserAgent() string {
	return fmt.Sprintf(UserAgentFormat, Version)
}

// Config top level struct representing the config
// for the node.
type Config struct {
	ProtocolConfiguration    ProtocolConfiguration    `yaml:"ProtocolConfiguration"`
	ApplicationConfiguration ApplicationConfiguration `yaml:"ApplicationConfiguration"`
}

// Load attempts to load the config from the given
// path for the given netMode.
func Load(path string, netMode netmode.Magic) (Config, error) {
	configPath := filepath.Join(path, fmt.Sprintf("protocol.%s.yml", netMode))
	return LoadFile(configPath)
}

// LoadFile loads config from the provided path.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config '%s' doesn't exist", configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}

	config := Config{
		ProtocolConfiguration: ProtocolConfiguration{
			MaxKittiesOwned: DefaultMaxKittiesOwned,
			DNAPolicy:       DNAPolicySelect,
			TimePerBlock:    DefaultTimePerBlock,
		},
		ApplicationConfiguration: ApplicationConfiguration{
			DBConfiguration: dbconfig.DBConfiguration{
				Type: dbconfig.InMemoryDB,
			},
			ExecLogCacheSize: DefaultExecLogCacheSize,
			RPC: RPC{
				MaxKittiesPageSize: DefaultMaxKittiesPageSize,
			},
		},
	}
	decoder := yaml.NewDecoder(bytes.NewReader(configData))
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	err = config.ProtocolConfiguration.Validate()
	if err != nil {
		return Config{}, err
	}
	err = config.ApplicationConfiguration.Validate()
	if err != nil {
		return Config{}, err
	}

	return config, nil
}

// ErrInvalidConfig is wrapped by all validation errors.
var ErrInvalidConfig = errors.New("invalid configuration")
