package config

import (
	"fmt"
)

// DefaultMaxKittiesPageSize is the default limit of kitties returned by a
// single getkitties call.
const DefaultMaxKittiesPageSize = 100

// RPC is an RPC service configuration information.
type RPC struct {
	BasicService          `yaml:",inline"`
	EnableCORSWorkaround  bool `yaml:"EnableCORSWorkaround"`
	MaxKittiesPageSize    int  `yaml:"MaxKittiesPageSize"`
	MaxRequestBodyBytes   int  `yaml:"MaxRequestBodyBytes"`
	MaxRequestHeaderBytes int  `yaml:"MaxRequestHeaderBytes"`
	MaxWebSocketClients   int  `yaml:"MaxWebSocketClients"`
}

// Validate checks RPC for internal consistency. It returns an error if the
// configuration is invalid.
func (cfg *RPC) Validate() error {
	if cfg.MaxKittiesPageSize <= 0 {
		return fmt.Errorf("%w: MaxKittiesPageSize must be positive", ErrInvalidConfig)
	}
	return nil
}
