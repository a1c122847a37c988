/*
Package result contains the types of complex JSON-RPC call results.
*/
package result

import (
	"github.com/nspcc-dev/kittychain/pkg/config/netmode"
)

type (
	// Version model used for reporting server version info.
	Version struct {
		UserAgent string   `json:"useragent"`
		Protocol  Protocol `json:"protocol"`
		RPC       RPC      `json:"rpc"`
	}

	// RPC represents the RPC server configuration.
	RPC struct {
		MaxKittiesPageSize int `json:"maxkittiespagesize"`
	}

	// Protocol represents network-dependent parameters.
	Protocol struct {
		AddressVersion       byte          `json:"addressversion"`
		Network              netmode.Magic `json:"network"`
		MillisecondsPerBlock int64         `json:"msperblock"`
		MaxKittiesOwned      uint32        `json:"maxkittiesowned"`
		ExistentialDeposit   uint64        `json:"existentialdeposit"`
		DNAPolicy            string        `json:"dnapolicy"`
	}
)
