// Package result contains the result types of bridge RPC methods.
package result

import (
	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
)

type (
	// Version is the getversion result.
	Version struct {
		UserAgent string   `json:"useragent"`
		Protocol  Protocol `json:"protocol"`
		RPC       RPC      `json:"rpc"`
	}

	// RPC describes server limits a client has to respect.
	RPC struct {
		MaxNotificationsLimit int   `json:"maxnotificationslimit"`
		MaxRequestBodyBytes   int64 `json:"maxrequestbodybytes"`
	}

	// Protocol describes the network: magic to sign for, address version and
	// the oracle address.
	Protocol struct {
		AddressVersion byte          `json:"addressversion"`
		Network        netmode.Magic `json:"network"`
		Oracle         string        `json:"oracle"`
	}
)
