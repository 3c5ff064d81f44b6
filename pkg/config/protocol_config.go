package config

import (
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// ProtocolConfiguration represents the protocol config.
type ProtocolConfiguration struct {
	// Magic is the network magic, it's also used in signed invocations.
	Magic netmode.Magic `yaml:"Magic"`
	// OracleAddress is the only identity allowed to fulfill queries. It can't
	// be changed for an existing database.
	OracleAddress string `yaml:"OracleAddress"`
}

// Validate checks ProtocolConfiguration for internal consistency and returns
// an error if anything inappropriate found.
func (p *ProtocolConfiguration) Validate() error {
	if p.OracleAddress == "" {
		return ErrEmptyOracleAddress
	}
	if _, err := p.Oracle(); err != nil {
		return err
	}
	return nil
}

// Oracle returns the script hash of OracleAddress.
func (p *ProtocolConfiguration) Oracle() (util.Uint160, error) {
	h, err := address.StringToUint160(p.OracleAddress)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("invalid OracleAddress %q: %w", p.OracleAddress, err)
	}
	return h, nil
}
