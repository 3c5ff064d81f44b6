package native

import (
	"encoding/binary"

	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/hash"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// IDSource mints query correlation IDs.
type IDSource interface {
	Next(requester util.Uint160, nonce uint64, entropy []byte) util.Uint256
}

// IDGenerator is the default IDSource. It hashes the requester identity,
// the registry nonce and the transaction entropy, so an ID can't be known
// before the transaction that registers it is executed.
type IDGenerator struct{}

// Next implements IDSource interface.
func (IDGenerator) Next(requester util.Uint160, nonce uint64, entropy []byte) util.Uint256 {
	buf := make([]byte, util.Uint160Size+8+len(entropy))
	copy(buf, requester.BytesBE())
	binary.LittleEndian.PutUint64(buf[util.Uint160Size:], nonce)
	copy(buf[util.Uint160Size+8:], entropy)
	return hash.DoubleSha256(buf)
}
