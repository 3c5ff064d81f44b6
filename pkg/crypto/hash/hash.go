package hash

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // Address hashing.
)

// Sha256 hashes the incoming byte slice
// using the sha256 algorithm.
func Sha256(data []byte) util.Uint256 {
	hash := sha256.Sum256(data)
	return hash
}

// DoubleSha256 performs sha256 twice on the given data.
func DoubleSha256(data []byte) util.Uint256 {
	var hash util.Uint256

	h1 := Sha256(data)
	hash = Sha256(h1[:])
	return hash
}

// RipeMD160 performs the RIPEMD160 hash algorithm
// on the given data.
func RipeMD160(data []byte) util.Uint160 {
	var hash util.Uint160
	hasher := ripemd160.New()
	_, _ = hasher.Write(data)

	hasher.Sum(hash[:0])
	return hash
}

// Hash160 performs sha256 and then ripemd160
// on the given data.
func Hash160(data []byte) util.Uint160 {
	h1 := sha256.Sum256(data)
	return RipeMD160(h1[:])
}

// Checksum returns the checksum for a given piece of data
// using DoubleSha256 as the hash algorithm. It returns the
// first 4 bytes of the resulting slice.
func Checksum(data []byte) []byte {
	hash := DoubleSha256(data)
	return hash[:4]
}

// NetSha256 calculates a network-specific hash of the data: sha256 of the
// little-endian network magic followed by sha256 of the data. Signed RPC
// invocations are signed over it so that a signature for one network can't be
// replayed on another.
func NetSha256(net uint32, data []byte) util.Uint256 {
	var buf [4 + util.Uint256Size]byte

	binary.LittleEndian.PutUint32(buf[:], net)
	h := sha256.Sum256(data)
	copy(buf[4:], h[:])
	return Sha256(buf[:])
}
