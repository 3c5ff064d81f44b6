package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/hash"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
	"github.com/nspcc-dev/rfc6979"
)

const privateKeyLen = 32

// PrivateKey is a secp256r1 key signing bridge invocations.
type PrivateKey struct {
	ecdsa.PrivateKey
}

// NewPrivateKey generates a random key.
func NewPrivateKey() (*PrivateKey, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{*priv}, nil
}

// NewPrivateKeyFromHex decodes a hex-encoded 32-byte scalar.
func NewPrivateKeyFromHex(str string) (*PrivateKey, error) {
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, err
	}
	defer clear(b)
	return NewPrivateKeyFromBytes(b)
}

// NewPrivateKeyFromBytes makes a key from a 32-byte big-endian scalar.
func NewPrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != privateKeyLen {
		return nil, fmt.Errorf("invalid byte length: expected %d bytes got %d", privateKeyLen, len(b))
	}
	c := elliptic.P256()
	d := new(big.Int).SetBytes(b)
	if d.Sign() == 0 || d.Cmp(c.Params().N) >= 0 {
		return nil, errors.New("invalid private key value")
	}
	x, y := c.ScalarBaseMult(b)
	return &PrivateKey{ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: c, X: x, Y: y},
		D:         d,
	}}, nil
}

// NewPrivateKeyFromWIF decodes a compressed or uncompressed WIF.
func NewPrivateKeyFromWIF(wif string) (*PrivateKey, error) {
	w, err := WIFDecode(wif, WIFVersion)
	if err != nil {
		return nil, err
	}
	return w.PrivateKey, nil
}

// PublicKey returns the corresponding public key.
func (p *PrivateKey) PublicKey() *PublicKey {
	pub := PublicKey(p.PrivateKey.PublicKey)
	return &pub
}

// WIF returns the key in compressed wallet import format.
func (p *PrivateKey) WIF() string {
	w, err := WIFEncode(p.Bytes(), WIFVersion, true)
	if err != nil {
		// Bytes always has the proper length.
		panic(err)
	}
	return w
}

// Address returns the address of the key's verification script.
func (p *PrivateKey) Address() string {
	return p.PublicKey().Address()
}

// GetScriptHash returns the identity the bridge sees for this key.
func (p *PrivateKey) GetScriptHash() util.Uint160 {
	return p.PublicKey().GetScriptHash()
}

// Sign returns a deterministic (RFC 6979) signature of SHA256(data) as
// 64 bytes of r||s.
func (p *PrivateKey) Sign(data []byte) []byte {
	return p.SignHash(sha256.Sum256(data))
}

// SignHash signs a precomputed digest.
func (p *PrivateKey) SignHash(digest util.Uint256) []byte {
	r, s := rfc6979.SignECDSA(&p.PrivateKey, digest[:], sha256.New)
	sig := make([]byte, 2*privateKeyLen)
	r.FillBytes(sig[:privateKeyLen])
	s.FillBytes(sig[privateKeyLen:])
	return sig
}

// SignNet signs data bound to the network magic, see hash.NetSha256.
func (p *PrivateKey) SignNet(net uint32, data []byte) []byte {
	return p.SignHash(hash.NetSha256(net, data))
}

// String returns the hex-encoded scalar.
func (p *PrivateKey) String() string {
	return hex.EncodeToString(p.Bytes())
}

// Bytes returns the 32-byte big-endian scalar.
func (p *PrivateKey) Bytes() []byte {
	return p.D.FillBytes(make([]byte, privateKeyLen))
}
