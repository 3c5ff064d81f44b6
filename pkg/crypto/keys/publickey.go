package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/hash"
	"github.com/nspcc-dev/oracle-bridge/pkg/encoding/address"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// coordLen is the number of bytes in serialized X or Y coordinate.
const coordLen = 32

// SignatureLen is the length of a standard signature for 256-bit EC key.
const SignatureLen = 64

// PublicKeySize is the length of a compressed public key.
const PublicKeySize = 33

// Verification script parts: PUSHDATA1 33 <key> SYSCALL System.Crypto.CheckSig.
const (
	opPushData1 = 0x0C
	opSyscall   = 0x41
)

var checkSigInteropID = []byte{0x56, 0xe7, 0xb3, 0x27}

// PublicKey represents a public key and provides a high level
// API around the X/Y point.
type PublicKey ecdsa.PublicKey

// Equal returns true in case public keys are equal.
func (p *PublicKey) Equal(key *PublicKey) bool {
	return p.Cmp(key) == 0
}

// Cmp compares two keys.
func (p *PublicKey) Cmp(key *PublicKey) int {
	if p.X == nil || key.X == nil {
		switch {
		case p.X == nil && key.X == nil:
			return 0
		case p.X == nil:
			return -1
		default:
			return 1
		}
	}
	xCmp := p.X.Cmp(key.X)
	if xCmp != 0 {
		return xCmp
	}
	return p.Y.Cmp(key.Y)
}

// NewPublicKeyFromString returns a public key created from the
// given hex string public key representation in compressed form.
func NewPublicKeyFromString(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromBytes(b)
}

// NewPublicKeyFromBytes returns a public key created from b using the
// secp256r1 curve.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pubKey := new(PublicKey)
	if err := pubKey.DecodeBytes(b); err != nil {
		return nil, err
	}
	return pubKey, nil
}

// Bytes returns the byte array representation of the public key in
// compressed form (33 bytes with 0x02 or 0x03 prefix).
func (p *PublicKey) Bytes() []byte {
	if p.IsInfinity() {
		return []byte{0x00}
	}
	return elliptic.MarshalCompressed(elliptic.P256(), p.X, p.Y)
}

// UncompressedBytes returns the byte array representation of the public key
// in uncompressed form (65 bytes with 0x04 prefix).
func (p *PublicKey) UncompressedBytes() []byte {
	if p.IsInfinity() {
		return []byte{0x00}
	}
	result := make([]byte, 1+2*coordLen)
	result[0] = 0x04
	p.X.FillBytes(result[1 : 1+coordLen])
	p.Y.FillBytes(result[1+coordLen:])
	return result
}

// DecodeBytes decodes a PublicKey from the given slice of bytes.
func (p *PublicKey) DecodeBytes(data []byte) error {
	b := io.NewBinReaderFromBuf(data)
	p.DecodeBinary(b)
	if b.Err != nil {
		return b.Err
	}

	if b.Len() != 0 {
		return errors.New("extra data")
	}
	return nil
}

// DecodeBinary decodes a PublicKey from the given BinReader.
func (p *PublicKey) DecodeBinary(r *io.BinReader) {
	var x, y *big.Int

	prefix := r.ReadB()
	if r.Err != nil {
		return
	}

	curve := elliptic.P256()
	switch prefix {
	case 0x00:
		// Infinity, initialized to nil.
		p.X, p.Y = nil, nil
		return
	case 0x02, 0x03:
		data := make([]byte, 1+coordLen)
		data[0] = prefix
		r.ReadBytes(data[1:])
		if r.Err != nil {
			return
		}
		x, y = elliptic.UnmarshalCompressed(curve, data)
		if x == nil {
			r.Err = errors.New("encoded point is not on the P256 curve")
			return
		}
	case 0x04:
		data := make([]byte, 1+2*coordLen)
		data[0] = prefix
		r.ReadBytes(data[1:])
		if r.Err != nil {
			return
		}
		x = new(big.Int).SetBytes(data[1 : 1+coordLen])
		y = new(big.Int).SetBytes(data[1+coordLen:])
		if !curve.IsOnCurve(x, y) {
			r.Err = errors.New("encoded point is not on the P256 curve")
			return
		}
	default:
		r.Err = fmt.Errorf("invalid prefix %d", prefix)
		return
	}
	p.Curve = curve
	p.X, p.Y = x, y
}

// EncodeBinary encodes a PublicKey to the given BinWriter.
func (p *PublicKey) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.Bytes())
}

// GetVerificationScript returns the verification script for the public key:
// a compressed key push followed by a CheckSig syscall.
func (p *PublicKey) GetVerificationScript() []byte {
	b := p.Bytes()
	script := make([]byte, 0, 2+len(b)+1+len(checkSigInteropID))
	script = append(script, opPushData1, byte(len(b)))
	script = append(script, b...)
	script = append(script, opSyscall)
	script = append(script, checkSigInteropID...)

	return script
}

// GetScriptHash returns a Hash160 of verification script for the key.
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.GetVerificationScript())
}

// Address returns a base58-encoded address based on the key hash.
func (p *PublicKey) Address() string {
	return address.Uint160ToString(p.GetScriptHash())
}

// Verify returns true if the signature is valid and corresponds
// to the hash and public key.
func (p *PublicKey) Verify(signature []byte, hash []byte) bool {
	if p.X == nil || p.Y == nil || len(signature) != SignatureLen {
		return false
	}
	rBytes := new(big.Int).SetBytes(signature[0:32])
	sBytes := new(big.Int).SetBytes(signature[32:64])
	pk := ecdsa.PublicKey{Curve: elliptic.P256(), X: p.X, Y: p.Y}
	return ecdsa.Verify(&pk, hash, rBytes, sBytes)
}

// VerifyNet verifies a signature made with PrivateKey.SignNet.
func (p *PublicKey) VerifyNet(net uint32, signature []byte, data []byte) bool {
	h := hash.NetSha256(net, data)
	return p.Verify(signature, h[:])
}

// IsInfinity checks if the key is infinite (null, basically).
func (p *PublicKey) IsInfinity() bool {
	return p.X == nil && p.Y == nil
}

// StringCompressed returns the hex string representation of the public key
// in its compressed form.
func (p *PublicKey) StringCompressed() string {
	return hex.EncodeToString(p.Bytes())
}

// MarshalJSON implements the json.Marshaler interface.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(p.Bytes()))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	return p.DecodeBytes(b)
}
