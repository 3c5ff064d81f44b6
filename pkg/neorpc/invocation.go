package neorpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nspcc-dev/oracle-bridge/pkg/config/netmode"
	"github.com/nspcc-dev/oracle-bridge/pkg/core/operation"
	"github.com/nspcc-dev/oracle-bridge/pkg/crypto/keys"
	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// ErrInvalidSignature is returned when SignedInvocation doesn't carry a valid
// signature for the method and parameters.
var ErrInvalidSignature = errors.New("invalid invocation signature")

type (
	// SignedInvocation is the only parameter of every state-changing bridge
	// call. The caller identity is the script hash of PublicKey.
	SignedInvocation struct {
		Nonce     uint64          `json:"nonce"`
		Params    json.RawMessage `json:"params"`
		PublicKey *keys.PublicKey `json:"publickey"`
		Signature []byte          `json:"signature"`
	}

	// QueryParams are the parameters of registerquery and per-operation
	// calls. Operation is only used by registerquery.
	QueryParams struct {
		Operation   *operation.Code `json:"operation,omitempty"`
		PathParams  Params          `json:"pathparams"`
		QueryParams Params          `json:"queryparams"`
		Options     string          `json:"options"`
	}

	// FulfillParams are the parameters of a fulfill call.
	FulfillParams struct {
		ID        util.Uint256   `json:"id"`
		Operation operation.Code `json:"operation"`
		Status    uint32         `json:"status"`
		Response  []byte         `json:"response"`
	}

	// Params is a sequence of query parameters (strings and integers) as
	// they're passed via JSON. Integers are decoded as int64 or uint64.
	Params []any
)

// SignedData returns the data covered by the invocation signature:
// varstring(method) || LE64(nonce) || params.
func SignedData(method string, nonce uint64, params []byte) []byte {
	w := io.NewBufBinWriter()
	w.WriteString(method)
	w.WriteU64LE(nonce)
	w.WriteBytes(params)
	return w.Bytes()
}

// NewSignedInvocation marshals params and signs them for the given network
// and method.
func NewSignedInvocation(magic netmode.Magic, method string, nonce uint64, params any, priv *keys.PrivateKey) (*SignedInvocation, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	return &SignedInvocation{
		Nonce:     nonce,
		Params:    raw,
		PublicKey: priv.PublicKey(),
		Signature: priv.SignNet(uint32(magic), SignedData(method, nonce, raw)),
	}, nil
}

// Verify checks the invocation signature and returns the caller identity.
func (s *SignedInvocation) Verify(magic netmode.Magic, method string) (util.Uint160, error) {
	if s.PublicKey == nil {
		return util.Uint160{}, fmt.Errorf("%w: no public key", ErrInvalidSignature)
	}
	if !s.PublicKey.VerifyNet(uint32(magic), s.Signature, SignedData(method, s.Nonce, s.Params)) {
		return util.Uint160{}, ErrInvalidSignature
	}
	return s.PublicKey.GetScriptHash(), nil
}

// DecodeParams unmarshals signed parameters into v rejecting unknown fields.
func (s *SignedInvocation) DecodeParams(v any) error {
	dec := json.NewDecoder(bytes.NewReader(s.Params))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// MarshalJSON implements the json.Marshaler interface. Nil Params is an
// empty array.
func (p Params) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]any(p))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	res := make(Params, 0, len(raw))
	for i := range raw {
		v, err := unmarshalParam(raw[i])
		if err != nil {
			return fmt.Errorf("param %d: %w", i, err)
		}
		res = append(res, v)
	}
	*p = res
	return nil
}

func unmarshalParam(data json.RawMessage) (any, error) {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&n); err != nil {
		return nil, errors.New("not a string or integer")
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return i, nil
	}
	u, err := strconv.ParseUint(n.String(), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("not a 64-bit integer: %s", n)
	}
	return u, nil
}
