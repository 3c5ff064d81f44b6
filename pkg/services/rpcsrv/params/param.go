package params

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/oracle-bridge/pkg/neorpc"
	"github.com/nspcc-dev/oracle-bridge/pkg/util"
)

// Param represents a param either passed to the server or to be sent to a
// server using the client.
type Param struct {
	json.RawMessage
	cache any
}

var (
	jsonNullBytes       = []byte("null")
	errMissingParameter = errors.New("parameter is missing")
	errNotAString       = errors.New("not a string")
	errNotAnInt         = errors.New("not an integer")
)

func (p Param) String() string {
	str, _ := p.GetString()
	return str
}

// IsNull returns whether the parameter represents JSON nil value.
func (p *Param) IsNull() bool {
	return bytes.Equal(p.RawMessage, jsonNullBytes)
}

// GetStringStrict returns a string value of the parameter.
func (p *Param) GetStringStrict() (string, error) {
	if p == nil {
		return "", errMissingParameter
	}
	if p.IsNull() {
		return "", errNotAString
	}
	if p.cache == nil {
		var s string
		err := json.Unmarshal(p.RawMessage, &s)
		if err != nil {
			return "", errNotAString
		}
		p.cache = s
	}
	if s, ok := p.cache.(string); ok {
		return s, nil
	}
	return "", errNotAString
}

// GetString returns a string value of the parameter or tries to cast the
// parameter to a string value.
func (p *Param) GetString() (string, error) {
	if p == nil {
		return "", errMissingParameter
	}
	if p.IsNull() {
		return "", errNotAString
	}
	if p.cache == nil {
		var s string
		err := json.Unmarshal(p.RawMessage, &s)
		if err == nil {
			p.cache = s
		} else {
			var i int64
			err = json.Unmarshal(p.RawMessage, &i)
			if err != nil {
				return "", errNotAString
			}
			p.cache = i
		}
	}
	switch t := p.cache.(type) {
	case string:
		return t, nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	default:
		return "", errNotAString
	}
}

// GetInt returns an int value of the parameter or tries to cast the
// parameter to an int value.
func (p *Param) GetInt() (int, error) {
	if p == nil {
		return 0, errMissingParameter
	}
	if p.IsNull() {
		return 0, errNotAnInt
	}
	if p.cache == nil {
		var i int64
		err := json.Unmarshal(p.RawMessage, &i)
		if err == nil {
			p.cache = i
		} else {
			var s string
			err = json.Unmarshal(p.RawMessage, &s)
			if err != nil {
				return 0, errNotAnInt
			}
			p.cache = s
		}
	}
	switch t := p.cache.(type) {
	case int64:
		if t != int64(int(t)) {
			return 0, errNotAnInt
		}
		return int(t), nil
	case string:
		i, err := strconv.Atoi(t)
		if err != nil {
			return 0, errNotAnInt
		}
		return i, nil
	default:
		return 0, errNotAnInt
	}
}

// GetUint256 returns a Uint256 value of the parameter. An optional "0x"
// prefix is allowed.
func (p *Param) GetUint256() (util.Uint256, error) {
	s, err := p.GetString()
	if err != nil {
		return util.Uint256{}, err
	}

	return util.Uint256DecodeStringLE(strings.TrimPrefix(s, "0x"))
}

// GetBytesBase64 returns a []byte value of the parameter if
// it is a base64-encoded string.
func (p *Param) GetBytesBase64() ([]byte, error) {
	s, err := p.GetString()
	if err != nil {
		return nil, err
	}

	return base64.StdEncoding.DecodeString(s)
}

// GetSignedInvocation returns a neorpc.SignedInvocation value of the
// parameter. Unknown fields are rejected.
func (p *Param) GetSignedInvocation() (*neorpc.SignedInvocation, error) {
	if p == nil {
		return nil, errMissingParameter
	}
	if p.IsNull() {
		return nil, errors.New("not a signed invocation")
	}
	inv := new(neorpc.SignedInvocation)
	dec := json.NewDecoder(bytes.NewReader(p.RawMessage))
	dec.DisallowUnknownFields()
	if err := dec.Decode(inv); err != nil {
		return nil, fmt.Errorf("not a signed invocation: %w", err)
	}
	return inv, nil
}
