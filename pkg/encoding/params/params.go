/*
Package params implements the codec for query path and query parameters.

Parameters are ordered sequences of strings and integers carried in Log
events. They are serialized as a single CBOR (RFC 8949) array using the core
deterministic encoding, so equal sequences always produce equal bytes and an
empty sequence is the empty array (0x80), distinguishable from absent data.
*/
package params

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

var (
	// ErrCodec is matched by every decoding error (see CodecError).
	ErrCodec = errors.New("malformed parameters")
	// ErrUnsupportedType is returned by Encode for elements that are neither
	// strings nor integers.
	ErrUnsupportedType = errors.New("unsupported parameter type")
)

// CodecError is returned when the bytes given to Decode are not a valid
// parameter sequence.
type CodecError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *CodecError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCodec, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCodec, e.Reason)
}

// Unwrap returns the underlying CBOR error if any.
func (e *CodecError) Unwrap() error {
	return e.Err
}

// Is makes every CodecError match ErrCodec.
func (e *CodecError) Is(target error) bool {
	return target == ErrCodec
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels: 4,
		IndefLength:     cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode serializes the given sequence. Elements can be strings, any Go
// integer or *big.Int fitting into 64 bits. Nil and empty sequences both
// produce an empty array.
func Encode(ps []any) ([]byte, error) {
	items := make([]any, 0, len(ps))
	for i, p := range ps {
		v, err := normalize(p)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return encMode.Marshal(items)
}

// EncodeStrings is Encode for a sequence of strings.
func EncodeStrings(ss []string) ([]byte, error) {
	ps := make([]any, len(ss))
	for i := range ss {
		ps[i] = ss[i]
	}
	return Encode(ps)
}

func normalize(p any) (any, error) {
	switch v := p.(type) {
	case string:
		if !utf8.ValidString(v) {
			return nil, fmt.Errorf("%w: invalid UTF-8 string", ErrUnsupportedType)
		}
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case uint64:
		return v, nil
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil *big.Int", ErrUnsupportedType)
		}
		if v.IsInt64() {
			return v.Int64(), nil
		}
		if v.IsUint64() {
			return v.Uint64(), nil
		}
		return nil, fmt.Errorf("%w: integer %s doesn't fit into 64 bits", ErrUnsupportedType, v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, p)
	}
}

// Decode deserializes a parameter sequence. Strings are returned as string,
// integers as int64 (or uint64 for values above math.MaxInt64). The result is
// never nil on success.
func Decode(b []byte) ([]any, error) {
	var top any

	if len(b) == 0 {
		return nil, &CodecError{Reason: "empty input"}
	}
	err := decMode.Unmarshal(b, &top)
	if err != nil {
		return nil, &CodecError{Reason: "invalid CBOR", Err: err}
	}
	arr, ok := top.([]any)
	if !ok {
		return nil, &CodecError{Reason: fmt.Sprintf("expected array, got %T", top)}
	}
	res := make([]any, 0, len(arr))
	for i, item := range arr {
		switch v := item.(type) {
		case string:
			res = append(res, v)
		case int64:
			res = append(res, v)
		case uint64:
			if v <= math.MaxInt64 {
				res = append(res, int64(v))
			} else {
				res = append(res, v)
			}
		default:
			return nil, &CodecError{Reason: fmt.Sprintf("element %d: unexpected %T", i, item)}
		}
	}
	return res, nil
}

// DecodeStrings is Decode for sequences that must consist of strings only.
func DecodeStrings(b []byte) ([]string, error) {
	ps, err := Decode(b)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(ps))
	for i := range ps {
		s, ok := ps[i].(string)
		if !ok {
			return nil, &CodecError{Reason: fmt.Sprintf("element %d: expected string, got %T", i, ps[i])}
		}
		res[i] = s
	}
	return res, nil
}

// Strings converts a decoded sequence to its string representation, used
// when building URLs from parameters.
func Strings(ps []any) []string {
	res := make([]string, len(ps))
	for i := range ps {
		res[i] = fmt.Sprint(ps[i])
	}
	return res
}
