/*
Package testserdes contains round-trip helpers for state serialization tests.
*/
package testserdes

import (
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/oracle-bridge/pkg/io"
	"github.com/stretchr/testify/require"
)

// Serializable is a pointer to T implementing io.Serializable.
type Serializable[T any] interface {
	*T
	io.Serializable
}

// MarshalUnmarshalJSON checks that expected stays the same after a JSON
// round trip into a fresh value.
func MarshalUnmarshalJSON[T any](t testing.TB, expected *T) {
	data, err := json.Marshal(expected)
	require.NoError(t, err)
	actual := new(T)
	require.NoError(t, json.Unmarshal(data, actual))
	require.Equal(t, expected, actual)
}

// EncodeDecodeBinary checks that expected stays the same after a binary
// round trip into a fresh value.
func EncodeDecodeBinary[T any, P Serializable[T]](t testing.TB, expected P) {
	data, err := EncodeBinary(expected)
	require.NoError(t, err)
	actual := P(new(T))
	require.NoError(t, DecodeBinary(data, actual))
	require.Equal(t, expected, actual)
}

// EncodeBinary serializes a to a byte slice.
func EncodeBinary(a io.Serializable) ([]byte, error) {
	w := io.NewBufBinWriter()
	a.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		return nil, w.Err
	}
	return w.Bytes(), nil
}

// DecodeBinary deserializes a from a byte slice. Trailing bytes are an error.
func DecodeBinary(data []byte, a io.Serializable) error {
	r := io.NewBinReaderFromBuf(data)
	a.DecodeBinary(r)
	r.Done()
	return r.Err
}
