package params

import (
	"encoding/hex"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripStrings(t *testing.T) {
	testCases := [][]string{
		{},
		{"closest"},
		{"p", "55403"},
		{"seattle,wa"},
		{"", "юникод", "a b c"},
	}
	for _, tc := range testCases {
		b, err := EncodeStrings(tc)
		require.NoError(t, err)

		actual, err := DecodeStrings(b)
		require.NoError(t, err)
		require.Equal(t, tc, actual)
	}
}

func TestRoundTripMixed(t *testing.T) {
	in := []any{"limit", int64(10), int64(-5), uint64(math.MaxUint64), int64(math.MinInt64)}
	b, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(b)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEncodeNormalizesIntegers(t *testing.T) {
	b1, err := Encode([]any{1, int8(1), uint16(1), big.NewInt(1)})
	require.NoError(t, err)
	b2, err := Encode([]any{int64(1), int64(1), int64(1), int64(1)})
	require.NoError(t, err)
	require.Equal(t, b2, b1)

	out, err := Decode(b1)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), int64(1), int64(1), int64(1)}, out)
}

func TestEncodeEmpty(t *testing.T) {
	for _, in := range [][]any{nil, {}} {
		b, err := Encode(in)
		require.NoError(t, err)
		require.Equal(t, []byte{0x80}, b)

		out, err := Decode(b)
		require.NoError(t, err)
		require.NotNil(t, out)
		require.Len(t, out, 0)
	}
	b, err := EncodeStrings(nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0x80}, b)
}

func TestEncodeKnownBytes(t *testing.T) {
	b, err := EncodeStrings([]string{"p", "55403"})
	require.NoError(t, err)
	require.Equal(t, "826170653535343033", hex.EncodeToString(b))
}

func TestEncodeUnsupported(t *testing.T) {
	for _, in := range []any{1.5, []byte{1}, nil, true, map[string]string{}, new(big.Int).Lsh(big.NewInt(1), 70), (*big.Int)(nil), "\xff\xfe"} {
		_, err := Encode([]any{"ok", in})
		require.ErrorIs(t, err, ErrUnsupportedType)
	}
	_, err := EncodeStrings([]string{"ok", "caf\xe9"})
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDecodeMalformed(t *testing.T) {
	testCases := map[string]string{
		"empty":         "",
		"null":          "f6",
		"not an array":  "6161",
		"map":           "a0",
		"float element": "81f93c00",
		"byte string":   "8141ff",
		"nested array":  "8180",
		"tag":           "81c16161",
		"trailing data": "8061",
		"truncated":     "8261",
		"bool":          "81f5",
		"indefinite":    "9fff",
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			b, err := hex.DecodeString(tc)
			require.NoError(t, err)

			_, err = Decode(b)
			require.ErrorIs(t, err, ErrCodec)
			var cErr *CodecError
			require.ErrorAs(t, err, &cErr)
		})
	}
}

func TestDecodeStringsRejectsIntegers(t *testing.T) {
	b, err := Encode([]any{"a", 1})
	require.NoError(t, err)

	_, err = DecodeStrings(b)
	require.ErrorIs(t, err, ErrCodec)
}

func TestStrings(t *testing.T) {
	require.Equal(t, []string{"p", "55403", "-1"}, Strings([]any{"p", int64(55403), int64(-1)}))
}
