package hash

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSha256(t *testing.T) {
	input := []byte("hello")
	data := Sha256(input)

	expected := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	actual := hex.EncodeToString(data[:])

	assert.Equal(t, expected, actual)
}

func TestDoubleSha256(t *testing.T) {
	input := []byte("hello")
	data := DoubleSha256(input)

	firstSha := Sha256(input)
	doubleSha := Sha256(firstSha[:])
	expected := hex.EncodeToString(doubleSha[:])

	actual := hex.EncodeToString(data[:])
	assert.Equal(t, expected, actual)
}

func TestRipeMD160(t *testing.T) {
	input := []byte("hello")
	data := RipeMD160(input)

	expected := "108f07b8382412612c048d07d13f814118445acd"
	actual := hex.EncodeToString(data[:])
	assert.Equal(t, expected, actual)
}

func TestHash160(t *testing.T) {
	input := "02cccafb41b220cab63fd77108d2d1ebcffa32be26da29a04dca4996afce5f75db"
	publicKeyBytes, _ := hex.DecodeString(input)
	data := Hash160(publicKeyBytes)

	expected := "c8e2b685cc70ec96743b55beb9449782f8f775d8"
	actual := hex.EncodeToString(data[:])
	assert.Equal(t, expected, actual)
}

func TestChecksum(t *testing.T) {
	data := []byte("hello")
	h := DoubleSha256(data)
	require.Equal(t, h[:4], Checksum(data))
}

func TestNetSha256(t *testing.T) {
	data := []byte("payload")
	a := NetSha256(1, data)
	b := NetSha256(2, data)
	require.NotEqual(t, a, b)
	require.Equal(t, a, NetSha256(1, data))
}
