package keys

import (
	"crypto/aes"
	"errors"
)

var errNotFullBlocks = errors.New("input is not a multiple of the block size")

// aesEncrypt encrypts src with the given key block by block (ECB).
func aesEncrypt(src, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(src)%aes.BlockSize != 0 {
		return nil, errNotFullBlocks
	}

	out := make([]byte, len(src))
	for i := 0; i < len(src); i += aes.BlockSize {
		block.Encrypt(out[i:i+aes.BlockSize], src[i:i+aes.BlockSize])
	}
	return out, nil
}

// aesDecrypt decrypts crypted with the given key block by block (ECB).
func aesDecrypt(crypted, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(crypted)%aes.BlockSize != 0 {
		return nil, errNotFullBlocks
	}

	out := make([]byte, len(crypted))
	for i := 0; i < len(crypted); i += aes.BlockSize {
		block.Decrypt(out[i:i+aes.BlockSize], crypted[i:i+aes.BlockSize])
	}
	return out, nil
}
