package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxArraySize is the default limit for length-prefixed data.
const MaxArraySize = 0x1000000

// ErrTrailingData is returned by Done when the buffer has unread bytes.
var ErrTrailingData = errors.New("trailing data")

// BinReader wraps an io.Reader keeping the first read error. Getters return
// zero values once Err is set.
type BinReader struct {
	r   io.Reader
	tmp [8]byte
	Err error
}

// NewBinReaderFromIO makes a BinReader from io.Reader.
func NewBinReaderFromIO(ior io.Reader) *BinReader {
	return &BinReader{r: ior}
}

// NewBinReaderFromBuf makes a BinReader from a byte slice.
func NewBinReaderFromBuf(b []byte) *BinReader {
	return NewBinReaderFromIO(bytes.NewReader(b))
}

// Len returns the number of unread bytes for buffer-backed readers and -1
// for everything else.
func (r *BinReader) Len() int {
	if br, ok := r.r.(*bytes.Reader); ok {
		return br.Len()
	}
	return -1
}

// ReadBytes fills buf completely.
func (r *BinReader) ReadBytes(buf []byte) {
	if r.Err == nil {
		_, r.Err = io.ReadFull(r.r, buf)
	}
}

func (r *BinReader) fill(n int) []byte {
	r.ReadBytes(r.tmp[:n])
	if r.Err != nil {
		clear(r.tmp[:n])
	}
	return r.tmp[:n]
}

// ReadB reads a single byte.
func (r *BinReader) ReadB() byte {
	return r.fill(1)[0]
}

// ReadU32LE reads a little-endian uint32.
func (r *BinReader) ReadU32LE() uint32 {
	return binary.LittleEndian.Uint32(r.fill(4))
}

// ReadU64LE reads a little-endian uint64.
func (r *BinReader) ReadU64LE() uint64 {
	return binary.LittleEndian.Uint64(r.fill(8))
}

// ReadVarUint reads an integer written by WriteVarUint.
func (r *BinReader) ReadVarUint() uint64 {
	switch b := r.ReadB(); b {
	case 0xfd:
		return uint64(binary.LittleEndian.Uint16(r.fill(2)))
	case 0xfe:
		return uint64(r.ReadU32LE())
	case 0xff:
		return r.ReadU64LE()
	default:
		return uint64(b)
	}
}

// ReadVarBytes reads a length-prefixed byte slice. The length is limited by
// maxSize (MaxArraySize if omitted).
func (r *BinReader) ReadVarBytes(maxSize ...int) []byte {
	limit := MaxArraySize
	if len(maxSize) != 0 {
		limit = maxSize[0]
	}
	n := r.ReadVarUint()
	if r.Err != nil {
		return []byte{}
	}
	if n > uint64(limit) {
		r.Err = fmt.Errorf("byte-slice is too big (%d > %d)", n, limit)
		return nil
	}
	b := make([]byte, n)
	r.ReadBytes(b)
	return b
}

// ReadString reads a length-prefixed string.
func (r *BinReader) ReadString(maxSize ...int) string {
	return string(r.ReadVarBytes(maxSize...))
}

// Done sets ErrTrailingData if a buffer-backed reader wasn't fully consumed.
func (r *BinReader) Done() {
	if r.Err == nil && r.Len() > 0 {
		r.Err = ErrTrailingData
	}
}
