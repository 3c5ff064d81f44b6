package io

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrDrained is returned on an attempt to use an already drained write buffer.
var ErrDrained = errors.New("buffer already drained")

// BinWriter wraps an io.Writer keeping the first write error.
type BinWriter struct {
	w   io.Writer
	Err error
	tmp [9]byte
}

// NewBinWriterFromIO makes a BinWriter from io.Writer.
func NewBinWriterFromIO(iow io.Writer) *BinWriter {
	return &BinWriter{w: iow}
}

// WriteBytes writes b as is.
func (w *BinWriter) WriteBytes(b []byte) {
	if w.Err == nil {
		_, w.Err = w.w.Write(b)
	}
}

// WriteB writes a single byte.
func (w *BinWriter) WriteB(b byte) {
	w.tmp[0] = b
	w.WriteBytes(w.tmp[:1])
}

// WriteU32LE writes a little-endian uint32.
func (w *BinWriter) WriteU32LE(v uint32) {
	w.WriteBytes(binary.LittleEndian.AppendUint32(w.tmp[:0], v))
}

// WriteU64LE writes a little-endian uint64.
func (w *BinWriter) WriteU64LE(v uint64) {
	w.WriteBytes(binary.LittleEndian.AppendUint64(w.tmp[:0], v))
}

// WriteVarUint writes v using 1, 3, 5 or 9 bytes depending on its value.
func (w *BinWriter) WriteVarUint(v uint64) {
	w.WriteBytes(AppendVarUint(w.tmp[:0], v))
}

// AppendVarUint appends the variable-length encoding of v to dst.
func AppendVarUint(dst []byte, v uint64) []byte {
	switch {
	case v < 0xfd:
		return append(dst, byte(v))
	case v <= 0xffff:
		return binary.LittleEndian.AppendUint16(append(dst, 0xfd), uint16(v))
	case v <= 0xffffffff:
		return binary.LittleEndian.AppendUint32(append(dst, 0xfe), uint32(v))
	default:
		return binary.LittleEndian.AppendUint64(append(dst, 0xff), v)
	}
}

// WriteVarBytes writes b prefixed with its length.
func (w *BinWriter) WriteVarBytes(b []byte) {
	w.WriteVarUint(uint64(len(b)))
	w.WriteBytes(b)
}

// WriteString writes s prefixed with its length.
func (w *BinWriter) WriteString(s string) {
	w.WriteVarUint(uint64(len(s)))
	if w.Err == nil {
		_, w.Err = io.WriteString(w.w, s)
	}
}

// BufBinWriter is a BinWriter over its own buffer.
type BufBinWriter struct {
	*BinWriter
	buf bytes.Buffer
}

// NewBufBinWriter makes a BufBinWriter with an empty buffer.
func NewBufBinWriter() *BufBinWriter {
	b := new(BufBinWriter)
	b.BinWriter = NewBinWriterFromIO(&b.buf)
	return b
}

// Len returns the number of bytes written so far.
func (bw *BufBinWriter) Len() int {
	return bw.buf.Len()
}

// Bytes returns the buffer contents, nil if any write failed. The writer
// can't be used after this call until Reset.
func (bw *BufBinWriter) Bytes() []byte {
	if bw.Err != nil {
		return nil
	}
	bw.Err = ErrDrained
	return bw.buf.Bytes()
}

// Reset clears both the buffer and the error. Slices returned by Bytes share
// memory with the buffer, so copy them before Reset if they're still needed.
func (bw *BufBinWriter) Reset() {
	bw.Err = nil
	bw.buf.Reset()
}
