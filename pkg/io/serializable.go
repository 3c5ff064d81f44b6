/*
Package io implements the binary codec used to persist bridge records.
Integers are little-endian, lengths are prefixed with a variable-length
integer. Errors are sticky: once Err is set every following call is a no-op,
so only the outermost caller has to check it.
*/
package io

// Serializable is implemented by everything stored in the database.
type Serializable interface {
	DecodeBinary(*BinReader)
	EncodeBinary(*BinWriter)
}
