package format

import "encoding/binary"

// Binary encoding utilities for the owner back-reference.
//
// The back-reference is written byte-wise in little-endian order rather than
// through a typed store, so it is valid at any address a strategy hands out,
// including memory the Go collector does not manage.

// PutUintptr writes v to b at off using PtrSize bytes.
func PutUintptr(b []byte, off int, v uintptr) {
	if PtrSize == 8 {
		PutU64(b, off, uint64(v))
		return
	}
	PutU32(b, off, uint32(v))
}

// ReadUintptr reads a PtrSize value from b at off.
func ReadUintptr(b []byte, off int) uintptr {
	if PtrSize == 8 {
		return uintptr(ReadU64(b, off))
	}
	return uintptr(ReadU32(b, off))
}

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
