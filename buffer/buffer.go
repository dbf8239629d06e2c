/*
Package buffer provides bounds-checked little-endian access to a ROM image
held in memory.

Every higher-level structure in this module is a view into one Buffer; the
Buffer is the only thing that is ever mutated, and its length never changes.
*/
package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var errBounds = errors.New("buffer: access out of bounds")

// Buffer owns the complete file content for one operation.
type Buffer struct {
	b []byte
}

// New wraps b without copying it.
func New(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Len returns the total length in bytes.
func (b *Buffer) Len() int {
	return len(b.b)
}

// Bytes returns the underlying slice.
func (b *Buffer) Bytes() []byte {
	return b.b
}

// View returns the byte window [off, off+n) and whether it is in bounds.
func (b *Buffer) View(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off+n > len(b.b) {
		return nil, false
	}
	return b.b[off : off+n], true
}

// Uint16 reads a little-endian u16 at off.
func (b *Buffer) Uint16(off int) (uint16, bool) {
	if off < 0 || off+2 > len(b.b) {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b.b[off:]), true
}

// Int16 reads a little-endian signed 16-bit value at off.
func (b *Buffer) Int16(off int) (int16, bool) {
	v, ok := b.Uint16(off)
	return int16(v), ok
}

// Uint32 reads a little-endian u32 at off.
func (b *Buffer) Uint32(off int) (uint32, bool) {
	if off < 0 || off+4 > len(b.b) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b.b[off:]), true
}

// Byte reads the single byte at off.
func (b *Buffer) Byte(off int) (byte, bool) {
	if off < 0 || off >= len(b.b) {
		return 0, false
	}
	return b.b[off], true
}

// PutUint16 writes a little-endian u16 at off.
func (b *Buffer) PutUint16(off int, v uint16) error {
	if off < 0 || off+2 > len(b.b) {
		return fmt.Errorf("%w: u16 at %#x", errBounds, off)
	}
	binary.LittleEndian.PutUint16(b.b[off:], v)
	return nil
}

// PutUint32 writes a little-endian u32 at off.
func (b *Buffer) PutUint32(off int, v uint32) error {
	if off < 0 || off+4 > len(b.b) {
		return fmt.Errorf("%w: u32 at %#x", errBounds, off)
	}
	binary.LittleEndian.PutUint32(b.b[off:], v)
	return nil
}
