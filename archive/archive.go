/*
Package archive discovers the nested container archives used by the toy
device ROMs.

An archive starts with the magic word 0x3232 followed by a u16 entry count
and a table of 16-byte entries (flags, offset, compressed length,
decompressed length, all u32). Entry offsets are relative to the archive
base. Uncompressed entries may themselves hold further archives; the format
nests up to three levels deep in practice.

Because the ROMs carry no index, discovery is a heuristic scan: every
2-byte-aligned offset is tried and structurally validated. False magic hits
are expected and rejected silently.
*/
package archive

import (
	"context"
	"fmt"

	"github.com/bodgit/tamarom/buffer"
)

// Magic identifies an archive header.
const Magic = 0x3232

const (
	headerSize = 4
	entrySize  = 16

	// MaxDepth bounds nested archive traversal.
	MaxDepth = 3
)

// Entry is one record of an archive's entry table.
type Entry struct {
	Flags           uint32
	Offset          uint32
	CompressedLen   uint32
	DecompressedLen uint32
}

// Compressed reports whether the entry payload is stored compressed.
func (e Entry) Compressed() bool {
	return e.Flags&0xf != 0
}

// Size returns the usable payload size, preferring the decompressed length.
func (e Entry) Size() int {
	if e.DecompressedLen > 0 {
		return int(e.DecompressedLen)
	}
	return int(e.CompressedLen)
}

// Archive is a parsed container header. It borrows the scanned buffer; it
// never copies payload bytes.
type Archive struct {
	Base    int
	Entries []Entry
}

// EntryOffset returns the absolute offset of entry i's payload.
func (a Archive) EntryOffset(i int) int {
	return a.Base + int(a.Entries[i].Offset)
}

// Found pairs an archive with its location key, an opaque path of the form
// "off=0xNNNN/idx=K/idx=K".
type Found struct {
	Key     string
	Archive Archive
}

// TryParse validates an archive header at off. It is a pure predicate:
// structural failures return false, never an error.
func TryParse(buf *buffer.Buffer, off int) (Archive, bool) {
	magic, ok := buf.Uint16(off)
	if !ok || magic != Magic {
		return Archive{}, false
	}
	count, ok := buf.Uint16(off + 2)
	if !ok || count < 1 {
		return Archive{}, false
	}
	if off+headerSize+int(count)*entrySize > buf.Len() {
		return Archive{}, false
	}

	entries := make([]Entry, count)
	for i := range entries {
		e := off + headerSize + i*entrySize
		flags, _ := buf.Uint32(e)
		offset, _ := buf.Uint32(e + 4)
		clen, _ := buf.Uint32(e + 8)
		dlen, _ := buf.Uint32(e + 12)
		if off+int(offset) > buf.Len() {
			return Archive{}, false
		}
		entries[i] = Entry{
			Flags:           flags,
			Offset:          offset,
			CompressedLen:   clen,
			DecompressedLen: dlen,
		}
	}

	return Archive{Base: off, Entries: entries}, true
}

// Scan finds every archive reachable in buf: a full pass over all
// 2-byte-aligned offsets, then a breadth-first descent into uncompressed
// entries whose payload itself parses as an archive, down to MaxDepth.
// Scanning the same buffer twice yields identical results.
func Scan(ctx context.Context, buf *buffer.Buffer) ([]Found, error) {
	type item struct {
		key   string
		arc   Archive
		depth int
	}

	var queue []item
	for off := 0; off+headerSize <= buf.Len(); off += 2 {
		if off&0xffff == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if arc, ok := TryParse(buf, off); ok {
			queue = append(queue, item{key: fmt.Sprintf("off=0x%X", off), arc: arc})
		}
	}

	var found []Found
	for len(queue) > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		it := queue[0]
		queue = queue[1:]
		found = append(found, Found{Key: it.key, Archive: it.arc})

		if it.depth >= MaxDepth {
			continue
		}
		for i, e := range it.arc.Entries {
			if e.Compressed() {
				continue
			}
			sub, ok := TryParse(buf, it.arc.Base+int(e.Offset))
			if !ok {
				continue
			}
			queue = append(queue, item{
				key:   fmt.Sprintf("%s/idx=%d", it.key, i),
				arc:   sub,
				depth: it.depth + 1,
			})
		}
	}

	return found, nil
}

// EntryView returns the payload window of entry i, or false when the entry
// is compressed, empty, or out of bounds.
func EntryView(buf *buffer.Buffer, a Archive, i int) (off int, view []byte, ok bool) {
	e := a.Entries[i]
	if e.Compressed() {
		return 0, nil, false
	}
	size := e.Size()
	if size <= 0 {
		return 0, nil, false
	}
	off = a.Base + int(e.Offset)
	view, ok = buf.View(off, size)
	return off, view, ok
}
