package archive

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/bodgit/tamarom/buffer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putHeader(b []byte, off int, count uint16) {
	binary.LittleEndian.PutUint16(b[off:], Magic)
	binary.LittleEndian.PutUint16(b[off+2:], count)
}

func putEntry(b []byte, off int, flags, offset, clen, dlen uint32) {
	binary.LittleEndian.PutUint32(b[off:], flags)
	binary.LittleEndian.PutUint32(b[off+4:], offset)
	binary.LittleEndian.PutUint32(b[off+8:], clen)
	binary.LittleEndian.PutUint32(b[off+12:], dlen)
}

func TestTryParse(t *testing.T) {
	t.Run("accepts well formed header", func(t *testing.T) {
		b := make([]byte, 64)
		putHeader(b, 0, 1)
		putEntry(b, 4, 0, 20, 4, 4)

		arc, ok := TryParse(buffer.New(b), 0)
		require.True(t, ok)
		assert.Equal(t, 0, arc.Base)
		require.Len(t, arc.Entries, 1)
		assert.Equal(t, uint32(20), arc.Entries[0].Offset)
		assert.False(t, arc.Entries[0].Compressed())
		assert.Equal(t, 4, arc.Entries[0].Size())
	})

	t.Run("rejects wrong magic", func(t *testing.T) {
		b := make([]byte, 64)
		putHeader(b, 0, 1)
		b[0] = 0x33

		_, ok := TryParse(buffer.New(b), 0)
		assert.False(t, ok)
	})

	t.Run("rejects zero count", func(t *testing.T) {
		b := make([]byte, 64)
		putHeader(b, 0, 0)

		_, ok := TryParse(buffer.New(b), 0)
		assert.False(t, ok)
	})

	t.Run("rejects entry table past end", func(t *testing.T) {
		b := make([]byte, 16)
		putHeader(b, 0, 4)

		_, ok := TryParse(buffer.New(b), 0)
		assert.False(t, ok)
	})

	t.Run("rejects out of bounds entry offset", func(t *testing.T) {
		b := make([]byte, 64)
		putHeader(b, 0, 1)
		putEntry(b, 4, 0, 1<<20, 4, 4)

		_, ok := TryParse(buffer.New(b), 0)
		assert.False(t, ok)
	})
}

func TestScanNested(t *testing.T) {
	// Top archive at 0 with one entry at +32 that is itself an archive.
	b := make([]byte, 128)
	putHeader(b, 0, 1)
	putEntry(b, 4, 0, 32, 24, 24)
	putHeader(b, 32, 1)
	putEntry(b, 36, 0, 20, 4, 4)

	found, err := Scan(context.Background(), buffer.New(b))
	require.NoError(t, err)

	keys := make(map[string]int)
	for _, f := range found {
		keys[f.Key] = f.Archive.Base
	}
	assert.Equal(t, 0, keys["off=0x0"])
	assert.Equal(t, 32, keys["off=0x20"])
	assert.Equal(t, 32, keys["off=0x0/idx=0"])
}

func TestScanSkipsCompressedEntries(t *testing.T) {
	b := make([]byte, 256)
	putHeader(b, 0, 1)
	putEntry(b, 4, 1, 64, 24, 24) // compressed entry aimed at a valid header
	putHeader(b, 64, 1)
	putEntry(b, 68, 0, 90, 4, 4)

	found, err := Scan(context.Background(), buffer.New(b))
	require.NoError(t, err)

	keys := make(map[string]bool)
	for _, f := range found {
		keys[f.Key] = true
	}
	assert.True(t, keys["off=0x0"])
	assert.True(t, keys["off=0x40"])
	assert.False(t, keys["off=0x0/idx=0"], "compressed entry must not be descended into")
}

func TestScanDeterministic(t *testing.T) {
	b := make([]byte, 256)
	putHeader(b, 0, 1)
	putEntry(b, 4, 0, 64, 24, 24)
	putHeader(b, 64, 1)
	putEntry(b, 68, 1, 20, 4, 4) // compressed, not recursed into

	a, err := Scan(context.Background(), buffer.New(b))
	require.NoError(t, err)
	c, err := Scan(context.Background(), buffer.New(b))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestScanCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, buffer.New(make([]byte, 1<<17)))
	assert.Error(t, err)
}
