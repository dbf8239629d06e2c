package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReads(t *testing.T) {
	b := New([]byte{0x32, 0x32, 0x01, 0x00, 0xff, 0xff, 0xfe, 0xff})

	v16, ok := b.Uint16(0)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x3232), v16)

	v32, ok := b.Uint32(2)
	assert.True(t, ok)
	assert.Equal(t, uint32(0xffff0001), v32)

	s16, ok := b.Int16(6)
	assert.True(t, ok)
	assert.Equal(t, int16(-2), s16)

	_, ok = b.Uint16(7)
	assert.False(t, ok)
	_, ok = b.Uint32(5)
	assert.False(t, ok)
	_, ok = b.Uint16(-1)
	assert.False(t, ok)
}

func TestWrites(t *testing.T) {
	b := New(make([]byte, 4))

	assert.NoError(t, b.PutUint16(2, 0xabcd))
	assert.Equal(t, []byte{0, 0, 0xcd, 0xab}, b.Bytes())

	assert.Error(t, b.PutUint16(3, 1))
	assert.Error(t, b.PutUint32(1, 1))
	assert.Equal(t, 4, b.Len())
}

func TestView(t *testing.T) {
	b := New([]byte{1, 2, 3, 4})

	v, ok := b.View(1, 2)
	assert.True(t, ok)
	assert.Equal(t, []byte{2, 3}, v)

	_, ok = b.View(3, 2)
	assert.False(t, ok)
	_, ok = b.View(-1, 1)
	assert.False(t, ok)
}
