package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bodgit/tamarom/buffer"
)

func TestApplyExact(t *testing.T) {
	buf := buffer.New([]byte{0, 1, 2, 3, 4, 5})

	_, _, err := Apply(buf, Patch{Offset: 2, Data: []byte{0xaa, 0xbb}}, Exact)
	assert.Nil(t, err)
	assert.Equal(t, []byte{0, 1, 0xaa, 0xbb, 4, 5}, buf.Bytes())
}

func TestApplyRejectionLeavesBytes(t *testing.T) {
	buf := buffer.New([]byte{0, 1, 2, 3})

	_, _, err := Apply(buf, Patch{Offset: 3, Data: []byte{0xaa, 0xbb}}, Exact)
	assert.True(t, errors.Is(err, ErrBounds))
	assert.Equal(t, []byte{0, 1, 2, 3}, buf.Bytes())

	_, _, err = Apply(buf, Patch{Offset: 0, Data: []byte{0xaa}, Slot: 2}, Exact)
	assert.True(t, errors.Is(err, ErrSlot))
	assert.Equal(t, []byte{0, 1, 2, 3}, buf.Bytes())
}

func TestApplyFit(t *testing.T) {
	buf := buffer.New([]byte{0xff, 0xff, 0xff, 0xff})

	trimmed, padded, err := Apply(buf, Patch{Offset: 0, Data: []byte{1, 2, 3}, Slot: 2}, Fit)
	assert.Nil(t, err)
	assert.True(t, trimmed)
	assert.False(t, padded)
	assert.Equal(t, []byte{1, 2, 0xff, 0xff}, buf.Bytes())

	trimmed, padded, err = Apply(buf, Patch{Offset: 2, Data: []byte{9}, Slot: 2}, Fit)
	assert.Nil(t, err)
	assert.False(t, trimmed)
	assert.True(t, padded)
	assert.Equal(t, []byte{1, 2, 9, 0}, buf.Bytes())
}

func TestApplyAll(t *testing.T) {
	buf := buffer.New(make([]byte, 8))

	s, err := ApplyAll(buf, []Patch{
		{Offset: 0, Data: []byte{1}},
		{Offset: 100, Data: []byte{2}},
		{Offset: 4, Data: []byte{3, 4}, Slot: 3},
	}, Fit)
	assert.Nil(t, err)
	assert.Equal(t, Summary{Updated: 2, Skipped: 1, Padded: 1}, s)
	assert.Equal(t, []byte{1, 0, 0, 0, 3, 4, 0, 0}, buf.Bytes())
}
