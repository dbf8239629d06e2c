package text

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildArchive serializes a string table from raw code sequences, each
// implicitly zero-terminated.
func buildArchive(t *testing.T, strs [][]uint16) []byte {
	t.Helper()

	n := len(strs)
	headerWords := 1 + n
	offsets := make([]uint16, n)
	word := headerWords
	for i, s := range strs {
		offsets[i] = uint16(word)
		word += len(s) + 1
	}

	out := make([]byte, 2*word)
	binary.LittleEndian.PutUint16(out, uint16(n))
	for i, w := range offsets {
		binary.LittleEndian.PutUint16(out[2+2*i:], w)
	}
	for i, s := range strs {
		p := int(offsets[i]) * 2
		for _, c := range s {
			binary.LittleEndian.PutUint16(out[p:], c)
			p += 2
		}
	}
	return out
}

func TestTryParse(t *testing.T) {
	t.Run("accepts valid table", func(t *testing.T) {
		b := buildArchive(t, [][]uint16{{0x41, 0x42}, {0x43}})
		a, ok := TryParse(b)
		require.True(t, ok)
		assert.Equal(t, 2, a.Count())
		assert.Equal(t, []uint16{0x41, 0x42}, a.Codes(0))
		assert.Equal(t, []uint16{0x43}, a.Codes(1))
	})

	t.Run("rejects short view", func(t *testing.T) {
		_, ok := TryParse([]byte{1, 0})
		assert.False(t, ok)
	})

	t.Run("rejects decreasing offsets", func(t *testing.T) {
		b := buildArchive(t, [][]uint16{{0x41}, {0x42}})
		// Swap the two word offsets.
		o0 := binary.LittleEndian.Uint16(b[2:])
		o1 := binary.LittleEndian.Uint16(b[4:])
		binary.LittleEndian.PutUint16(b[2:], o1)
		binary.LittleEndian.PutUint16(b[4:], o0)
		_, ok := TryParse(b)
		assert.False(t, ok)
	})

	t.Run("rejects missing terminator", func(t *testing.T) {
		b := buildArchive(t, [][]uint16{{0x41}})
		binary.LittleEndian.PutUint16(b[len(b)-2:], 0x41)
		_, ok := TryParse(b)
		assert.False(t, ok)
	})
}

func TestDecode(t *testing.T) {
	t.Run("drops control codes", func(t *testing.T) {
		b := buildArchive(t, [][]uint16{{0x41, 0xF000, 0x42}})
		a, ok := TryParse(b)
		require.True(t, ok)
		assert.Equal(t, []uint16{0x41, 0x42}, a.Codes(0))
		assert.Equal(t, "<0041><0042>", a.Tags(0))
	})

	t.Run("empty string decodes empty", func(t *testing.T) {
		b := buildArchive(t, [][]uint16{{}})
		a, ok := TryParse(b)
		require.True(t, ok)
		assert.Empty(t, a.Codes(0))
		assert.Equal(t, "", a.Tags(0))
	})
}

func TestCapacity(t *testing.T) {
	b := buildArchive(t, [][]uint16{{0x41, 0x42}, {0x43}})
	a, ok := TryParse(b)
	require.True(t, ok)

	// Two codes plus terminator.
	assert.Equal(t, 6, a.Capacity(0))
	// Last string runs to the section end.
	assert.Equal(t, 4, a.Capacity(1))
}

func TestParseTags(t *testing.T) {
	codes, err := ParseTags("<0041><00ff>")
	require.NoError(t, err)
	assert.Equal(t, []uint16{0x41, 0xff}, codes)

	_, err = ParseTags("<0041>x")
	assert.ErrorIs(t, err, ErrLiteral)

	_, err = ParseTags("<00>")
	assert.ErrorIs(t, err, ErrBadTag)
}

func TestEncodeTags(t *testing.T) {
	enc, err := EncodeTags("<0041>")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x41, 0x00, 0x00, 0x00}, enc)

	enc, err = EncodeTags("")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x00}, enc)
}

func TestReplaceTable(t *testing.T) {
	table := NewReplaceTable([]Rule{
		{From: "<0041>", To: "A"},
		{From: "<0041><0042>", To: "AB"},
	})

	// Longest source wins.
	assert.Equal(t, "AB", table.Apply("<0041><0042>"))

	rev := table.Reversed()
	assert.Equal(t, "<0041><0042>", rev.Apply("AB"))
}

func TestEncodeExact(t *testing.T) {
	b := buildArchive(t, [][]uint16{{0x41, 0x42, 0x43}, {0x44}})
	a, ok := TryParse(b)
	require.True(t, ok)

	rev := NewReplaceTable([]Rule{{From: "A", To: "<0041>"}, {From: "B", To: "<0042>"}, {From: "C", To: "<0043>"}, {From: "X", To: "<0058>"}})

	t.Run("same length accepted", func(t *testing.T) {
		enc, err := a.EncodeExact(0, "XXX", rev)
		require.NoError(t, err)
		assert.Equal(t, a.Capacity(0), len(enc))
	})

	t.Run("shorter rejected", func(t *testing.T) {
		_, err := a.EncodeExact(0, "AB", rev)
		assert.ErrorIs(t, err, ErrSizeMismatch)
	})

	t.Run("forbidden rejected", func(t *testing.T) {
		_, err := a.EncodeExact(0, "A+B", rev)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestPadDisplay(t *testing.T) {
	t.Run("longer name rejected", func(t *testing.T) {
		_, err := PadDisplay("ABC", "ABCD")
		assert.ErrorIs(t, err, ErrTooLong)
	})

	t.Run("shorter name padded", func(t *testing.T) {
		got, err := PadDisplay("ABC", "AB")
		require.NoError(t, err)
		assert.Equal(t, "AB_", got)
	})

	t.Run("equal passes through", func(t *testing.T) {
		got, err := PadDisplay("ABC", "XYZ")
		require.NoError(t, err)
		assert.Equal(t, "XYZ", got)
	})
}

func TestEncodeFit(t *testing.T) {
	b := buildArchive(t, [][]uint16{{0x41}, {0x44}})
	a, ok := TryParse(b)
	require.True(t, ok)

	rev := NewReplaceTable([]Rule{{From: "A", To: "<0041>"}, {From: "B", To: "<0042>"}, {From: "C", To: "<0043>"}})

	t.Run("reject oversize", func(t *testing.T) {
		_, err := a.EncodeFit(0, "ABC", rev, OverflowReject)
		assert.ErrorIs(t, err, ErrCapacity)
	})

	t.Run("truncate oversize", func(t *testing.T) {
		enc, err := a.EncodeFit(0, "ABC", rev, OverflowTruncate)
		require.NoError(t, err)
		// capacity 4 -> one code plus terminator
		assert.Equal(t, []byte{0x41, 0x00, 0x00, 0x00}, enc)
	})

	t.Run("forbidden rejected", func(t *testing.T) {
		_, err := a.EncodeFit(0, "A+", rev, OverflowTruncate)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
