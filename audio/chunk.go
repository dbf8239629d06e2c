package audio

import "bytes"

var a18Header = []byte{0x00, 0x00, 0x80, 0x3e}

const (
	// DefaultChunkRate is the playback rate of A18 chunks; the chunk
	// itself does not record one.
	DefaultChunkRate = 16000

	maxChunkLen = 0x200000

	chunkOverhead = 2 + 4
)

// Chunk is one A18 sound. Start is the offset of the 16-bit payload
// length; the four byte header and then PayloadLen bytes of ADPCM follow
// it.
type Chunk struct {
	Index      int
	Start      int
	PayloadLen int
}

// End is the exclusive end offset of the chunk.
func (c Chunk) End() int {
	return c.Start + chunkOverhead + c.PayloadLen
}

// DataStart is the offset of the ADPCM payload.
func (c Chunk) DataStart() int {
	return c.Start + chunkOverhead
}

// ScanChunks finds every A18 chunk in the image by looking for the fixed
// header and validating the length word in front of it. A false header
// hit resumes the search inside itself, matching how overlapping payload
// bytes can hide a real chunk just past a bogus one.
func ScanChunks(data []byte) []Chunk {
	var chunks []Chunk
	pos := 0
	for {
		i := bytes.Index(data[pos:], a18Header)
		if i < 0 {
			break
		}
		header := pos + i

		start := header - 2
		if start < 0 {
			pos = header + 1
			continue
		}

		length := int(data[start]) | int(data[start+1])<<8
		if length == 0 || length > maxChunkLen || start+chunkOverhead+length > len(data) {
			pos = header + 1
			continue
		}

		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Start:      start,
			PayloadLen: length,
		})
		pos = header + 3
	}
	return chunks
}

// RebuildChunk assembles chunk bytes for a payload trimmed or padded to
// the slot the original chunk occupied. A payload over the slot is
// trimmed and the length word rewritten to the trimmed size; a short one
// keeps its own length and is zero padded to the slot.
func RebuildChunk(payload []byte, slotSize int) []byte {
	slotPayload := slotSize - chunkOverhead
	if slotPayload < 0 {
		return nil
	}

	length := len(payload)
	if length > slotPayload {
		length = slotPayload
		payload = payload[:length]
	}

	out := make([]byte, 0, slotSize)
	out = append(out, byte(length), byte(length>>8))
	out = append(out, a18Header...)
	out = append(out, payload...)
	for len(out) < slotSize {
		out = append(out, 0)
	}
	return out
}
