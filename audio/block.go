// Package audio finds and rewrites the two sound containers the devices
// use. Newer models store SPF2ALP blocks, a 0x40 byte header followed by
// raw ADPCM running to the next block. Older models store A18 chunks, a
// 16-bit payload length immediately before a fixed four byte header.
package audio

import (
	"bytes"
	"encoding/binary"
)

var magicSPF2ALP = []byte("SPF2ALP\x00")

const (
	blockHeaderSize = 0x40
	rateOffset      = 0x10

	// DefaultBlockRate stands in when a block header carries a zero or
	// absurd sample rate.
	DefaultBlockRate = 44100

	maxSampleRate = 192000
)

// Block is one SPF2ALP sound: Start is the magic offset, End is exclusive
// and runs to the next magic or the end of the image. The ADPCM payload
// fills [DataStart, End). Replacements must fill the slot exactly, so the
// payload size is fixed.
type Block struct {
	Index     int
	Start     int
	End       int
	DataStart int
	Rate      int
}

// SlotBytes is the fixed ADPCM payload size of the block.
func (b Block) SlotBytes() int {
	return b.End - b.DataStart
}

// ScanBlocks finds every SPF2ALP block in the image. Runt blocks with no
// room for a payload after the header are dropped, but they still claim
// an index so replacement file numbering stays stable across firmware
// revisions.
func ScanBlocks(data []byte) []Block {
	var positions []int
	for pos := 0; ; pos++ {
		i := bytes.Index(data[pos:], magicSPF2ALP)
		if i < 0 {
			break
		}
		pos += i
		positions = append(positions, pos)
	}

	var blocks []Block
	for idx, start := range positions {
		end := len(data)
		if idx+1 < len(positions) {
			end = positions[idx+1]
		}
		if end <= start+blockHeaderSize {
			continue
		}

		rate := DefaultBlockRate
		if start+rateOffset+4 <= len(data) {
			if r := int(binary.LittleEndian.Uint32(data[start+rateOffset:])); r > 0 && r <= maxSampleRate {
				rate = r
			}
		}

		blocks = append(blocks, Block{
			Index:     idx,
			Start:     start,
			End:       end,
			DataStart: start + blockHeaderSize,
			Rate:      rate,
		})
	}
	return blocks
}
