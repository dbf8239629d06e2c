// Package adpcm implements the 4-bit GeneralPlus ADPCM codec the sound
// chip of both device families plays. It is not IMA ADPCM: the step table
// has 16 entries, the predictor works on a 12-bit scale, and decoded
// samples are multiplied up to 16-bit range.
package adpcm

var stepTable = [16]int{
	16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66,
}

const maxAmp = 2047

// State carries the predictor between chunks. The zero value is the
// documented reset state and is correct at the start of every sound.
type State struct {
	predictor int
	stepIndex int
}

func (s *State) clamp() {
	if s.predictor < -maxAmp {
		s.predictor = -maxAmp
	} else if s.predictor > maxAmp {
		s.predictor = maxAmp
	}
	if s.stepIndex < 0 {
		s.stepIndex = 0
	} else if s.stepIndex > 15 {
		s.stepIndex = 15
	}
}

func (s *State) decodeNibble(nib byte) int16 {
	step := stepTable[s.stepIndex]

	diff := step >> 3
	if nib&1 != 0 {
		diff += step >> 2
	}
	if nib&2 != 0 {
		diff += step >> 1
	}
	if nib&4 != 0 {
		diff += step
	}

	if nib&8 != 0 {
		s.predictor -= diff
	} else {
		s.predictor += diff
	}
	s.stepIndex += int(nib&7) - 4
	s.clamp()

	return int16(s.predictor * 16)
}

// Decode expands packed nibbles to 16-bit PCM, two samples per input
// byte, low nibble first.
func (s *State) Decode(data []byte) []int16 {
	pcm := make([]int16, 0, len(data)*2)
	for _, b := range data {
		pcm = append(pcm, s.decodeNibble(b&0x0f), s.decodeNibble(b>>4))
	}
	return pcm
}

func (s *State) encodeSample(sample int16) byte {
	// the predictor lives on a 12-bit scale; shifting floors negative
	// samples the same way the decoder's inverse does
	want := int(sample) >> 4
	if want < -maxAmp {
		want = -maxAmp
	} else if want > maxAmp {
		want = maxAmp
	}

	diff := want - s.predictor
	var nib byte
	if diff < 0 {
		nib = 0x8
		diff = -diff
	}

	step := stepTable[s.stepIndex]
	contrib := step >> 3
	if diff >= step {
		nib |= 0x4
		contrib += step
		diff -= step
	}
	if diff >= step>>1 {
		nib |= 0x2
		contrib += step >> 1
		diff -= step >> 1
	}
	if diff >= step>>2 {
		nib |= 0x1
		contrib += step >> 2
	}

	if nib&0x8 != 0 {
		s.predictor -= contrib
	} else {
		s.predictor += contrib
	}
	s.stepIndex += int(nib&7) - 4
	s.clamp()

	return nib
}

// Encode packs 16-bit PCM to nibbles, low then high per byte. An odd
// sample count leaves the final high nibble zero.
func (s *State) Encode(pcm []int16) []byte {
	out := make([]byte, 0, (len(pcm)+1)/2)
	for i := 0; i < len(pcm); i += 2 {
		b := s.encodeSample(pcm[i])
		if i+1 < len(pcm) {
			b |= s.encodeSample(pcm[i+1]) << 4
		}
		out = append(out, b)
	}
	return out
}
