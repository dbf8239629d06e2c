package sprite

// Unpack expands w*h palette indices from packed character data. Values
// straddle byte boundaries MSB first. Short input yields zero indices for
// the missing tail rather than an error; truncated character sections do
// occur in shipped images.
func Unpack(data []byte, w, h, depth int) []uint8 {
	if depth <= 0 || depth > 8 || w <= 0 || h <= 0 {
		return nil
	}

	out := make([]uint8, w*h)
	bit := 0
	for i := range out {
		var v uint8
		for j := 0; j < depth; j++ {
			byteIdx := bit >> 3
			v <<= 1
			if byteIdx < len(data) {
				v |= data[byteIdx] >> (7 - bit&7) & 1
			}
			bit++
		}
		out[i] = v
	}
	return out
}

// Pack is the inverse of Unpack. Index values are masked to depth bits and
// the low bits of a final partial byte are left zero.
func Pack(indices []uint8, depth int) []byte {
	if depth <= 0 || depth > 8 {
		return nil
	}

	out := make([]byte, (len(indices)*depth+7)/8)
	bit := 0
	for _, v := range indices {
		v &= 1<<depth - 1
		for j := depth - 1; j >= 0; j-- {
			if v>>j&1 != 0 {
				out[bit>>3] |= 1 << (7 - bit&7)
			}
			bit++
		}
	}
	return out
}
