package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrNotWAV      = errors.New("audio: not a RIFF/WAVE file")
	ErrUnsupported = errors.New("audio: unsupported WAV format")
)

// WriteWAV writes mono 16-bit PCM.
func WriteWAV(w io.Writer, pcm []int16, rate int) error {
	dataLen := len(pcm) * 2

	var hdr [44]byte
	copy(hdr[0:], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:], uint32(36+dataLen))
	copy(hdr[8:], "WAVE")
	copy(hdr[12:], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:], 16)
	binary.LittleEndian.PutUint16(hdr[20:], 1) // PCM
	binary.LittleEndian.PutUint16(hdr[22:], 1) // mono
	binary.LittleEndian.PutUint32(hdr[24:], uint32(rate))
	binary.LittleEndian.PutUint32(hdr[28:], uint32(rate*2))
	binary.LittleEndian.PutUint16(hdr[32:], 2)
	binary.LittleEndian.PutUint16(hdr[34:], 16)
	copy(hdr[36:], "data")
	binary.LittleEndian.PutUint32(hdr[40:], uint32(dataLen))

	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, dataLen)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	_, err := w.Write(buf)
	return err
}

// ReadWAV reads a PCM WAV file and returns mono 16-bit samples and the
// sample rate. 8-bit input is widened and stereo is mixed down; anything
// else is rejected.
func ReadWAV(r io.Reader) ([]int16, int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, err
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, ErrNotWAV
	}

	var (
		channels, bits int
		rate           int
		raw            []byte
		haveFmt        bool
	)
	for off := 12; off+8 <= len(data); {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4:]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, ErrUnsupported
			}
			if format := binary.LittleEndian.Uint16(data[body:]); format != 1 {
				return nil, 0, fmt.Errorf("%w: format %d", ErrUnsupported, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			rate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits = int(binary.LittleEndian.Uint16(data[body+14:]))
			haveFmt = true
		case "data":
			raw = data[body : body+size]
		}

		off = body + size
		if size%2 != 0 {
			off++ // chunks are word aligned
		}
	}

	if !haveFmt || raw == nil {
		return nil, 0, ErrNotWAV
	}

	var pcm []int16
	switch bits {
	case 8:
		pcm = make([]int16, len(raw))
		for i, b := range raw {
			pcm[i] = (int16(b) - 128) * 256
		}
	case 16:
		pcm = make([]int16, len(raw)/2)
		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
	default:
		return nil, 0, fmt.Errorf("%w: %d bit samples", ErrUnsupported, bits)
	}

	switch channels {
	case 1:
	case 2:
		mono := make([]int16, len(pcm)/2)
		for i := range mono {
			mono[i] = int16((int(pcm[i*2]) + int(pcm[i*2+1])) / 2)
		}
		pcm = mono
	default:
		return nil, 0, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}

	return pcm, rate, nil
}

// Resample converts pcm between rates with linear interpolation. The
// devices resample on playback anyway, so anything fancier is wasted on
// them.
func Resample(pcm []int16, from, to int) []int16 {
	if from == to || len(pcm) == 0 || from <= 0 || to <= 0 {
		return pcm
	}

	newLen := int(math.Round(float64(len(pcm)) / float64(from) * float64(to)))
	if newLen <= 0 {
		return nil
	}

	out := make([]int16, newLen)
	for i := range out {
		x := float64(i) * float64(len(pcm)) / float64(newLen)
		j := int(x)
		if j >= len(pcm)-1 {
			out[i] = pcm[len(pcm)-1]
			continue
		}
		frac := x - float64(j)
		out[i] = int16(float64(pcm[j])*(1-frac) + float64(pcm[j+1])*frac)
	}
	return out
}

// Normalize applies RMS loudness normalization toward targetDB and then a
// hard limiter at ceiling times full scale.
func Normalize(pcm []int16, targetDB, ceiling float64) []int16 {
	if len(pcm) == 0 {
		return pcm
	}

	f := make([]float64, len(pcm))
	var sum float64
	for i, s := range pcm {
		f[i] = float64(s)
		sum += f[i] * f[i]
	}

	gain := 1.0
	if rms := math.Sqrt(sum / float64(len(f))); rms > 0 {
		gain = math.Pow(10, targetDB/20) * 32767 / rms
	}

	var peak float64
	for i := range f {
		f[i] *= gain
		if a := math.Abs(f[i]); a > peak {
			peak = a
		}
	}
	if limit := ceiling * 32767; peak > limit {
		scale := limit / peak
		for i := range f {
			f[i] *= scale
		}
	}

	out := make([]int16, len(f))
	for i, v := range f {
		switch {
		case v > 32767:
			v = 32767
		case v < -32768:
			v = -32768
		}
		out[i] = int16(v)
	}
	return out
}
