package sprite

import "image/color"

// AlphaMode selects how bit 15 of a palette word is interpreted. The two
// device families disagree; Auto samples the palette and picks whichever
// reading leaves more of it opaque.
type AlphaMode int

const (
	AlphaAuto AlphaMode = iota
	AlphaNormal
	AlphaInverted
)

// FromWord decodes an ARGB1555 palette word. Channel values are scaled to
// the full 8-bit range so that pure white decodes to 0xFF, not 0xF8.
func FromWord(w uint16, inverted bool) color.RGBA {
	alpha := w&0x8000 != 0
	if inverted {
		alpha = !alpha
	}
	var a uint8
	if alpha {
		a = 0xff
	}
	return color.RGBA{
		R: uint8((w >> 10 & 0x1f) * 255 / 31),
		G: uint8((w >> 5 & 0x1f) * 255 / 31),
		B: uint8((w & 0x1f) * 255 / 31),
		A: a,
	}
}

// ToWord encodes an RGBA colour to ARGB1555. Any alpha below 0x80 rounds
// to transparent.
func ToWord(c color.RGBA, inverted bool) uint16 {
	alpha := c.A >= 0x80
	if inverted {
		alpha = !alpha
	}
	w := uint16(c.R>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.B>>3)
	if alpha {
		w |= 0x8000
	}
	return w
}

// resolveAlpha samples up to limit words of the palette under both
// readings and keeps the one with the larger opaque count.
func resolveAlpha(palette []uint16, limit int) bool {
	if limit > len(palette) {
		limit = len(palette)
	}
	var normal, inverted int
	for _, w := range palette[:limit] {
		if w&0x8000 != 0 {
			normal++
		} else {
			inverted++
		}
	}
	return inverted > normal
}

// Decode expands count palette words starting at word index start into
// RGBA colours, resolving AlphaAuto against the decoded slice.
func Decode(palette []uint16, start, count int, mode AlphaMode) []color.RGBA {
	if start < 0 || start >= len(palette) {
		return nil
	}
	if start+count > len(palette) {
		count = len(palette) - start
	}
	words := palette[start : start+count]

	inverted := mode == AlphaInverted
	if mode == AlphaAuto {
		inverted = resolveAlpha(words, count)
	}

	out := make([]color.RGBA, len(words))
	for i, w := range words {
		out[i] = FromWord(w, inverted)
	}
	return out
}
