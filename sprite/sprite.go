/*
Package sprite parses and edits the sprite package region of a toy device
ROM.

The package starts with four little-endian u32 offsets, all relative to the
package base: image definitions, sprite (tile) definitions, palettes, and
character (pixel) data. Image definitions are 6 bytes each (u16 sprite
start index, u8 width, u8 height in tiles, u16 palette start index); sprite
definitions are 8 bytes (u16 character number, s16 x/y offsets, u16
attribute); palettes are packed 16-bit ARGB1555 words; character data is a
tight MSB-first bitstream of palette indices.

The region carries no magic value, so it is found heuristically: see
Locate.
*/
package sprite

import (
	"github.com/bodgit/tamarom/buffer"
)

const (
	imageDefSize  = 6
	spriteDefSize = 8

	headerSize = 16
)

// Attribute packs a tile's color depth, flips, size, and palette bank.
type Attribute uint16

// Depth returns the bits per pixel index: the 2-bit selector maps to
// 2/4/6/8 bpp.
func (a Attribute) Depth() int {
	return int(a&0x3)*2 + 2
}

// Colors returns the palette slice size for this tile.
func (a Attribute) Colors() int {
	return 1 << a.Depth()
}

// FlipH reports whether the tile is mirrored horizontally.
func (a Attribute) FlipH() bool {
	return a>>2&0x1 != 0
}

// FlipV reports whether the tile is mirrored vertically.
func (a Attribute) FlipV() bool {
	return a>>2&0x2 != 0
}

// Width returns the tile width in pixels (8 << selector).
func (a Attribute) Width() int {
	return 8 << (a >> 4 & 0x3)
}

// Height returns the tile height in pixels.
func (a Attribute) Height() int {
	return 8 << (a >> 6 & 0x3)
}

// Bank returns the tile's own 4-bit palette bank.
func (a Attribute) Bank() int {
	return int(a >> 8 & 0xf)
}

// WithBank returns the attribute with its bank nibble replaced.
func (a Attribute) WithBank(bank int) Attribute {
	return a&^(0xf<<8) | Attribute(bank&0xf)<<8
}

// ImageDef describes one logical image; width and height are in tiles.
type ImageDef struct {
	SpriteStart  uint16
	Width        uint8
	Height       uint8
	PaletteStart uint16
}

// SpriteDef describes one tile of a subimage.
type SpriteDef struct {
	Char uint16
	X    int16
	Y    int16
	Attr Attribute
}

// Package is a parsed sprite package. All offsets are relative to Base;
// the tables borrow the scanned buffer.
type Package struct {
	Base int

	ImageDefsOff  int
	SpriteDefsOff int
	PalettesOff   int
	CharsOff      int

	Images   []ImageDef
	Sprites  []SpriteDef
	Palette  []uint16

	buf *buffer.Buffer
}

// parseAt decodes the four fixed-stride tables at base, after the header
// has already passed validation.
func parseAt(buf *buffer.Buffer, base int, imgOff, sprOff, palOff, chrOff int) Package {
	p := Package{
		Base:          base,
		ImageDefsOff:  imgOff,
		SpriteDefsOff: sprOff,
		PalettesOff:   palOff,
		CharsOff:      chrOff,
		buf:           buf,
	}

	numImages := (sprOff - imgOff) / imageDefSize
	p.Images = make([]ImageDef, numImages)
	for i := range p.Images {
		o := base + imgOff + i*imageDefSize
		start, _ := buf.Uint16(o)
		w, _ := buf.Byte(o + 2)
		h, _ := buf.Byte(o + 3)
		pal, _ := buf.Uint16(o + 4)
		p.Images[i] = ImageDef{SpriteStart: start, Width: w, Height: h, PaletteStart: pal}
	}

	numSprites := (palOff - sprOff) / spriteDefSize
	p.Sprites = make([]SpriteDef, numSprites)
	for i := range p.Sprites {
		o := base + sprOff + i*spriteDefSize
		ch, _ := buf.Uint16(o)
		x, _ := buf.Int16(o + 2)
		y, _ := buf.Int16(o + 4)
		attr, _ := buf.Uint16(o + 6)
		p.Sprites[i] = SpriteDef{Char: ch, X: x, Y: y, Attr: Attribute(attr)}
	}

	numColors := (chrOff - palOff) / 2
	p.Palette = make([]uint16, numColors)
	for i := range p.Palette {
		w, _ := buf.Uint16(base + palOff + 2*i)
		p.Palette[i] = w
	}

	return p
}

// SpritesPerSub returns the tile count of one subimage of image i.
func (p *Package) SpritesPerSub(i int) int {
	return int(p.Images[i].Width) * int(p.Images[i].Height)
}

// SubImages returns how many subimages image i holds, inferred from the
// sprite index span to the next image; always at least 1.
func (p *Package) SubImages(i int) int {
	per := p.SpritesPerSub(i)
	if per == 0 {
		return 0
	}
	var span int
	if i+1 < len(p.Images) {
		span = int(p.Images[i+1].SpriteStart) - int(p.Images[i].SpriteStart)
	} else {
		span = len(p.Sprites) - int(p.Images[i].SpriteStart)
	}
	if n := span / per; n > 1 {
		return n
	}
	return 1
}

// charBytes returns how many bytes one tile of the given attribute
// occupies in the character stream.
func charBytes(attr Attribute) int {
	return (attr.Width()*attr.Height()*attr.Depth() + 7) / 8
}

// CharOffset returns the absolute offset of a tile's pixel data. Tiles are
// tightly packed with no per-character alignment, so the character number
// indexes in units of this tile's own encoded size.
func (p *Package) CharOffset(s SpriteDef) int {
	return p.Base + p.CharsOff + int(s.Char)*charBytes(s.Attr)
}

// CharData returns the tile's packed pixel bytes, clipped to the buffer;
// the unpacker zero-fills anything the clip removed.
func (p *Package) CharData(s SpriteDef) []byte {
	n := charBytes(s.Attr)
	off := p.CharOffset(s)
	if off < 0 || off >= p.buf.Len() {
		return nil
	}
	if off+n > p.buf.Len() {
		n = p.buf.Len() - off
	}
	b, _ := p.buf.View(off, n)
	return b
}
