package sprite

import (
	"fmt"
	"image"
	"image/color"
)

// ComposeOptions tunes frame composition.
type ComposeOptions struct {
	Alpha AlphaMode

	// UseAttrBank composes each sprite with the bank encoded in its own
	// attribute word instead of the bank argument.
	UseAttrBank bool

	// BankStride is the distance in palette words between consecutive
	// banks of one sprite's colours. Zero means the sprite's own colour
	// count, which is how most packages lay their banks out.
	BankStride int
}

func (o ComposeOptions) stride(attr Attribute) int {
	if o.BankStride != 0 {
		return o.BankStride
	}
	return attr.Colors()
}

// subSprites returns the sprites making up one subimage, or nil when the
// indices run off the table.
func (p *Package) subSprites(imageIdx, sub int) []SpriteDef {
	def := p.Images[imageIdx]
	per := p.SpritesPerSub(imageIdx)
	if per <= 0 {
		return nil
	}
	first := int(def.SpriteStart) + sub*per
	if first >= len(p.Sprites) {
		return nil
	}
	last := first + per
	if last > len(p.Sprites) {
		last = len(p.Sprites)
	}
	return p.Sprites[first:last]
}

// Bounds returns the pixel rectangle covered by one subimage's sprites.
// Sprite x/y offsets can be negative, so the rectangle rarely starts at
// the origin; composed frames are translated so it does.
func (p *Package) Bounds(imageIdx, sub int) (image.Rectangle, bool) {
	sprs := p.subSprites(imageIdx, sub)
	if len(sprs) == 0 {
		return image.Rectangle{}, false
	}

	r := image.Rect(int(sprs[0].X), int(sprs[0].Y),
		int(sprs[0].X)+sprs[0].Attr.Width(), int(sprs[0].Y)+sprs[0].Attr.Height())
	for _, s := range sprs[1:] {
		r = r.Union(image.Rect(int(s.X), int(s.Y),
			int(s.X)+s.Attr.Width(), int(s.Y)+s.Attr.Height()))
	}
	return r, true
}

// resolveMode settles AlphaAuto for one image by sampling the first
// sprite's bank zero colours under both readings and keeping whichever
// leaves more of them opaque.
func (p *Package) resolveMode(imageIdx, sub int, opts ComposeOptions) AlphaMode {
	if opts.Alpha != AlphaAuto {
		return opts.Alpha
	}

	sprs := p.subSprites(imageIdx, sub)
	if len(sprs) == 0 {
		return AlphaNormal
	}
	colors := sprs[0].Attr.Colors()
	off := int(p.Images[imageIdx].PaletteStart) * 4
	if off+colors > len(p.Palette) {
		off = len(p.Palette) - colors
	}
	if off < 0 {
		return AlphaNormal
	}
	if resolveAlpha(p.Palette[off:off+colors], colors) {
		return AlphaInverted
	}
	return AlphaNormal
}

// Compose renders one subimage of one image at the given palette bank into
// an RGBA frame. Sprites are drawn in table order and transparent pixels
// leave whatever was drawn beneath them, so later sprites overlay earlier
// ones.
func (p *Package) Compose(imageIdx, sub, bank int, opts ComposeOptions) (*image.RGBA, error) {
	if imageIdx < 0 || imageIdx >= len(p.Images) {
		return nil, fmt.Errorf("sprite: image %d out of range", imageIdx)
	}
	if sub < 0 || sub >= p.SubImages(imageIdx) {
		return nil, fmt.Errorf("sprite: image %d has no subimage %d", imageIdx, sub)
	}

	bounds, ok := p.Bounds(imageIdx, sub)
	if !ok || bounds.Empty() {
		return nil, fmt.Errorf("sprite: image %d subimage %d is empty", imageIdx, sub)
	}

	mode := p.resolveMode(imageIdx, sub, opts)
	base := int(p.Images[imageIdx].PaletteStart) * 4

	frame := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for _, s := range p.subSprites(imageIdx, sub) {
		b := bank
		if opts.UseAttrBank {
			b = s.Attr.Bank()
		}
		palette := p.paletteAt(base, s.Attr.Colors(), b, opts.stride(s.Attr), mode)
		pixels := Unpack(p.CharData(s), s.Attr.Width(), s.Attr.Height(), s.Attr.Depth())
		drawSprite(frame, s, bounds.Min, palette, pixels)
	}
	return frame, nil
}

// paletteAt decodes one sprite's colours at the given bank. Banks that
// would run past the palette fall back to bank zero; several images
// reference banks that only the base palette provides.
func (p *Package) paletteAt(base, colors, bank, stride int, mode AlphaMode) []color.RGBA {
	off := base + bank*stride
	if off+colors > len(p.Palette) {
		off = base
	}
	return Decode(p.Palette, off, colors, mode)
}

func drawSprite(frame *image.RGBA, s SpriteDef, min image.Point, palette []color.RGBA, pixels []uint8) {
	w, h := s.Attr.Width(), s.Attr.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			sx, sy := x, y
			if s.Attr.FlipH() {
				sx = w - 1 - x
			}
			if s.Attr.FlipV() {
				sy = h - 1 - y
			}

			idx := int(pixels[sy*w+sx])
			if idx >= len(palette) {
				continue
			}
			c := palette[idx]
			if c.A == 0 {
				continue
			}
			frame.SetRGBA(int(s.X)+x-min.X, int(s.Y)+y-min.Y, c)
		}
	}
}
