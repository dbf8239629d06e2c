package sprite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bodgit/tamarom/patch"
)

// nearestIndex maps a colour onto the closest palette entry by squared
// distance over all four channels. Weighting alpha like the colour
// channels keeps fully transparent source pixels on the transparent
// palette entry.
func nearestIndex(c color.RGBA, palette []color.RGBA) uint8 {
	best, bestDist := 0, 1<<62
	for i, p := range palette {
		dr, dg := int(c.R)-int(p.R), int(c.G)-int(p.G)
		db, da := int(c.B)-int(p.B), int(c.A)-int(p.A)
		d := dr*dr + dg*dg + db*db + da*da
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return uint8(best)
}

// quantizeTile maps the frame region under one sprite onto palette
// indices, row major, in the tile's stored orientation.
func quantizeTile(frame image.Image, s SpriteDef, min image.Point, palette []color.RGBA) []uint8 {
	origin := frame.Bounds().Min
	w, h := s.Attr.Width(), s.Attr.Height()
	dx, dy := int(s.X)-min.X, int(s.Y)-min.Y

	indices := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBAModel.Convert(frame.At(origin.X+dx+x, origin.Y+dy+y)).(color.RGBA)
			indices[y*w+x] = nearestIndex(c, palette)
		}
	}
	return indices
}

// Replace requantizes one subimage frame against the package's palette at
// the given bank and returns the character data patches that make the
// stored sprites render it. The frame must match the subimage's composed
// size.
func (p *Package) Replace(imageIdx, sub, bank int, frame image.Image, opts ComposeOptions) ([]patch.Patch, error) {
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
	if frame.Bounds().Dx() != bounds.Dx() || frame.Bounds().Dy() != bounds.Dy() {
		return nil, fmt.Errorf("sprite: frame is %dx%d, image %d subimage %d wants %dx%d",
			frame.Bounds().Dx(), frame.Bounds().Dy(), imageIdx, sub, bounds.Dx(), bounds.Dy())
	}

	mode := p.resolveMode(imageIdx, sub, opts)
	base := int(p.Images[imageIdx].PaletteStart) * 4

	var patches []patch.Patch
	for _, s := range p.subSprites(imageIdx, sub) {
		b := bank
		if opts.UseAttrBank {
			b = s.Attr.Bank()
		}
		palette := p.paletteAt(base, s.Attr.Colors(), b, opts.stride(s.Attr), mode)
		if len(palette) == 0 {
			continue
		}

		patches = append(patches, patch.Patch{
			Offset: p.CharOffset(s),
			Data:   Pack(quantizeTile(frame, s, bounds.Min, palette), s.Attr.Depth()),
		})
	}
	return patches, nil
}
