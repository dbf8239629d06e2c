package sprite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"

	"github.com/bodgit/tamarom/patch"
)

// paletteWordOffset is the file offset of palette word idx.
func (p *Package) paletteWordOffset(idx int) int {
	return p.Base + p.PalettesOff + idx*2
}

// attrOffset is the file offset of sprite si's attribute word.
func (p *Package) attrOffset(si int) int {
	return p.Base + p.SpriteDefsOff + si*spriteDefSize + 6
}

// BankUsage returns the set of palette banks referenced by any sprite of
// any image sharing the given palette start index. Once half the banks
// are in use the whole range is reported used; a palette that busy has no
// safe free slot.
func (p *Package) BankUsage(palStart uint16) map[int]bool {
	used := make(map[int]bool)
	for i, def := range p.Images {
		if def.PaletteStart != palStart {
			continue
		}
		per := p.SpritesPerSub(i)
		if per == 0 {
			continue
		}
		for sub := 0; sub < p.SubImages(i); sub++ {
			for _, s := range p.subSprites(i, sub) {
				used[s.Attr.Bank()] = true
			}
		}
		if len(used) >= 8 {
			for b := 0; b < 16; b++ {
				used[b] = true
			}
			return used
		}
	}
	return used
}

// FreeBank picks the lowest bank no sprite of the palette uses, falling
// back to 15 when everything is taken.
func (p *Package) FreeBank(palStart uint16) int {
	used := p.BankUsage(palStart)
	for b := 0; b < 16; b++ {
		if !used[b] {
			return b
		}
	}
	return 15
}

// paletteFromImage collects the frame's colours in scan order, keyed on
// RGB plus a 50% alpha threshold. When the frame holds more distinct
// colours than the bank does, a median cut pass reduces them instead of
// truncating the scan.
func paletteFromImage(frame image.Image, maxColors int) []color.RGBA {
	bounds := frame.Bounds()
	seen := make(map[color.RGBA]bool)
	var unique []color.RGBA
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(frame.At(x, y)).(color.RGBA)
			if c.A >= 0x80 {
				c.A = 0xff
			} else {
				c = color.RGBA{}
			}
			if !seen[c] {
				seen[c] = true
				unique = append(unique, c)
			}
		}
	}

	if len(unique) > maxColors {
		q := quantize.MedianCutQuantizer{}
		reduced := q.Quantize(make(color.Palette, 0, maxColors), frame)
		unique = unique[:0]
		for _, c := range reduced {
			rgba := color.RGBAModel.Convert(c).(color.RGBA)
			rgba.A = 0xff
			unique = append(unique, rgba)
		}
	}

	if len(unique) == 0 {
		unique = []color.RGBA{{}}
	}
	for len(unique) < maxColors {
		unique = append(unique, unique[len(unique)-1])
	}
	return unique[:maxColors]
}

// BankPatch builds the patches that load one subimage's replacement
// palette into a bank: the encoded palette words, plus attribute rewrites
// pointing the subimage's sprites at the bank when setSpriteBank is set.
// Character data is untouched; pair this with Replace to requantize
// pixels against the new colours.
func (p *Package) BankPatch(imageIdx, sub, bank int, frame image.Image, mode AlphaMode, setSpriteBank bool) ([]patch.Patch, error) {
	if imageIdx < 0 || imageIdx >= len(p.Images) {
		return nil, fmt.Errorf("sprite: image %d out of range", imageIdx)
	}
	if sub < 0 || sub >= p.SubImages(imageIdx) {
		return nil, fmt.Errorf("sprite: image %d has no subimage %d", imageIdx, sub)
	}
	if bank < 0 || bank > 15 {
		return nil, fmt.Errorf("sprite: bank %d out of range", bank)
	}

	def := p.Images[imageIdx]
	sprs := p.subSprites(imageIdx, sub)
	if len(sprs) == 0 {
		return nil, fmt.Errorf("sprite: image %d has no sprites", imageIdx)
	}

	colors := sprs[0].Attr.Colors()
	base := int(def.PaletteStart) * 4
	start := base + bank*colors
	if start+colors > len(p.Palette) {
		return nil, fmt.Errorf("sprite: bank %d runs past the palette", bank)
	}

	inverted := p.resolveMode(imageIdx, sub, ComposeOptions{Alpha: mode}) == AlphaInverted

	words := make([]byte, colors*2)
	for i, c := range paletteFromImage(frame, colors) {
		w := ToWord(c, inverted)
		words[i*2] = byte(w)
		words[i*2+1] = byte(w >> 8)
	}

	patches := []patch.Patch{{Offset: p.paletteWordOffset(start), Data: words}}

	if setSpriteBank {
		first := int(def.SpriteStart) + sub*p.SpritesPerSub(imageIdx)
		for si := first; si < first+len(sprs); si++ {
			a := p.Sprites[si].Attr.WithBank(bank)
			patches = append(patches, patch.Patch{
				Offset: p.attrOffset(si),
				Data:   []byte{byte(a), byte(a >> 8)},
			})
		}
	}
	return patches, nil
}
