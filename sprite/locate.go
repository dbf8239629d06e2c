package sprite

import (
	"context"

	"github.com/bodgit/tamarom/buffer"
)

// LocateOptions tunes the heuristic package search. The plausibility
// window on image count differs between device families, so callers pass
// it in rather than relying on one baked-in range.
type LocateOptions struct {
	// MinImages and MaxImages bound the plausible image definition
	// count. Zero values fall back to 1000 and 10000.
	MinImages int
	MaxImages int

	// MinColors bounds the plausible palette size; zero means 64.
	MinColors int

	// BaseOffset, when non-negative, skips the scan and parses the
	// package at that offset directly.
	BaseOffset int
}

// DefaultLocateOptions returns the scan tuning that fits both known
// device families.
func DefaultLocateOptions() LocateOptions {
	return LocateOptions{MinImages: 1000, MaxImages: 10000, MinColors: 64, BaseOffset: -1}
}

func (o *LocateOptions) defaults() {
	if o.MinImages == 0 {
		o.MinImages = 1000
	}
	if o.MaxImages == 0 {
		o.MaxImages = 10000
	}
	if o.MinColors == 0 {
		o.MinColors = 64
	}
}

// tryHeader validates the four-offset header at off and returns the
// candidate offsets.
func tryHeader(buf *buffer.Buffer, off int, o LocateOptions) (img, spr, pal, chr int, ok bool) {
	u0, ok0 := buf.Uint32(off)
	u1, ok1 := buf.Uint32(off + 4)
	u2, ok2 := buf.Uint32(off + 8)
	u3, ok3 := buf.Uint32(off + 12)
	if !ok0 || !ok1 || !ok2 || !ok3 {
		return 0, 0, 0, 0, false
	}
	img, spr, pal, chr = int(u0), int(u1), int(u2), int(u3)

	if !(0 < img && img < spr && spr < pal && pal < chr && chr <= buf.Len()-off) {
		return 0, 0, 0, 0, false
	}
	if (spr-img)%imageDefSize != 0 || (pal-spr)%spriteDefSize != 0 || (chr-pal)%2 != 0 {
		return 0, 0, 0, 0, false
	}

	numImages := (spr - img) / imageDefSize
	if numImages < o.MinImages || numImages > o.MaxImages {
		return 0, 0, 0, 0, false
	}
	if (chr-pal)/2 < o.MinColors {
		return 0, 0, 0, 0, false
	}
	return img, spr, pal, chr, true
}

// Locate scans every 4-byte-aligned offset for a sprite package header and
// parses the best candidate. When several offsets validate, the one whose
// character section starts furthest into the package wins: the real
// package has by far the largest trailing pixel region, and false hits do
// not. A final sanity check requires the last image's sprite start index
// to fall inside the sprite table.
func Locate(ctx context.Context, buf *buffer.Buffer, opts LocateOptions) (Package, bool) {
	opts.defaults()

	if opts.BaseOffset >= 0 {
		img, spr, pal, chr, ok := tryHeader(buf, opts.BaseOffset, LocateOptions{MinImages: 1, MaxImages: 1 << 20, MinColors: 1})
		if !ok {
			return Package{}, false
		}
		return parseAt(buf, opts.BaseOffset, img, spr, pal, chr), true
	}

	best := -1
	var bestPkg Package
	for off := 0; off+headerSize <= buf.Len(); off += 4 {
		if off&0xffff == 0 {
			select {
			case <-ctx.Done():
				return Package{}, false
			default:
			}
		}

		img, spr, pal, chr, ok := tryHeader(buf, off, opts)
		if !ok {
			continue
		}

		numSprites := (pal - spr) / spriteDefSize
		lastStart, ok := buf.Uint16(off + img + ((spr-img)/imageDefSize-1)*imageDefSize)
		if !ok || int(lastStart) >= numSprites {
			continue
		}

		if chr > best {
			best = chr
			bestPkg = parseAt(buf, off, img, spr, pal, chr)
		}
	}

	if best < 0 {
		return Package{}, false
	}
	return bestPkg, true
}
