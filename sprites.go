package tamarom

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/retroenv/retrogolib/log"

	"github.com/bodgit/tamarom/patch"
	"github.com/bodgit/tamarom/sprite"
)

// SpriteOptions tunes the sprite flows.
type SpriteOptions struct {
	// Start and End bound the image index range, End exclusive. A zero
	// End means up to the profile's sprite index limit.
	Start, End int

	// Banks lists the palette banks to export; nil means bank 0 only.
	Banks []int

	Alpha       sprite.AlphaMode
	UseAttrBank bool
	BankStride  int

	DryRun bool

	// Progress, when set, is called after each item with the counts so
	// far.
	Progress func(done, total int)
}

func (o SpriteOptions) compose() sprite.ComposeOptions {
	return sprite.ComposeOptions{
		Alpha:       o.Alpha,
		UseAttrBank: o.UseAttrBank,
		BankStride:  o.BankStride,
	}
}

func (e *Editor) imageRange(pkg *sprite.Package, o SpriteOptions) (int, int) {
	end := o.End
	limit := len(pkg.Images)
	if e.profile.MaxSpriteIndex+1 < limit {
		limit = e.profile.MaxSpriteIndex + 1
	}
	if end <= 0 || end > limit {
		end = limit
	}
	start := o.Start
	if start < 0 {
		start = 0
	}
	return start, end
}

// frame composes one subimage at one bank, through the editor's cache.
// Cached frames survive until the next load or sprite edit.
func (e *Editor) frame(pkg *sprite.Package, img, sub, bank int, opts sprite.ComposeOptions) (*image.RGBA, error) {
	key := frameKey{
		image: img, sub: sub, bank: bank,
		alpha:    opts.Alpha,
		attrBank: opts.UseAttrBank,
		stride:   opts.BankStride,
	}
	if f, ok := e.frames.Get(key); ok {
		return f, nil
	}

	f, err := pkg.Compose(img, sub, bank, opts)
	if err != nil {
		return nil, err
	}
	e.frames.Add(key, f)
	return f, nil
}

// ExportSprites composes every subimage of every in-range image at the
// requested banks and writes them to dir as {image}_{sub}_{bank}.png.
func (e *Editor) ExportSprites(ctx context.Context, dir string, opts SpriteOptions) error {
	pkg, err := e.SpritePackage(ctx)
	if err != nil {
		return err
	}

	banks := opts.Banks
	if len(banks) == 0 {
		banks = []int{0}
	}
	start, end := e.imageRange(pkg, opts)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	total := (end - start) * len(banks)
	done := 0
	for img := start; img < end; img++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for sub := 0; sub < pkg.SubImages(img); sub++ {
			for _, bank := range banks {
				frame, err := e.frame(pkg, img, sub, bank, opts.compose())
				if err != nil {
					e.logger.Warn("Skipping image",
						log.Int("image", img),
						log.Int("subimage", sub),
						log.Err(err))
					continue
				}

				name := filepath.Join(dir, fmt.Sprintf("%d_%d_%d.png", img, sub, bank))
				if err := writePNG(name, frame); err != nil {
					return err
				}
			}
		}

		done += len(banks)
		if opts.Progress != nil {
			opts.Progress(done, total)
		}
	}
	return nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// spriteFile matches {image}_{sub}_{bank}.png; a dash before the bank is
// accepted too since both conventions circulate.
var spriteFile = regexp.MustCompile(`^(\d+)_(\d+)[_-](\d+)\.png$`)

type spriteJob struct {
	image, sub, bank int
	path             string
}

func parseSpriteDir(dir string) ([]spriteJob, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var jobs []spriteJob
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		m := spriteFile.FindStringSubmatch(ent.Name())
		if m == nil {
			continue
		}
		img, _ := strconv.Atoi(m[1])
		sub, _ := strconv.Atoi(m[2])
		bank, _ := strconv.Atoi(m[3])
		jobs = append(jobs, spriteJob{
			image: img, sub: sub, bank: bank,
			path: filepath.Join(dir, ent.Name()),
		})
	}

	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i], jobs[j]
		if a.image != b.image {
			return a.image < b.image
		}
		if a.sub != b.sub {
			return a.sub < b.sub
		}
		return a.bank < b.bank
	})
	return jobs, nil
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// ImportSprites requantizes every recognised PNG in dir back into the
// image's character data. Files that fail to parse, decode, or fit are
// counted as skipped rather than aborting the batch. With DryRun set
// nothing is written.
func (e *Editor) ImportSprites(ctx context.Context, dir string, opts SpriteOptions) (patch.Summary, error) {
	var summary patch.Summary

	pkg, err := e.SpritePackage(ctx)
	if err != nil {
		return summary, err
	}

	jobs, err := parseSpriteDir(dir)
	if err != nil {
		return summary, err
	}

	for i, job := range jobs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		frame, err := readPNG(job.path)
		if err != nil {
			e.logger.Warn("Skipping unreadable PNG",
				log.String("path", job.path), log.Err(err))
			summary.Skipped++
			continue
		}

		patches, err := pkg.Replace(job.image, job.sub, job.bank, frame, opts.compose())
		if err != nil {
			e.logger.Warn("Skipping sprite replacement",
				log.String("path", job.path), log.Err(err))
			summary.Skipped++
			continue
		}

		if !opts.DryRun {
			s, err := patch.ApplyAll(e.buf, patches, patch.Exact)
			if err != nil {
				e.logger.Warn("Skipping sprite replacement",
					log.String("path", job.path), log.Err(err))
				summary.Skipped++
				continue
			}
			summary.Updated += s.Updated
		} else {
			summary.Updated += len(patches)
		}

		if opts.Progress != nil {
			opts.Progress(i+1, len(jobs))
		}
	}

	if summary.Updated > 0 && !opts.DryRun {
		e.invalidateFrames()
	}
	return summary, nil
}
