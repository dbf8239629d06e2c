package tamarom

import (
	"context"

	"github.com/retroenv/retrogolib/log"

	"github.com/bodgit/tamarom/patch"
	"github.com/bodgit/tamarom/sprite"
)

// PaletteOptions tunes UpdatePalettes.
type PaletteOptions struct {
	Alpha sprite.AlphaMode

	// SetSpriteBank rewrites the subimage's sprite attributes to point
	// at the written bank.
	SetSpriteBank bool

	// AutoFreeBank ignores the bank named in each filename and picks
	// the lowest bank no sprite of the target palette references.
	AutoFreeBank bool

	DryRun bool
}

// UpdatePalettes loads every recognised {image}_{sub}_{bank}.png in dir
// into the palette bank its filename names.
func (e *Editor) UpdatePalettes(ctx context.Context, dir string, opts PaletteOptions) (patch.Summary, error) {
	var summary patch.Summary

	pkg, err := e.SpritePackage(ctx)
	if err != nil {
		return summary, err
	}

	jobs, err := parseSpriteDir(dir)
	if err != nil {
		return summary, err
	}

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		bank := job.bank
		if opts.AutoFreeBank && job.image < len(pkg.Images) {
			bank = pkg.FreeBank(pkg.Images[job.image].PaletteStart)
		}

		frame, err := readPNG(job.path)
		if err != nil {
			e.logger.Warn("Skipping unreadable PNG",
				log.String("path", job.path), log.Err(err))
			summary.Skipped++
			continue
		}

		patches, err := pkg.BankPatch(job.image, job.sub, bank, frame, opts.Alpha, opts.SetSpriteBank)
		if err != nil {
			e.logger.Warn("Skipping palette update",
				log.String("path", job.path), log.Err(err))
			summary.Skipped++
			continue
		}

		if opts.DryRun {
			summary.Updated += len(patches)
			continue
		}

		s, err := patch.ApplyAll(e.buf, patches, patch.Exact)
		if err != nil {
			e.logger.Warn("Skipping palette update",
				log.String("path", job.path), log.Err(err))
			summary.Skipped++
			continue
		}
		summary.Updated += s.Updated
	}

	if summary.Updated > 0 && !opts.DryRun {
		// the located package caches decoded palette words; spent now
		e.pkg = nil
		e.invalidateFrames()
	}
	return summary, nil
}

// FreeBank exposes the free bank picker for the CLI's dry run output.
func (e *Editor) FreeBank(ctx context.Context, imageIdx int) (int, error) {
	pkg, err := e.SpritePackage(ctx)
	if err != nil {
		return 0, err
	}
	if imageIdx < 0 || imageIdx >= len(pkg.Images) {
		return 0, ErrNoSpritePack
	}
	return pkg.FreeBank(pkg.Images[imageIdx].PaletteStart), nil
}
