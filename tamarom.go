/*
Package tamarom is a library for inspecting and editing the ROM images of
the 25th anniversary color toy devices.
*/
package tamarom

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/retroenv/retrogolib/log"

	"github.com/bodgit/tamarom/archive"
	"github.com/bodgit/tamarom/buffer"
	"github.com/bodgit/tamarom/sprite"
)

var (
	ErrNoImage       = errors.New("tamarom: no image loaded")
	ErrNoSpritePack  = errors.New("tamarom: no sprite package found")
	ErrSizeChanged   = errors.New("tamarom: image size changed")
	ErrNoNameArchive = errors.New("tamarom: no name archive found")
)

const frameCacheSize = 256

// frameKey carries everything a composed frame depends on; two exports
// differing only in compose options must not share cache entries.
type frameKey struct {
	image, sub, bank int
	alpha            sprite.AlphaMode
	attrBank         bool
	stride           int
}

// Editor edits one loaded ROM image in place. It is not safe for
// concurrent use.
type Editor struct {
	buf     *buffer.Buffer
	profile Profile
	logger  *log.Logger

	frames *lru.Cache[frameKey, *image.RGBA]

	// lazily discovered structures
	archives []archive.Found
	pkg      *sprite.Package
}

// New returns an editor for the given device profile.
func New(profile Profile, logger *log.Logger) *Editor {
	frames, _ := lru.New[frameKey, *image.RGBA](frameCacheSize)
	return &Editor{
		profile: profile,
		logger:  logger,
		frames:  frames,
	}
}

// Profile returns the device profile the editor was built with.
func (e *Editor) Profile() Profile {
	return e.profile
}

// LoadBytes adopts b as the working image. The slice is owned by the
// editor afterwards.
func (e *Editor) LoadBytes(b []byte) {
	e.buf = buffer.New(b)
	e.archives = nil
	e.pkg = nil
	e.frames.Purge()
}

// Load reads a ROM image from disk.
func (e *Editor) Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	e.logger.Debug("Loaded image",
		log.String("path", path),
		log.Int("bytes", len(b)))
	e.LoadBytes(b)
	return nil
}

// Save writes the working image to disk. The image must still be exactly
// as large as it was loaded; every edit is in place.
func (e *Editor) Save(path string, expected int) error {
	if e.buf == nil {
		return ErrNoImage
	}
	if expected > 0 && e.buf.Len() != expected {
		return fmt.Errorf("%w: %d != %d", ErrSizeChanged, e.buf.Len(), expected)
	}
	return os.WriteFile(path, e.buf.Bytes(), 0o644)
}

// Buffer exposes the working image for the codec packages.
func (e *Editor) Buffer() (*buffer.Buffer, error) {
	if e.buf == nil {
		return nil, ErrNoImage
	}
	return e.buf, nil
}

// Archives scans the image for nested archives, caching the result until
// the next load.
func (e *Editor) Archives(ctx context.Context) ([]archive.Found, error) {
	if e.buf == nil {
		return nil, ErrNoImage
	}
	if e.archives != nil {
		return e.archives, nil
	}

	found, err := archive.Scan(ctx, e.buf)
	if err != nil {
		return nil, fmt.Errorf("scanning archives: %w", err)
	}
	e.logger.Debug("Archive scan finished", log.Int("archives", len(found)))

	e.archives = found
	return found, nil
}

// SpritePackage locates the sprite package, caching it until the next
// load.
func (e *Editor) SpritePackage(ctx context.Context) (*sprite.Package, error) {
	if e.buf == nil {
		return nil, ErrNoImage
	}
	if e.pkg != nil {
		return e.pkg, nil
	}

	pkg, ok := sprite.Locate(ctx, e.buf, sprite.LocateOptions{
		MinImages:  e.profile.MinImages,
		MaxImages:  e.profile.MaxImages,
		MinColors:  e.profile.MinColors,
		BaseOffset: -1,
	})
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoSpritePack
	}
	e.logger.Debug("Located sprite package",
		log.String("base", fmt.Sprintf("0x%X", pkg.Base)),
		log.Int("images", len(pkg.Images)),
		log.Int("sprites", len(pkg.Sprites)))

	e.pkg = &pkg
	return e.pkg, nil
}

// invalidateFrames drops cached frames after a sprite or palette edit.
func (e *Editor) invalidateFrames() {
	e.frames.Purge()
}
