package tamarom

import (
	"context"
	"fmt"

	"github.com/retroenv/retrogolib/log"

	"github.com/bodgit/tamarom/archive"
	"github.com/bodgit/tamarom/patch"
	"github.com/bodgit/tamarom/text"
)

// NameArchive is one text archive holding character names. Base is the
// absolute offset of the archive payload, so string patches land at
// Base plus the string's start.
type NameArchive struct {
	Path string
	Base int
	Text *text.Archive
}

// Name is one decoded display string.
type Name struct {
	Archive string
	Index   int
	Display string
}

// NameArchives finds every text archive the profile allows name writes
// to. They hide as plain entries inside the nested archive tree, so this
// runs a full archive scan on first use.
func (e *Editor) NameArchives(ctx context.Context) ([]NameArchive, error) {
	found, err := e.Archives(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(e.profile.NameArchivePaths))
	for _, p := range e.profile.NameArchivePaths {
		allowed[p] = false
	}

	var out []NameArchive
	for _, f := range found {
		for i := range f.Archive.Entries {
			path := fmt.Sprintf("%s/idx=%d", f.Key, i)
			if _, ok := allowed[path]; !ok {
				continue
			}

			off, view, ok := archive.EntryView(e.buf, f.Archive, i)
			if !ok {
				continue
			}
			ta, ok := text.TryParse(view)
			if !ok {
				e.logger.Warn("Allowed name archive does not parse as text",
					log.String("path", path))
				continue
			}
			allowed[path] = true
			out = append(out, NameArchive{Path: path, Base: off, Text: ta})
		}
	}

	if len(out) == 0 {
		return nil, ErrNoNameArchive
	}
	return out, nil
}

// Names decodes every string of every name archive through the
// replacement table.
func (e *Editor) Names(ctx context.Context, table *text.ReplaceTable) ([]Name, error) {
	archives, err := e.NameArchives(ctx)
	if err != nil {
		return nil, err
	}

	var out []Name
	for _, na := range archives {
		for si := 0; si < na.Text.Count(); si++ {
			out = append(out, Name{
				Archive: na.Path,
				Index:   si,
				Display: table.Apply(na.Text.Tags(si)),
			})
		}
	}
	return out, nil
}

// NPCNames decodes only the profile's non-player character strings.
func (e *Editor) NPCNames(ctx context.Context, table *text.ReplaceTable) ([]Name, error) {
	archives, err := e.NameArchives(ctx)
	if err != nil {
		return nil, err
	}

	var out []Name
	for _, na := range archives {
		for _, si := range e.profile.NPCIndexes {
			if si >= na.Text.Count() {
				continue
			}
			out = append(out, Name{
				Archive: na.Path,
				Index:   si,
				Display: table.Apply(na.Text.Tags(si)),
			})
		}
	}
	return out, nil
}

func (e *Editor) nameArchiveAt(ctx context.Context, path string) (NameArchive, error) {
	archives, err := e.NameArchives(ctx)
	if err != nil {
		return NameArchive{}, err
	}
	for _, na := range archives {
		if na.Path == path {
			return na, nil
		}
	}
	return NameArchive{}, fmt.Errorf("%w: %s", ErrNoNameArchive, path)
}

// RenameExact replaces string si of the given name archive. The encoded
// bytes must exactly fill the occupied slot; anything else is refused
// before a byte is written.
func (e *Editor) RenameExact(ctx context.Context, path string, si int, display string, table *text.ReplaceTable) error {
	na, err := e.nameArchiveAt(ctx, path)
	if err != nil {
		return err
	}

	enc, err := na.Text.EncodeExact(si, display, table.Reversed())
	if err != nil {
		return fmt.Errorf("encoding %q: %w", display, err)
	}

	_, _, err = patch.Apply(e.buf, patch.Patch{
		Offset: na.Base + na.Text.Start(si),
		Data:   enc,
	}, patch.Exact)
	return err
}

// RenamePadded replaces string si, padding a shorter replacement with
// underscores to the old display length. A longer one is refused. This is
// the policy of the tabular rename flow; the devices render the pad rune
// as a blank.
func (e *Editor) RenamePadded(ctx context.Context, path string, si int, display string, table *text.ReplaceTable) error {
	na, err := e.nameArchiveAt(ctx, path)
	if err != nil {
		return err
	}

	old := table.Apply(na.Text.Tags(si))
	padded, err := text.PadDisplay(old, display)
	if err != nil {
		return err
	}

	return e.RenameExact(ctx, path, si, padded, table)
}
