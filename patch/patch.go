// Package patch applies byte-exact in-place edits to a device image.
// Every higher level edit, names, stats, sprites, sounds, reduces to a
// list of patches so that a single code path owns the writes and a dry
// run can report exactly what would change.
package patch

import (
	"errors"
	"fmt"

	"github.com/bodgit/tamarom/buffer"
)

var (
	ErrBounds = errors.New("patch: outside the image")
	ErrSlot   = errors.New("patch: data does not fit the slot")
)

// Patch is one contiguous in-place edit. A non-zero Slot declares how
// many bytes at Offset the patch owns; Data shorter than the slot leaves
// the tail zeroed and Data longer than it is an error or a trim,
// depending on the mode.
type Patch struct {
	Offset int
	Data   []byte
	Slot   int
}

// Mode selects how a patch that disagrees with its slot is handled.
type Mode int

const (
	// Exact rejects any patch whose data does not exactly fill its slot.
	Exact Mode = iota
	// Fit trims oversized data to the slot and pads undersized data
	// with zero bytes.
	Fit
)

// Summary reports what ApplyAll did.
type Summary struct {
	Updated int
	Skipped int
	Trimmed int
	Padded  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d updated, %d skipped, %d trimmed, %d padded",
		s.Updated, s.Skipped, s.Trimmed, s.Padded)
}

// Apply writes one patch. A failed patch leaves the image untouched.
func Apply(buf *buffer.Buffer, p Patch, mode Mode) (trimmed, padded bool, err error) {
	slot := p.Slot
	if slot == 0 {
		slot = len(p.Data)
	}

	if p.Offset < 0 || p.Offset+slot > buf.Len() {
		return false, false, fmt.Errorf("%w: %d+%d bytes at 0x%X", ErrBounds, slot, len(p.Data), p.Offset)
	}

	data := p.Data
	switch {
	case len(data) > slot:
		if mode == Exact {
			return false, false, fmt.Errorf("%w: %d bytes into %d at 0x%X", ErrSlot, len(data), slot, p.Offset)
		}
		data = data[:slot]
		trimmed = true
	case len(data) < slot:
		if mode == Exact {
			return false, false, fmt.Errorf("%w: %d bytes into %d at 0x%X", ErrSlot, len(data), slot, p.Offset)
		}
		padded = true
	}

	view, ok := buf.View(p.Offset, slot)
	if !ok {
		return false, false, fmt.Errorf("%w: %d bytes at 0x%X", ErrBounds, slot, p.Offset)
	}
	n := copy(view, data)
	for i := n; i < slot; i++ {
		view[i] = 0
	}
	return trimmed, padded, nil
}

// ApplyAll applies patches in order. In Exact mode the first failure
// aborts; in Fit mode failures are skipped and counted.
func ApplyAll(buf *buffer.Buffer, patches []Patch, mode Mode) (Summary, error) {
	var s Summary
	for _, p := range patches {
		trimmed, padded, err := Apply(buf, p, mode)
		if err != nil {
			if mode == Exact {
				return s, err
			}
			s.Skipped++
			continue
		}
		s.Updated++
		if trimmed {
			s.Trimmed++
		}
		if padded {
			s.Padded++
		}
	}
	return s, nil
}
