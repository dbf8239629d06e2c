/*
Package text decodes and encodes the fixed-capacity string tables found
inside archive entries.

A text archive is a u16 string count followed by one u16 word-offset per
string; each string is a run of little-endian 16-bit glyph codes terminated
by a zero code. Offsets are in 16-bit words from the start of the section,
so the byte position of string i is offsets[i]*2. A string's capacity is
the byte span up to the next string's offset, or the end of the section for
the last one; the tables are packed, so a string can never grow without
shifting its neighbours, which this module never does.

Codes at or above 0xF000 are control/markup codes. The decoder drops them,
so a decode/encode round trip of a string containing control codes is
lossy; this matches the behaviour the device tooling has always had.
*/
package text

import (
	"encoding/binary"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	maxStrings = 20000

	// terminatorScanWindow bounds how far the validator looks for a
	// string's zero terminator.
	terminatorScanWindow = 4096

	// controlThreshold is the first control/markup code value.
	controlThreshold = 0xF000
)

var (
	// ErrBadTag reports a malformed <XXXX> token in an encode input.
	ErrBadTag = errors.New("text: malformed tag")

	// ErrLiteral reports a character outside any <XXXX> token.
	ErrLiteral = errors.New("text: literal characters not allowed")

	tagPattern = regexp.MustCompile(`^<([0-9A-Fa-f]{4})>`)
)

// Archive is a validated string table view. It borrows the section bytes.
type Archive struct {
	view    []byte
	offsets []uint16
}

// TryParse validates view as a text archive. Like the archive scanner it is
// a pure predicate used to classify entries; candidates that fail any
// invariant simply return false.
func TryParse(view []byte) (*Archive, bool) {
	if len(view) < 4 {
		return nil, false
	}
	n := binary.LittleEndian.Uint16(view)
	if n < 1 || n > maxStrings {
		return nil, false
	}
	if 2+2*int(n) > len(view) {
		return nil, false
	}

	offsets := make([]uint16, n)
	prev := uint16(0)
	for i := range offsets {
		w := binary.LittleEndian.Uint16(view[2+2*i:])
		if w < prev || int(w)*2 >= len(view) {
			return nil, false
		}
		offsets[i] = w
		prev = w
	}

	// Every string needs a terminator within the scan window.
	for _, w := range offsets {
		p := int(w) * 2
		ok := false
		for p+2 <= len(view) && p-int(w)*2 <= terminatorScanWindow {
			if binary.LittleEndian.Uint16(view[p:]) == 0 {
				ok = true
				break
			}
			p += 2
		}
		if !ok {
			return nil, false
		}
	}

	return &Archive{view: view, offsets: offsets}, true
}

// Count returns the number of strings in the table.
func (a *Archive) Count() int {
	return len(a.offsets)
}

// Start returns the byte offset of string si within the section.
func (a *Archive) Start(si int) int {
	return int(a.offsets[si]) * 2
}

// Capacity returns the byte span available to string si: up to the next
// string's start, or the section end for the last string.
func (a *Archive) Capacity(si int) int {
	start := a.Start(si)
	end := len(a.view)
	if si+1 < len(a.offsets) {
		end = a.Start(si + 1)
	}
	if end < start {
		return 0
	}
	return end - start
}

// OccupiedBytes returns the raw bytes of slot si, terminator and padding
// included, i.e. exactly Capacity(si) bytes.
func (a *Archive) OccupiedBytes(si int) []byte {
	return a.view[a.Start(si) : a.Start(si)+a.Capacity(si)]
}

// Codes decodes string si into glyph codes, dropping control codes.
func (a *Archive) Codes(si int) []uint16 {
	var out []uint16
	p := a.Start(si)
	for p+2 <= len(a.view) {
		w := binary.LittleEndian.Uint16(a.view[p:])
		p += 2
		if w == 0 {
			break
		}
		if w >= controlThreshold {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Tags renders string si in tag form, one <XXXX> token per glyph code.
func (a *Archive) Tags(si int) string {
	var sb strings.Builder
	for _, w := range a.Codes(si) {
		fmt.Fprintf(&sb, "<%04X>", w)
	}
	return sb.String()
}

// ParseTags parses a strict concatenation of <XXXX> tokens into glyph
// codes. Any character outside a token is an error.
func ParseTags(s string) ([]uint16, error) {
	var codes []uint16
	for i := 0; i < len(s); {
		if s[i] != '<' {
			return nil, fmt.Errorf("%w: %q", ErrLiteral, s[i])
		}
		m := tagPattern.FindStringSubmatch(s[i:])
		if m == nil {
			return nil, fmt.Errorf("%w at %q", ErrBadTag, truncate(s[i:], 6))
		}
		v, err := strconv.ParseUint(m[1], 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%w at %q", ErrBadTag, m[0])
		}
		codes = append(codes, uint16(v))
		i += len(m[0])
	}
	return codes, nil
}

// EncodeCodes serializes glyph codes as little-endian words with a zero
// terminator appended.
func EncodeCodes(codes []uint16) []byte {
	out := make([]byte, 0, 2*len(codes)+2)
	for _, c := range codes {
		out = binary.LittleEndian.AppendUint16(out, c)
	}
	return binary.LittleEndian.AppendUint16(out, 0)
}

// EncodeTags parses tag form and serializes it, terminator included.
func EncodeTags(s string) ([]byte, error) {
	codes, err := ParseTags(s)
	if err != nil {
		return nil, err
	}
	return EncodeCodes(codes), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
