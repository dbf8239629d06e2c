package text

import (
	"errors"
	"fmt"
	"strings"
)

// Skip reasons reported back per record instead of aborting a batch.
var (
	ErrForbidden    = errors.New("text: name contains forbidden characters")
	ErrSizeMismatch = errors.New("text: encoded length differs from slot")
	ErrCapacity     = errors.New("text: encoded string exceeds slot capacity")
	ErrTooLong      = errors.New("text: name longer than the original")
)

// Overflow selects what the raw encode path does when an encoded string
// exceeds its slot capacity.
type Overflow int

const (
	// OverflowReject refuses the whole write.
	OverflowReject Overflow = iota
	// OverflowTruncate drops trailing codes until the string fits,
	// keeping room for the terminator.
	OverflowTruncate
)

// PadRune fills shortened names under the pad-to-display-length policy.
const PadRune = '_'

// Forbidden is the character set the device firmware cannot render in
// names. Proposed names containing any of these are skipped.
const Forbidden = "+-:<>?!~`'\"[]{}\\|@#$%^&*=,"

// HasForbidden reports whether s contains a forbidden character.
func HasForbidden(s string) bool {
	return strings.ContainsAny(s, Forbidden)
}

// EncodeExact encodes display text for slot si and enforces the strict
// rename policy: the encoded byte length must equal the slot's occupied
// byte length exactly. Growing or shrinking a slot would require shifting
// every subsequent string, which this module never does.
func (a *Archive) EncodeExact(si int, display string, rev *ReplaceTable) ([]byte, error) {
	if HasForbidden(display) {
		return nil, ErrForbidden
	}
	enc, err := EncodeTags(rev.Apply(display))
	if err != nil {
		return nil, err
	}
	if want := a.Capacity(si); len(enc) != want {
		return nil, fmt.Errorf("%w: %d != %d", ErrSizeMismatch, len(enc), want)
	}
	return enc, nil
}

// PadDisplay applies the tabular-editor policy on display text: a name
// longer than the old one is rejected, a shorter one is padded with PadRune
// to the old display length, an equal-length one passes through. The
// result still goes through EncodeExact afterwards.
func PadDisplay(oldDisplay, newDisplay string) (string, error) {
	if HasForbidden(newDisplay) {
		return "", ErrForbidden
	}
	oldLen := len([]rune(oldDisplay))
	newLen := len([]rune(newDisplay))
	switch {
	case newLen > oldLen:
		return "", ErrTooLong
	case newLen < oldLen:
		return newDisplay + strings.Repeat(string(PadRune), oldLen-newLen), nil
	default:
		return newDisplay, nil
	}
}

// EncodeFit encodes display text for slot si under a capacity policy:
// OverflowReject fails oversized strings, OverflowTruncate clips the code
// sequence to capacity/2-1 codes plus terminator.
func (a *Archive) EncodeFit(si int, display string, rev *ReplaceTable, policy Overflow) ([]byte, error) {
	if HasForbidden(display) {
		return nil, ErrForbidden
	}
	codes, err := ParseTags(rev.Apply(display))
	if err != nil {
		return nil, err
	}
	enc := EncodeCodes(codes)
	capacity := a.Capacity(si)
	if len(enc) > capacity {
		if policy != OverflowTruncate {
			return nil, fmt.Errorf("%w: %d > %d", ErrCapacity, len(enc), capacity)
		}
		fit := capacity/2 - 1
		if fit < 0 {
			fit = 0
		}
		enc = EncodeCodes(codes[:fit])
	}
	return enc, nil
}
