package tamarom

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrogolib/log"
)

var ErrBadStatsTable = errors.New("tamarom: stats table out of bounds")

// Partner is one row of the partner stats table. NameIndex keys into the
// name archives; Stage, Power and the two unknown words are stored as is.
// Slot is the row's position in the table and identifies it on write.
type Partner struct {
	Slot      int
	NameIndex int
	Stage     int
	Power     int
	Unknown1  int
	Unknown2  int
}

// statsWord reads word w of record rec.
func (e *Editor) statsWord(rec, w int) (int, bool) {
	v, ok := e.buf.Uint16(e.profile.StatsBase + rec*e.profile.RecordSize + w*2)
	return int(v), ok
}

func (e *Editor) putStatsWord(rec, w, v int) error {
	return e.buf.PutUint16(e.profile.StatsBase+rec*e.profile.RecordSize+w*2, uint16(v))
}

// PartnerRows decodes the partner table.
//
// The packed layout is a flat word stream over the record area: the first
// partner stores no name index (the firmware hardcodes it) and spans four
// words, every later partner spans five. The strided layout gives each
// partner its own record, with the name index in word two and the power
// in word zero of the following record; rows stop at the first all-zero
// pair.
func (e *Editor) PartnerRows() ([]Partner, error) {
	if e.buf == nil {
		return nil, ErrNoImage
	}

	switch e.profile.Layout {
	case layoutPacked:
		return e.packedRows()
	default:
		return e.stridedRows()
	}
}

func (e *Editor) packedWords() ([]int, error) {
	n := e.profile.RecordCount * e.profile.RecordSize / 2
	words := make([]int, n)
	for i := range words {
		v, ok := e.buf.Uint16(e.profile.StatsBase + i*2)
		if !ok {
			return nil, ErrBadStatsTable
		}
		words[i] = int(v)
	}
	return words, nil
}

func (e *Editor) packedRows() ([]Partner, error) {
	words, err := e.packedWords()
	if err != nil {
		return nil, err
	}

	rows := []Partner{{
		Slot:      0,
		NameIndex: e.profile.FirstNameIndex,
		Stage:     words[0],
		Unknown1:  words[1],
		Power:     words[2],
		Unknown2:  words[3],
	}}

	for b := 4; b+5 <= len(words); b += 5 {
		rows = append(rows, Partner{
			Slot:      len(rows),
			NameIndex: words[b],
			Stage:     words[b+1],
			Unknown1:  words[b+2],
			Power:     words[b+3],
			Unknown2:  words[b+4],
		})
	}
	return rows, nil
}

func (e *Editor) stridedRows() ([]Partner, error) {
	var rows []Partner
	for i := 0; i < e.profile.RecordCount; i++ {
		nameIdx, ok := e.statsWord(i, 2)
		if !ok {
			break
		}
		power, ok := e.statsWord(i+1, 0)
		if !ok {
			break
		}
		if nameIdx == 0 && power == 0 {
			break
		}

		stage, _ := e.statsWord(i, 0)
		u1, _ := e.statsWord(i, 1)
		u2, _ := e.statsWord(i, 3)
		rows = append(rows, Partner{
			Slot:      i,
			NameIndex: nameIdx,
			Stage:     stage,
			Power:     power,
			Unknown1:  u1,
			Unknown2:  u2,
		})
	}
	if rows == nil {
		return nil, ErrBadStatsTable
	}
	return rows, nil
}

// WritePartnerRows writes rows back into the table. A row whose power
// exceeds the profile cap keeps the power word already in the image; the
// cap protects the charging circuit tuning and raising it bricks the
// device. Other fields of such a row are still written.
func (e *Editor) WritePartnerRows(rows []Partner) error {
	if e.buf == nil {
		return ErrNoImage
	}

	switch e.profile.Layout {
	case layoutPacked:
		return e.writePackedRows(rows)
	default:
		return e.writeStridedRows(rows)
	}
}

func (e *Editor) writePackedRows(rows []Partner) error {
	if len(rows) == 0 {
		return nil
	}

	old, err := e.packedWords()
	if err != nil {
		return err
	}

	words := make([]int, 0, len(old))
	r0 := rows[0]
	words = append(words, r0.Stage, r0.Unknown1, e.capPower(r0, old[2]), r0.Unknown2)

	for i, r := range rows[1:] {
		b := 4 + i*5
		oldPower := 0
		if b+3 < len(old) {
			oldPower = old[b+3]
		}
		words = append(words, r.NameIndex, r.Stage, r.Unknown1, e.capPower(r, oldPower), r.Unknown2)
	}

	// pad or clip to the fixed table size
	for len(words) < len(old) {
		words = append(words, old[len(words)])
	}
	words = words[:len(old)]

	for i, w := range words {
		if err := e.buf.PutUint16(e.profile.StatsBase+i*2, uint16(w)); err != nil {
			return fmt.Errorf("writing stats word %d: %w", i, err)
		}
	}
	return nil
}

func (e *Editor) writeStridedRows(rows []Partner) error {
	for _, r := range rows {
		if r.Slot < 0 || r.Slot >= e.profile.RecordCount {
			return fmt.Errorf("%w: slot %d", ErrBadStatsTable, r.Slot)
		}

		if r.Power > e.profile.MaxPower {
			e.logger.Warn("Power above cap, keeping stored value",
				log.Int("slot", r.Slot),
				log.Int("power", r.Power))
		} else if err := e.putStatsWord(r.Slot+1, 0, r.Power); err != nil {
			return err
		}
	}
	return nil
}

// capPower returns the power word to store for a row, falling back to the
// image's current word above the cap.
func (e *Editor) capPower(r Partner, oldPower int) int {
	if r.Power > e.profile.MaxPower {
		e.logger.Warn("Power above cap, keeping stored value",
			log.Int("slot", r.Slot),
			log.Int("power", r.Power))
		return oldPower
	}
	return r.Power
}
