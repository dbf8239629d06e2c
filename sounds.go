package tamarom

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/retroenv/retrogolib/log"

	"github.com/bodgit/tamarom/adpcm"
	"github.com/bodgit/tamarom/audio"
	"github.com/bodgit/tamarom/patch"
)

// SoundOptions tunes the sound flows.
type SoundOptions struct {
	// TargetDB is the RMS loudness imported audio is normalised to.
	// Zero means -12 dBFS.
	TargetDB float64

	DryRun bool
}

func (o SoundOptions) targetDB() float64 {
	if o.TargetDB == 0 {
		return -12
	}
	return o.TargetDB
}

const limiterCeiling = 0.98

func blockFile(idx int) string { return fmt.Sprintf("spf2alp_%03d.wav", idx) }
func chunkFile(idx int) string { return fmt.Sprintf("chunk_%04X.wav", idx) }

// ExportBlocks decodes every SPF2ALP sound into dir as
// spf2alp_{index}.wav at the rate its header declares.
func (e *Editor) ExportBlocks(ctx context.Context, dir string) (int, error) {
	if e.buf == nil {
		return 0, ErrNoImage
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	blocks := audio.ScanBlocks(e.buf.Bytes())
	e.logger.Debug("Found sound blocks", log.Int("blocks", len(blocks)))

	for _, b := range blocks {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		data, ok := e.buf.View(b.DataStart, b.SlotBytes())
		if !ok {
			continue
		}

		var dec adpcm.State
		if err := writeWAVFile(filepath.Join(dir, blockFile(b.Index)), dec.Decode(data), b.Rate); err != nil {
			return 0, err
		}
	}
	return len(blocks), nil
}

// ImportBlocks replaces every SPF2ALP sound that has a matching
// spf2alp_{index}.wav in dir. The replacement is normalised, resampled to
// the block's rate, encoded, and trimmed or zero padded to exactly fill
// the slot; blocks without a file are left alone.
func (e *Editor) ImportBlocks(ctx context.Context, dir string, opts SoundOptions) (patch.Summary, error) {
	var summary patch.Summary
	if e.buf == nil {
		return summary, ErrNoImage
	}

	for _, b := range audio.ScanBlocks(e.buf.Bytes()) {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		pcm, ok := e.readSound(filepath.Join(dir, blockFile(b.Index)), b.Rate, opts, &summary)
		if !ok {
			continue
		}

		var enc adpcm.State
		data := enc.Encode(pcm)
		if len(data) == 0 {
			e.logger.Warn("Encoded sound is empty, skipping",
				log.Int("block", b.Index))
			summary.Skipped++
			continue
		}

		switch {
		case len(data) > b.SlotBytes():
			summary.Trimmed++
		case len(data) < b.SlotBytes():
			summary.Padded++
		}

		if opts.DryRun {
			summary.Updated++
			continue
		}

		_, _, err := patch.Apply(e.buf, patch.Patch{
			Offset: b.DataStart,
			Data:   data,
			Slot:   b.SlotBytes(),
		}, patch.Fit)
		if err != nil {
			summary.Skipped++
			continue
		}
		summary.Updated++
	}
	return summary, nil
}

// ExportChunks decodes every A18 sound into dir as chunk_{index}.wav. The
// chunks carry no rate, so the device's fixed playback rate is assumed.
func (e *Editor) ExportChunks(ctx context.Context, dir string) (int, error) {
	if e.buf == nil {
		return 0, ErrNoImage
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	chunks := audio.ScanChunks(e.buf.Bytes())
	e.logger.Debug("Found sound chunks", log.Int("chunks", len(chunks)))

	for _, c := range chunks {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		data, ok := e.buf.View(c.DataStart(), c.PayloadLen)
		if !ok {
			continue
		}

		var dec adpcm.State
		if err := writeWAVFile(filepath.Join(dir, chunkFile(c.Index)), dec.Decode(data), audio.DefaultChunkRate); err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

// ImportChunks replaces every A18 sound that has a matching
// chunk_{index}.wav in dir. A payload over the slot is trimmed and the
// chunk's length header rewritten to the trimmed size, so the firmware
// never reads past the slot.
func (e *Editor) ImportChunks(ctx context.Context, dir string, opts SoundOptions) (patch.Summary, error) {
	var summary patch.Summary
	if e.buf == nil {
		return summary, ErrNoImage
	}

	for _, c := range audio.ScanChunks(e.buf.Bytes()) {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		pcm, ok := e.readSound(filepath.Join(dir, chunkFile(c.Index)), audio.DefaultChunkRate, opts, &summary)
		if !ok {
			continue
		}

		var enc adpcm.State
		payload := enc.Encode(pcm)
		if len(payload) == 0 {
			summary.Skipped++
			continue
		}

		slot := c.End() - c.Start
		if len(payload) > slot-6 {
			summary.Trimmed++
		} else if len(payload) < slot-6 {
			summary.Padded++
		}

		if opts.DryRun {
			summary.Updated++
			continue
		}

		_, _, err := patch.Apply(e.buf, patch.Patch{
			Offset: c.Start,
			Data:   audio.RebuildChunk(payload, slot),
		}, patch.Exact)
		if err != nil {
			summary.Skipped++
			continue
		}
		summary.Updated++
	}
	return summary, nil
}

// readSound loads, normalises and resamples one replacement WAV. A
// missing file is not an error, just a block kept as is.
func (e *Editor) readSound(path string, rate int, opts SoundOptions, summary *patch.Summary) ([]int16, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			e.logger.Warn("Skipping unreadable WAV",
				log.String("path", path), log.Err(err))
			summary.Skipped++
		}
		return nil, false
	}
	defer f.Close()

	pcm, srcRate, err := audio.ReadWAV(f)
	if err != nil {
		e.logger.Warn("Skipping WAV",
			log.String("path", path), log.Err(err))
		summary.Skipped++
		return nil, false
	}

	pcm = audio.Resample(pcm, srcRate, rate)
	return audio.Normalize(pcm, opts.targetDB(), limiterCeiling), true
}

func writeWAVFile(path string, pcm []int16, rate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, pcm, rate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
