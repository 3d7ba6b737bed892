package recorder

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

const rawFilenamePattern = "raw_%Y%m%d_%H%M%S.pcm"

// RawRecorder writes interleaved float32 PCM samples into a minimal
// WAV-style container, rotating when open time exceeds MaxOpenSec.
type RawRecorder struct {
	mu       sync.Mutex
	dir      string
	maxOpen  time.Duration
	sampleRate float64
	channels int
	f        *os.File
	openedAt time.Time
	bytesWritten uint32
	failed   bool
}

// NewRawRecorder constructs a rotating raw-capture recorder.
func NewRawRecorder(dir string, sampleRate float64, channels int, maxOpen time.Duration) *RawRecorder {
	return &RawRecorder{dir: dir, sampleRate: sampleRate, channels: channels, maxOpen: maxOpen}
}

// WriteBlock appends one block of interleaved float32 samples. Satisfies
// dispatch.RawRecorder.
func (r *RawRecorder) WriteBlock(samples []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed {
		return nil
	}

	now := time.Now()
	if r.f == nil || time.Since(r.openedAt) > r.maxOpen {
		if err := r.rotate(now); err != nil {
			r.failed = true
			return err
		}
	}

	for _, s := range samples {
		if err := binary.Write(r.f, binary.LittleEndian, s); err != nil {
			return fmt.Errorf("recorder: write raw sample: %w", err)
		}
	}
	r.bytesWritten += uint32(len(samples) * 4)
	return nil
}

func (r *RawRecorder) rotate(now time.Time) error {
	if r.f != nil {
		r.f.Close()
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	name, err := strftime.Format(rawFilenamePattern, now.UTC())
	if err != nil {
		return fmt.Errorf("recorder: strftime format: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := writeWAVHeader(f, r.sampleRate, r.channels); err != nil {
		f.Close()
		return err
	}
	r.f = f
	r.openedAt = now
	r.bytesWritten = 0
	return nil
}

// writeWAVHeader writes a minimal IEEE-float WAV header with a
// placeholder data size (not patched on close, since this recorder is
// meant for streaming capture rather than seekable playback files).
func writeWAVHeader(f *os.File, sampleRate float64, channels int) error {
	byteRate := uint32(sampleRate) * uint32(channels) * 4
	blockAlign := uint16(channels * 4)

	write := func(v interface{}) error { return binary.Write(f, binary.LittleEndian, v) }

	if _, err := f.WriteString("RIFF"); err != nil {
		return err
	}
	if err := write(uint32(0)); err != nil { // chunk size placeholder
		return err
	}
	if _, err := f.WriteString("WAVE"); err != nil {
		return err
	}
	if _, err := f.WriteString("fmt "); err != nil {
		return err
	}
	if err := write(uint32(16)); err != nil {
		return err
	}
	if err := write(uint16(3)); err != nil { // IEEE float
		return err
	}
	if err := write(uint16(channels)); err != nil {
		return err
	}
	if err := write(uint32(sampleRate)); err != nil {
		return err
	}
	if err := write(byteRate); err != nil {
		return err
	}
	if err := write(blockAlign); err != nil {
		return err
	}
	if err := write(uint16(32)); err != nil {
		return err
	}
	if _, err := f.WriteString("data"); err != nil {
		return err
	}
	return write(uint32(0)) // data size placeholder
}

// Close closes the currently open file, if any.
func (r *RawRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
