// Package recorder implements the processed-data log, raw capture
// recorder, and an in-memory DB sink, each a concrete io.Writer-backed
// sink satisfying the interfaces the pipeline depends on. File rotation
// follows the teacher's log.go daily-rotation idiom, generalized from
// daily rotation to a configurable max-open-seconds rotation.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

// ProcessedLog appends one line per CPI:
// block_id,YYYY,MM,DD,HH:MM:SS.ffffff,peakDoppler_0,peakAmplitude_0,...
// Files rotate when open time exceeds MaxOpenSec.
type ProcessedLog struct {
	mu       sync.Mutex
	dir      string
	maxOpen  time.Duration
	f        *os.File
	openedAt time.Time
	failed   bool
}

// filenamePattern is the strftime pattern for rotated processed-log files,
// formatted the same way the teacher formats optional timestamp prefixes
// in tq.go via strftime.Format.
const filenamePattern = "proc_%Y%m%d_%H%M%S.log"

// NewProcessedLog constructs a rotating processed-data logger writing
// into dir, rotating after maxOpen has elapsed since the file was opened.
func NewProcessedLog(dir string, maxOpen time.Duration) (*ProcessedLog, error) {
	return &ProcessedLog{dir: dir, maxOpen: maxOpen}, nil
}

// Channel is one channel's measurement for a processed-data log line.
type Channel struct {
	PeakDopplerMS float64
	PeakAmplitude float64
}

// Append writes one line for a CPI. On recorder open failure, it disables
// itself and latches the failure flag to avoid thrashing retries, per the
// recoverable-error taxonomy.
func (p *ProcessedLog) Append(blockID uint64, wallClock time.Time, channels []Channel) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed {
		return nil
	}

	if p.f == nil || time.Since(p.openedAt) > p.maxOpen {
		if err := p.rotate(wallClock); err != nil {
			p.failed = true
			return err
		}
	}

	line := fmt.Sprintf("%d,%s", blockID, wallClock.UTC().Format("2006,01,02,15:04:05.000000"))
	for _, ch := range channels {
		line += fmt.Sprintf(",%.3f,%.2f", ch.PeakDopplerMS, ch.PeakAmplitude)
	}
	line += "\n"

	if _, err := p.f.WriteString(line); err != nil {
		return fmt.Errorf("recorder: write processed log: %w", err)
	}
	return nil
}

func (p *ProcessedLog) rotate(now time.Time) error {
	if p.f != nil {
		p.f.Close()
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	name, err := strftime.Format(filenamePattern, now.UTC())
	if err != nil {
		return fmt.Errorf("recorder: strftime format: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(p.dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	p.f = f
	p.openedAt = now
	return nil
}

// Close closes the currently open file, if any.
func (p *ProcessedLog) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// Failed reports whether the recorder has latched a failure and disabled
// itself.
func (p *ProcessedLog) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed
}
