package recorder

import "sync"

// TargetLine is one channel's latest target Doppler line, as published by
// the DisplayFormatter.
type TargetLine struct {
	Channel int
	BlockID uint64
	Pixels  []byte
}

// DBSink is a trivial in-memory stand-in for the optional database sink:
// a bounded ring of recent target lines.
type DBSink struct {
	mu       sync.Mutex
	capacity int
	lines    []TargetLine
}

// NewDBSink constructs a DBSink retaining at most capacity recent lines.
func NewDBSink(capacity int) *DBSink {
	if capacity <= 0 {
		capacity = 1
	}
	return &DBSink{capacity: capacity}
}

// Publish appends a target line, evicting the oldest if at capacity.
func (d *DBSink) Publish(line TargetLine) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = append(d.lines, line)
	if len(d.lines) > d.capacity {
		d.lines = d.lines[len(d.lines)-d.capacity:]
	}
}

// Recent returns a copy of the currently retained target lines, oldest
// first.
func (d *DBSink) Recent() []TargetLine {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TargetLine, len(d.lines))
	copy(out, d.lines)
	return out
}
