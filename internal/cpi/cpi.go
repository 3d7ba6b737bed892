// Package cpi implements RawCPIBuffer, the per-channel complex sample
// matrix spanning one coherent processing interval.
package cpi

import "time"

// Params mirrors CPIParams: the immutable metadata that travels with a CPI
// from dispatch through to the processed output. TOV and WallClock are
// derived once, at dispatch time, from the block's device timestamp via a
// clock.Epoch, and then carried by value through every worker task and
// result for this CPI.
type Params struct {
	TOV        time.Duration // time-of-validity, relative to the stream epoch
	WallClock  time.Time
	BlockID    uint64
	FrameCount uint64
	SampleRate float64
	S          int // samples per WRI
	W          int // WRIs per CPI
	Channels   int
	RealOnly   bool
}

// Buffer holds, for each channel, an S*W row-major (WRI-major,
// sample-minor) matrix of complex64 samples. The last S*B samples of each
// channel hold the most recent input block; when W > B the older rows
// slide up on ShiftUp to preserve phase continuity across CPIs.
type Buffer struct {
	S, W, B  int
	Channels int
	data     [][]complex64 // [channel][S*W]
}

// New allocates a RawCPIBuffer for the given geometry.
func New(s, w, b, channels int) *Buffer {
	if s <= 0 || w <= 0 || b <= 0 || b > w || channels <= 0 {
		panic("cpi: invalid buffer geometry")
	}
	data := make([][]complex64, channels)
	for c := range data {
		data[c] = make([]complex64, s*w)
	}
	return &Buffer{S: s, W: w, B: b, Channels: channels, data: data}
}

// ShiftUp discards the oldest S*B samples of every channel and slides the
// remaining S*(W-B) rows toward the front, when W > B. A no-op when W == B.
func (buf *Buffer) ShiftUp() {
	if buf.W == buf.B {
		return
	}
	keep := buf.S * (buf.W - buf.B)
	for c := range buf.data {
		copy(buf.data[c][:keep], buf.data[c][buf.S*buf.B:])
	}
}

// Load copies and deinterleaves one input block into the tail region
// (offset S*(W-B)). For IQ data, samples in block are interleaved
// (r0,i0)_ch0,(r0,i0)_ch1,...; for real-only data, samples are interleaved
// per channel with imag implicitly zero. Returns the offset where the new
// data begins in each channel's matrix.
func (buf *Buffer) Load(block []float32, realOnly bool) (offset int) {
	offset = buf.S * (buf.W - buf.B)
	n := buf.S * buf.B

	if realOnly {
		idx := 0
		for i := 0; i < n; i++ {
			for c := 0; c < buf.Channels; c++ {
				buf.data[c][offset+i] = complex(block[idx], 0)
				idx++
			}
		}
		return offset
	}

	idx := 0
	for i := 0; i < n; i++ {
		for c := 0; c < buf.Channels; c++ {
			r := block[idx]
			im := block[idx+1]
			buf.data[c][offset+i] = complex(r, im)
			idx += 2
		}
	}
	return offset
}

// AddSim element-wise adds a simulated CPI slice into the tail region of
// one channel, starting at offset.
func (buf *Buffer) AddSim(channel int, sim []complex64, offset int) {
	dst := buf.data[channel]
	for i, v := range sim {
		dst[offset+i] += v
	}
}

// CopyOut copies one channel's full S*W matrix into dest, which must have
// length S*W.
func (buf *Buffer) CopyOut(channel int, dest []complex64) {
	copy(dest, buf.data[channel])
}

// Channel returns a read-only view of one channel's current matrix.
func (buf *Buffer) Channel(channel int) []complex64 {
	return buf.data[channel]
}
