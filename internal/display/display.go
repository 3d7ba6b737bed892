// Package display implements DisplayFormatter: DTI scroll, dB-to-palette
// RDI mapping, Doppler-axis FFT-shift, target line extraction, and peak
// overlay.
package display

import (
	"math"

	"github.com/kgrobelny/radarproc/internal/fft"
	"github.com/kgrobelny/radarproc/internal/palette"
)

// ChannelSurfaces holds the raster state for one channel: a scrolling DTI
// of height H, an RDI of W*S pixels, and the latest target Doppler line.
type ChannelSurfaces struct {
	W, S int
	H    int

	// RDI and DTI pixels are stored BGRA, row-major.
	RDI []byte // len W*S*4
	DTI []byte // len H*W*4

	TargetLine []byte // len W*4, the most recent row appended to DTI
}

func newChannelSurfaces(w, s, h int) *ChannelSurfaces {
	return &ChannelSurfaces{
		W: w, S: s, H: h,
		RDI:        make([]byte, w*s*4),
		DTI:        make([]byte, h*w*4),
		TargetLine: make([]byte, w*4),
	}
}

// Formatter owns DisplaySurfaces for every channel plus the active
// palette. Consumes ProcessedCPI-shaped inputs in order.
type Formatter struct {
	channels map[int]*ChannelSurfaces
	pal      palette.Table
	h        int
}

// New constructs a Formatter with height H for the DTI scroll history and
// the given initial palette.
func New(h int, pal palette.Table) *Formatter {
	return &Formatter{channels: make(map[int]*ChannelSurfaces), pal: pal, h: h}
}

// SetPalette swaps the active palette for subsequent frames.
func (f *Formatter) SetPalette(pal palette.Table) {
	f.pal = pal
}

// ChannelInput is the per-channel data the formatter needs for one frame.
type ChannelInput struct {
	Channel     int
	Power       []float64 // row-major W*S log-power, pre-shift
	W, S        int
	RangeIdx    int
	DopplerIdx  int
	DopplerFrac float64
	RefDB       float64
	DispRange   float64
	PeakOverlay bool
}

// Process applies one channel's frame: FFT-shifts the Doppler axis, maps
// to palette, extracts the target line, optionally overlays the peak, and
// scrolls it into the DTI. Returns the surfaces for the channel so callers
// can read RDI/DTI/TargetLine immediately.
func (f *Formatter) Process(in ChannelInput) *ChannelSurfaces {
	cs, ok := f.channels[in.Channel]
	if !ok || cs.W != in.W || cs.S != in.S {
		cs = newChannelSurfaces(in.W, in.S, f.h)
		f.channels[in.Channel] = cs
	}

	power := append([]float64(nil), in.Power...)
	fft.ShiftFloat64(power, in.W, in.S)

	// Doppler index shifts along with the data: bins [0,W/2) move to the
	// upper half and vice versa.
	shiftedDoppler := (in.DopplerIdx + in.W/2) % in.W

	for i, p := range power {
		v := clampByte((p + in.RefDB) / in.DispRange * 256)
		gray := f.pal[v]
		o := i * 4
		cs.RDI[o+0] = gray.B
		cs.RDI[o+1] = gray.G
		cs.RDI[o+2] = gray.R
		cs.RDI[o+3] = 255
	}

	line := make([]byte, in.W*4)
	for row := 0; row < in.W; row++ {
		srcOff := (row*in.S + in.RangeIdx) * 4
		copy(line[row*4:row*4+4], cs.RDI[srcOff:srcOff+4])
	}

	if in.PeakOverlay && shiftedDoppler >= 0 && shiftedDoppler < in.W {
		o := shiftedDoppler * 4
		line[o+0] = 255 // force blue channel
	}

	cs.TargetLine = line
	scrollAndAppend(cs, line)

	return cs
}

func scrollAndAppend(cs *ChannelSurfaces, line []byte) {
	rowBytes := cs.W * 4
	copy(cs.DTI[:len(cs.DTI)-rowBytes], cs.DTI[rowBytes:])
	copy(cs.DTI[len(cs.DTI)-rowBytes:], line)
}

func clampByte(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	iv := int(v)
	if iv < 0 {
		return 0
	}
	if iv > 255 {
		return 255
	}
	return iv
}

// Surfaces returns the current surfaces for a channel, or nil if no frame
// has been processed yet.
func (f *Formatter) Surfaces(channel int) *ChannelSurfaces {
	return f.channels[channel]
}
