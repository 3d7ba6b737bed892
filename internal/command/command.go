// Package command implements CommandState: a small thread-safe record
// carrying display scale, simulation toggle, recording toggles, colormap
// selection, and peak overlay, plus the status record for UI query.
package command

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Colormap selects a DisplayFormatter palette.
type Colormap int

const (
	ColormapHot Colormap = iota
	ColormapJet
	ColormapGray
)

// Kind tags the variant carried by a Command.
type Kind int

const (
	SetDisplayScale Kind = iota
	SetColormap
	SetPeakOverlay
	SetRawRecording
	SetProcRecording
	SetSimOn
	SetSimAmp
	Exit
)

// Command is a tagged-variant instruction applied to State through a
// single Apply entry point.
type Command struct {
	Kind     Kind
	RefDB    float64
	Range    float64
	Colormap Colormap
	Bool     bool
	SimAmpDB float64
}

// Status mirrors the external status record for UI query.
type Status struct {
	SimOn        bool
	RecRaw       bool
	RecProc      bool
	MarkPeak     bool
	SimAmpDB     float64
	DispRange    float64
	DispRef      float64
	Colormap     Colormap
	CentFreqHz   float64
	BWHz         float64
	SampRateHz   float64
	NWRI         int
	NSampPerWRI  int
}

// State is the small thread-safe record the pipeline reads through Status
// and the command listener mutates through Apply. Booleans and the sim
// amplitude use relaxed atomics since every write is total; the display
// scale and the colormap/geometry snapshot are protected by a mutex.
type State struct {
	mu sync.RWMutex

	refDB       float64
	dispRange   float64
	colormap    Colormap
	centFreqHz  float64
	bwHz        float64
	sampRateHz  float64
	nWRI        int
	nSampPerWRI int

	simOn       atomic.Bool
	simAmpDB    atomic.Uint64 // bits of a float64
	peakOverlay atomic.Bool
	rawRec      atomic.Bool
	procRec     atomic.Bool
	exitReq     atomic.Bool
}

// New constructs a State with the given static geometry snapshot and
// sensible initial display scale.
func New(centFreqHz, bwHz, sampRateHz float64, nWRI, nSampPerWRI int) *State {
	s := &State{
		refDB:       -40,
		dispRange:   40,
		colormap:    ColormapGray,
		centFreqHz:  centFreqHz,
		bwHz:        bwHz,
		sampRateHz:  sampRateHz,
		nWRI:        nWRI,
		nSampPerWRI: nSampPerWRI,
	}
	s.simAmpDB.Store(math.Float64bits(-20))
	return s
}

// Apply validates and applies one command. It returns an error for
// malformed parameters (non-finite SetSimAmp, out-of-range or non-finite
// SetDisplayScale arguments); the previous state is retained on error. A
// finite SetSimAmp outside [-100, 0] is clamped into that range.
func (s *State) Apply(c Command) error {
	switch c.Kind {
	case SetDisplayScale:
		if !(c.Range > 5 && c.Range < 100) {
			return fmt.Errorf("command: display range %v out of (5,100)", c.Range)
		}
		if math.IsNaN(c.RefDB) || math.IsInf(c.RefDB, 0) {
			return fmt.Errorf("command: display ref %v not finite", c.RefDB)
		}
		s.mu.Lock()
		s.refDB = c.RefDB
		s.dispRange = c.Range
		s.mu.Unlock()

	case SetColormap:
		s.mu.Lock()
		s.colormap = c.Colormap
		s.mu.Unlock()

	case SetPeakOverlay:
		s.peakOverlay.Store(c.Bool)

	case SetRawRecording:
		s.rawRec.Store(c.Bool)

	case SetProcRecording:
		s.procRec.Store(c.Bool)

	case SetSimOn:
		s.simOn.Store(c.Bool)

	case SetSimAmp:
		if math.IsNaN(c.SimAmpDB) || math.IsInf(c.SimAmpDB, 0) {
			return fmt.Errorf("command: sim amp %v not finite", c.SimAmpDB)
		}
		s.simAmpDB.Store(math.Float64bits(math.Max(-100, math.Min(0, c.SimAmpDB))))

	case Exit:
		s.exitReq.Store(true)

	default:
		return fmt.Errorf("command: unknown kind %v", c.Kind)
	}
	return nil
}

// ExitRequested reports whether an Exit command has been applied.
func (s *State) ExitRequested() bool {
	return s.exitReq.Load()
}

// Status snapshots the current state for UI query.
func (s *State) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		SimOn:       s.simOn.Load(),
		RecRaw:      s.rawRec.Load(),
		RecProc:     s.procRec.Load(),
		MarkPeak:    s.peakOverlay.Load(),
		SimAmpDB:    math.Float64frombits(s.simAmpDB.Load()),
		DispRange:   s.dispRange,
		DispRef:     s.refDB,
		Colormap:    s.colormap,
		CentFreqHz:  s.centFreqHz,
		BWHz:        s.bwHz,
		SampRateHz:  s.sampRateHz,
		NWRI:        s.nWRI,
		NSampPerWRI: s.nSampPerWRI,
	}
}
