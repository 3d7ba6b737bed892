// Package calibration implements the background DC-offset and 2x2
// real/imag whitening-transform estimator.
package calibration

import (
	"fmt"
	"math"
)

// Mode selects how DC offset is estimated.
type Mode int

const (
	// ModeDCOnly estimates a single complex mean per channel.
	ModeDCOnly Mode = iota
	// ModePerBin estimates a length-S DC vector, one value per range bin.
	ModePerBin
)

// Transform is the 2x2 real whitening matrix X such that
// [r' i']^T = X . [r-dc_r, i-dc_i]^T.
type Transform [2][2]float64

// Identity returns the transform with unit real gain and no cross term.
func Identity() Transform {
	return Transform{{1, 0}, {0, 1}}
}

// Coeffs is the per-channel calibration state exchanged between the
// estimator and the dispatcher. It is copied by value into each worker
// slot, never shared by reference with a running worker.
type Coeffs struct {
	DC        complex64
	PerBinDC  []complex64 // nil in DC-only mode
	X         Transform
}

// Snapshot is the raw CPI slice handed to the estimator for one channel.
type Snapshot struct {
	Channel int
	S, W    int
	Samples []complex64 // row-major, S*W
}

// Estimator runs on its own goroutine. TrySubmit/TryCollect are the
// non-blocking entry points the dispatcher uses so a busy estimator never
// stalls the main pipeline.
type Estimator struct {
	mode  Mode
	alpha float64

	in  chan Snapshot
	out chan map[int]Coeffs

	state map[int]*channelState
}

type channelState struct {
	calls   int
	dcMean  complex64
	dcBins  []complex64
	rBar    [2][2]float64 // smoothed real/imag covariance
	haveCov bool
	x       Transform
}

// New constructs an Estimator. alpha is the steady-state smoothing factor
// (default 0.95 when <= 0); the first 20 updates per channel use a faster
// factor of 0.5 regardless. channels sizes the non-blocking input queue: the
// dispatcher submits one snapshot per channel back-to-back every
// calibration cycle, so the queue must hold at least that many or later
// channels in the same cycle get dropped as "busy" even though the
// estimator is simply still draining the first one.
func New(mode Mode, alpha float64, channels int) *Estimator {
	if alpha <= 0 {
		alpha = 0.95
	}
	if channels < 1 {
		channels = 1
	}
	return &Estimator{
		mode:  mode,
		alpha: alpha,
		in:    make(chan Snapshot, channels),
		out:   make(chan map[int]Coeffs, 1),
		state: make(map[int]*channelState),
	}
}

// TrySubmit attempts to hand a snapshot to the estimator without blocking.
// It reports false if the estimator is still processing a previous
// snapshot, in which case the dispatcher logs and drops it.
func (e *Estimator) TrySubmit(s Snapshot) bool {
	select {
	case e.in <- s:
		return true
	default:
		return false
	}
}

// TryCollect attempts to retrieve the latest coefficient map without
// blocking. ok is false when no new result is ready.
func (e *Estimator) TryCollect() (coeffs map[int]Coeffs, ok bool) {
	select {
	case c := <-e.out:
		return c, true
	default:
		return nil, false
	}
}

// Run processes snapshots until stop is closed. It is intended to run on
// its own goroutine for the lifetime of the pipeline.
func (e *Estimator) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case snap := <-e.in:
			e.process(snap)
		}
	}
}

func (e *Estimator) process(snap Snapshot) {
	st, ok := e.state[snap.Channel]
	if !ok {
		st = &channelState{x: Identity()}
		e.state[snap.Channel] = st
	}

	alpha := e.alpha
	if st.calls < 20 {
		alpha = 0.5
	}
	st.calls++

	switch e.mode {
	case ModePerBin:
		e.updatePerBin(st, snap, alpha)
	default:
		e.updateDCOnly(st, snap, alpha)
	}

	out := make(map[int]Coeffs, len(e.state))
	for ch, s := range e.state {
		c := Coeffs{DC: s.dcMean, X: s.x}
		if e.mode == ModePerBin {
			c.PerBinDC = append([]complex64(nil), s.dcBins...)
		}
		out[ch] = c
	}

	select {
	case e.out <- out:
	default:
		// Previous result not yet collected; replace it.
		select {
		case <-e.out:
		default:
		}
		e.out <- out
	}
}

func (e *Estimator) updateDCOnly(st *channelState, snap Snapshot, alpha float64) {
	var sum complex128
	n := len(snap.Samples)
	for _, v := range snap.Samples {
		sum += complex128(v)
	}
	mean := complex64(sum / complex(float64(n), 0))
	if st.calls == 1 {
		st.dcMean = mean
	} else {
		st.dcMean = lerpComplex(st.dcMean, mean, alpha)
	}

	var a, b, c float64
	dcr, dci := float64(real(st.dcMean)), float64(imag(st.dcMean))
	for _, v := range snap.Samples {
		r := float64(real(v)) - dcr
		i := float64(imag(v)) - dci
		a += r * r
		b += r * i
		c += i * i
	}
	a /= float64(n)
	b /= float64(n)
	c /= float64(n)

	st.updateCovAndTransform(a, b, c, alpha)
}

func (e *Estimator) updatePerBin(st *channelState, snap Snapshot, alpha float64) {
	s, w := snap.S, snap.W
	if len(st.dcBins) != s {
		st.dcBins = make([]complex64, s)
	}

	newBins := make([]complex64, s)
	for bin := 0; bin < s; bin++ {
		var sum complex128
		for k := 0; k < w; k++ {
			sum += complex128(snap.Samples[k*s+bin])
		}
		newBins[bin] = complex64(sum / complex(float64(w), 0))
	}

	if st.calls == 1 {
		copy(st.dcBins, newBins)
	} else {
		for i := range st.dcBins {
			st.dcBins[i] = lerpComplex(st.dcBins[i], newBins[i], alpha)
		}
	}

	// dcMean tracks the average across bins, exposed for callers that want
	// a single representative DC value alongside the per-bin vector.
	var sum complex128
	for _, v := range st.dcBins {
		sum += complex128(v)
	}
	st.dcMean = complex64(sum / complex(float64(s), 0))

	var a, b, c float64
	n := 0
	for bin := 0; bin < s; bin++ {
		dcr, dci := float64(real(st.dcBins[bin])), float64(imag(st.dcBins[bin]))
		for k := 0; k < w; k++ {
			v := snap.Samples[k*s+bin]
			r := float64(real(v)) - dcr
			i := float64(imag(v)) - dci
			a += r * r
			b += r * i
			c += i * i
			n++
		}
	}
	a /= float64(n)
	b /= float64(n)
	c /= float64(n)

	st.updateCovAndTransform(a, b, c, alpha)
}

func (st *channelState) updateCovAndTransform(a, b, c, alpha float64) {
	if !st.haveCov {
		st.rBar[0][0], st.rBar[0][1] = a, b
		st.rBar[1][0], st.rBar[1][1] = b, c
		st.haveCov = true
	} else {
		st.rBar[0][0] = alpha*st.rBar[0][0] + (1-alpha)*a
		st.rBar[0][1] = alpha*st.rBar[0][1] + (1-alpha)*b
		st.rBar[1][0] = st.rBar[0][1]
		st.rBar[1][1] = alpha*st.rBar[1][1] + (1-alpha)*c
	}

	ra, rb, rc := st.rBar[0][0], st.rBar[0][1], st.rBar[1][1]
	if x, ok := Whiten(ra, rb, rc); ok {
		st.x = x
	}
	// else: retain previous st.x (non-PD covariance); nothing is logged.
}

func lerpComplex(prev, next complex64, alpha float64) complex64 {
	pr, pi := float64(real(prev)), float64(imag(prev))
	nr, ni := float64(real(next)), float64(imag(next))
	return complex(float32(alpha*pr+(1-alpha)*nr), float32(alpha*pi+(1-alpha)*ni))
}

// Whiten solves for the whitening transform of covariance R=[a b; b c] via
// Cholesky decomposition. It returns ok=false when R is not positive
// definite (det(R) <= 0, a <= 0, or c <= 0), in which case the caller
// should retain the previous transform.
func Whiten(a, b, c float64) (Transform, bool) {
	det := a*c - b*b
	if !(det > 0 && a > 0 && c > 0) {
		return Transform{}, false
	}

	l11 := math.Sqrt(a)
	l12 := b / l11
	l22sq := c - l12*l12
	if l22sq <= 0 {
		return Transform{}, false
	}
	l22 := math.Sqrt(l22sq)

	// A = L^-1 for lower-triangular L = [[l11,0],[l12,l22]].
	a11 := 1 / l11
	a21 := -l12 / (l11 * l22)
	a22 := 1 / l22

	// Normalize so the real-channel gain is exactly 1.
	x := Transform{
		{1, 0},
		{a21 / a11, a22 / a11},
	}
	return x, true
}

// String renders coefficients for logging.
func (c Coeffs) String() string {
	return fmt.Sprintf("dc=%v X=%v", c.DC, c.X)
}
