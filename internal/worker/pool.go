package worker

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/kgrobelny/radarproc/internal/fft"
)

// HammingCentroidCal is the curve-fit constant used in the Doppler centroid
// interpolation when a Hamming window is applied.
const HammingCentroidCal = 0.60

// Pool owns M worker goroutines, each with one Slot, and the process-wide
// FFT planning mutex. Plan creation is serialized; plan execution is
// thread-local and lockless once built.
type Pool struct {
	S, W int
	M    int

	slots []*Slot
	wg    sync.WaitGroup

	planMu sync.Mutex
	plans  []*fft.Plan2D // one plan per worker, built under planMu

	winS, winW []float64
	cal        float64
}

// Config carries the geometry and windows a pool needs to construct its
// FFT plans and apply the separable window.
type Config struct {
	S, W     int
	M        int
	WindowS  []float64 // length S, defaults to Hamming if nil
	WindowW  []float64 // length W, defaults to Hamming if nil
	Centroid float64   // Doppler centroid cal constant, defaults to HammingCentroidCal if 0
}

// NewPool allocates M worker slots and pre-builds one FFT plan per worker
// under the planning mutex. Returns an error (not a panic or abort) if any
// plan cannot be built, per the "explicit allocation result" design note.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.M <= 0 || cfg.M > 64 {
		return nil, fmt.Errorf("worker: pool size %d out of range (1-64)", cfg.M)
	}
	winS, winW := cfg.WindowS, cfg.WindowW
	if winS == nil {
		winS = defaultHamming(cfg.S)
	}
	if winW == nil {
		winW = defaultHamming(cfg.W)
	}
	cal := cfg.Centroid
	if cal == 0 {
		cal = HammingCentroidCal
	}

	p := &Pool{
		S: cfg.S, W: cfg.W, M: cfg.M,
		slots: make([]*Slot, cfg.M),
		plans: make([]*fft.Plan2D, cfg.M),
		winS:  winS, winW: winW,
		cal: cal,
	}

	p.planMu.Lock()
	defer p.planMu.Unlock()
	for i := 0; i < cfg.M; i++ {
		plan, err := fft.NewPlan2D(cfg.W, cfg.S)
		if err != nil {
			return nil, fmt.Errorf("worker: fft plan for slot %d: %w", i, err)
		}
		p.plans[i] = plan
		p.slots[i] = newSlot()
	}
	return p, nil
}

func defaultHamming(n int) []float64 {
	w := make([]float64, n)
	for j := 0; j < n; j++ {
		w[j] = 0.53836 - 0.46164*math.Cos((float64(j)*2*math.Pi)/(float64(n)-1))
	}
	return w
}

// Slot returns the slot at index i, for the dispatcher/gather to address
// by integer index.
func (p *Pool) Slot(i int) *Slot {
	return p.slots[i]
}

// Start launches one goroutine per slot.
func (p *Pool) Start() {
	for i := range p.slots {
		p.wg.Add(1)
		go p.runWorker(i)
	}
}

// Stop signals every slot and joins all worker goroutines, then destroys
// the FFT plans under the planning mutex.
func (p *Pool) Stop() {
	for _, s := range p.slots {
		s.Stop()
	}
	p.wg.Wait()

	p.planMu.Lock()
	defer p.planMu.Unlock()
	for i := range p.plans {
		p.plans[i] = nil
	}
}

func (p *Pool) runWorker(i int) {
	defer p.wg.Done()
	slot := p.slots[i]
	plan := p.plans[i]

	for {
		task, ok := slot.waitInput()
		if !ok {
			return
		}
		result := p.process(plan, task)
		slot.publish(result)
	}
}

func (p *Pool) process(plan *fft.Plan2D, task Task) Result {
	s, w := p.S, p.W
	data := make([]complex128, s*w)

	dc := complex128(task.Calib.DC)
	x := task.Calib.X

	for row := 0; row < w; row++ {
		for col := 0; col < s; col++ {
			idx := row*s + col
			v := complex128(task.Input[idx])

			chDC := dc
			if task.Calib.PerBinDC != nil {
				chDC = complex128(task.Calib.PerBinDC[col])
			}
			r := real(v) - real(chDC)
			im := imag(v) - imag(chDC)

			r2 := x[0][0]*r + x[0][1]*im
			i2 := x[1][0]*r + x[1][1]*im

			win := p.winS[col] * p.winW[row]
			data[idx] = complex(r2*win, i2*win)
		}
	}

	plan.Execute(data)

	power := make([]float64, s*w)
	for i, v := range data {
		mag2 := real(v)*real(v) + imag(v)*imag(v)
		power[i] = 10 * math.Log10(mag2+1e-15)
	}

	rangeIdx, dopplerIdx, peakDB := findPeak(power, w, s)
	frac := dopplerCentroid(data, w, s, rangeIdx, dopplerIdx, p.cal)

	return Result{
		Channel:     task.Channel,
		Params:      task.Params,
		Power:       power,
		RangeIdx:    rangeIdx,
		DopplerIdx:  dopplerIdx,
		DopplerFrac: frac,
		PeakDB:      peakDB,
	}
}

func findPeak(power []float64, w, s int) (rangeIdx, dopplerIdx int, peakDB float64) {
	peakDB = math.Inf(-1)
	for row := 0; row < w; row++ {
		for col := 0; col < s; col++ {
			v := power[row*s+col]
			if v > peakDB {
				peakDB = v
				dopplerIdx = row
				rangeIdx = col
			}
		}
	}
	return
}

// dopplerCentroid performs three-point quadratic interpolation on the
// complex FFT bins straddling the Doppler peak, skipped at Doppler edges.
func dopplerCentroid(data []complex128, w, s, rangeIdx, dopplerIdx int, cal float64) float64 {
	if dopplerIdx == 0 || dopplerIdx == w-1 {
		return 0
	}
	a := data[(dopplerIdx-1)*s+rangeIdx]
	b := data[dopplerIdx*s+rangeIdx]
	c := data[(dopplerIdx+1)*s+rangeIdx]
	denom := 2*b + a + c
	if cmplx.Abs(denom) == 0 {
		return 0
	}
	return cal * real((a-c)/denom)
}
