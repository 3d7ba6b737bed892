// Package worker implements the scatter-gather worker pool: calibration,
// windowing, 2D FFT, log-power, peak search, and Doppler centroid
// interpolation per (CPI, channel) task.
//
// Slot mailbox generalized from the teacher's per-channel
// wake_up_cond/wake_up_mutex transmit-queue arrays (tq.go) to one mailbox
// per worker slot instead of one per radio channel.
package worker

import (
	"sync"

	"github.com/kgrobelny/radarproc/internal/calibration"
	"github.com/kgrobelny/radarproc/internal/cpi"
)

// Task is the input metadata and data a dispatcher hands to a slot. Params
// is cloned from the CPI-level metadata the dispatcher derived for this
// block, identical across every channel's task for the same block.
type Task struct {
	Channel int
	Params  cpi.Params
	Calib   calibration.Coeffs
	Input   []complex64 // row-major W*S, owned by the slot after copy
}

// Result is the output a worker publishes back through its slot.
type Result struct {
	Channel     int
	Params      cpi.Params
	Power       []float64 // row-major W*S log-power
	RangeIdx    int
	DopplerIdx  int
	DopplerFrac float64
	PeakDB      float64
}

// Slot is a capacity-one mailbox tagged by an integer slot index. The
// dispatcher and gather stage address it by index (an arena pattern); it
// never escapes the pool by pointer to any other owner.
type Slot struct {
	mu         sync.Mutex
	inputFull  *sync.Cond
	outputFull *sync.Cond
	inFull     bool
	outFull    bool
	stopped    bool

	task   Task
	result Result
}

func newSlot() *Slot {
	s := &Slot{}
	s.inputFull = sync.NewCond(&s.mu)
	s.outputFull = sync.NewCond(&s.mu)
	return s
}

// Dispatch fills the slot's input and marks input-full, waking the worker.
// Called by the dispatcher, which must not call it again until the worker
// has drained the task (i.e. after the matching Harvest by gather).
func (s *Slot) Dispatch(t Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.task = t
	s.inFull = true
	s.inputFull.Signal()
}

// waitInput blocks until input-full or stop, for the worker goroutine.
func (s *Slot) waitInput() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.inFull && !s.stopped {
		s.inputFull.Wait()
	}
	if s.stopped {
		return Task{}, false
	}
	t := s.task
	s.inFull = false
	return t, true
}

// publish is called by the worker goroutine once processing completes.
func (s *Slot) publish(r Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = r
	s.outFull = true
	s.outputFull.Signal()
}

// Harvest blocks until output-full, for the gather stage, then clears the
// flag and returns the result.
func (s *Slot) Harvest() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.outFull && !s.stopped {
		s.outputFull.Wait()
	}
	if s.stopped && !s.outFull {
		return Result{}, false
	}
	r := s.result
	s.outFull = false
	return r, true
}

// Stop wakes any goroutine blocked on this slot so it can unwind.
func (s *Slot) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	s.inputFull.Broadcast()
	s.outputFull.Broadcast()
}
