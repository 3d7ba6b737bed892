// Package ringbuffer implements the fixed-capacity single-producer/
// single-consumer block queue between the ADC callback and the dispatcher.
package ringbuffer

import (
	"context"
	"sync"
	"time"
)

// Block is one fixed-size slot of interleaved float32 samples plus the
// metadata stamped on it at commit time.
type Block struct {
	Samples     []float32
	DeviceTime  float64
	FrameCount  uint64
	Overwritten bool
}

// RingBuffer is a fixed-capacity ring of N blocks, each sized for
// blockSamples float32s. The producer calls NextFree/Commit; the consumer
// calls WaitBlock/Release. A single mutex guards both cursors and the
// count; a condition variable signals non-empty transitions.
type RingBuffer struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	blocks   []Block
	write    int
	read     int
	count    int
	overruns uint64
}

// New allocates a ring of n blocks, each holding blockSamples float32s.
func New(n, blockSamples int) *RingBuffer {
	if n <= 0 || blockSamples <= 0 {
		panic("ringbuffer: n and blockSamples must be positive")
	}
	rb := &RingBuffer{
		blocks: make([]Block, n),
	}
	for i := range rb.blocks {
		rb.blocks[i].Samples = make([]float32, blockSamples)
	}
	rb.notEmpty = sync.NewCond(&rb.mu)
	return rb
}

// Capacity returns N, the number of blocks in the ring.
func (rb *RingBuffer) Capacity() int {
	return len(rb.blocks)
}

// NextFree returns the producer's write slot index. It never blocks and
// does not advance the write cursor.
func (rb *RingBuffer) NextFree() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.write
}

// Commit advances the write cursor modulo N, stamping the block with the
// given device timestamp and frame counter. If the ring is full it fails
// soft: it logs via the returned bool, leaves cursors untouched, and lets
// the caller overwrite the slot on the next call (data corrupted, flagged).
func (rb *RingBuffer) Commit(index int, deviceTime float64, frameCount uint64) (overrun bool) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count == len(rb.blocks) {
		rb.overruns++
		rb.blocks[index].Overwritten = true
		return true
	}

	rb.blocks[index].DeviceTime = deviceTime
	rb.blocks[index].FrameCount = frameCount
	rb.blocks[index].Overwritten = false
	rb.write = (rb.write + 1) % len(rb.blocks)
	rb.count++
	rb.notEmpty.Signal()
	return false
}

// WaitBlock blocks up to ctx's deadline for a readable slot, returning its
// index. Spurious wakeups are tolerated internally. Returns false if ctx
// was cancelled before a block became available.
func (rb *RingBuffer) WaitBlock(ctx context.Context) (index int, ok bool) {
	done := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		rb.mu.Lock()
		defer rb.mu.Unlock()
		close(done)
		rb.notEmpty.Broadcast()
	})
	defer stop()

	rb.mu.Lock()
	defer rb.mu.Unlock()
	for rb.count == 0 {
		select {
		case <-done:
			return 0, false
		default:
		}
		if ctx.Err() != nil {
			return 0, false
		}
		rb.notEmpty.Wait()
	}
	return rb.read, true
}

// WaitBlockTimeout is a convenience wrapper over WaitBlock using a plain
// timeout instead of a caller-supplied context.
func (rb *RingBuffer) WaitBlockTimeout(timeout time.Duration) (index int, ok bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return rb.WaitBlock(ctx)
}

// Release advances the read cursor, freeing the slot for reuse.
func (rb *RingBuffer) Release() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = (rb.read + 1) % len(rb.blocks)
	rb.count--
	rb.notEmpty.Signal()
}

// At returns a pointer to the block at index, for the consumer to read
// after WaitBlock and before Release.
func (rb *RingBuffer) At(index int) *Block {
	return &rb.blocks[index]
}

// Count reports the number of filled slots currently queued.
func (rb *RingBuffer) Count() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Overruns reports the total number of failed-soft commits since creation.
func (rb *RingBuffer) Overruns() uint64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.overruns
}
