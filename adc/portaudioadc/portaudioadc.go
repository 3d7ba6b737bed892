// Package portaudioadc implements adc.BlockSource over a real capture
// device via github.com/gordonklaus/portaudio, generalizing the teacher's
// audio.go open/start/read/stop/close device lifecycle (there expressed
// through CGo ALSA/OSS calls) to portaudio's blocking-I/O Go binding,
// which the teacher's own go.mod already depended on but never called.
package portaudioadc

import (
	"context"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/kgrobelny/radarproc/internal/adc"
)

// Source captures interleaved float32 samples from the default input
// device via a blocking portaudio stream.
type Source struct {
	stream       *portaudio.Stream
	buf          []float32
	sampleRate   float64
	frameCounter uint64
	framesPerCall uint64
}

// Open initializes portaudio and opens a blocking input stream with the
// given channel count, sample rate, and frames-per-block.
func Open(channels int, sampleRate float64, framesPerBlock int) (*Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudioadc: initialize: %w", err)
	}

	buf := make([]float32, framesPerBlock*channels)
	stream, err := portaudio.OpenDefaultStream(channels, 0, sampleRate, framesPerBlock, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudioadc: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudioadc: start stream: %w", err)
	}

	return &Source{
		stream:        stream,
		buf:           buf,
		sampleRate:    sampleRate,
		framesPerCall: uint64(framesPerBlock),
	}, nil
}

// NextBlock blocks until one block has been captured, stamping it with a
// device time derived from the cumulative frame counter (the monotonic
// measurement clock the dispatcher converts to wall-clock at the Clock
// boundary).
func (s *Source) NextBlock(ctx context.Context) (adc.Block, error) {
	readDone := make(chan error, 1)
	go func() { readDone <- s.stream.Read() }()

	select {
	case <-ctx.Done():
		return adc.Block{}, ctx.Err()
	case err := <-readDone:
		if err != nil {
			return adc.Block{}, fmt.Errorf("portaudioadc: read: %w", err)
		}
	}

	deviceTime := float64(s.frameCounter) / s.sampleRate
	out := make([]float32, len(s.buf))
	copy(out, s.buf)

	blk := adc.Block{
		Samples:    out,
		DeviceTime: deviceTime,
		FrameCount: s.frameCounter,
	}
	s.frameCounter += s.framesPerCall
	return blk, nil
}

// Close stops and closes the stream and terminates portaudio.
func (s *Source) Close() error {
	if s.stream == nil {
		return nil
	}
	_ = s.stream.Stop()
	err := s.stream.Close()
	portaudio.Terminate()
	return err
}
