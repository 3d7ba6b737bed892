// Package dsp loads sidelobe-control window files and generates the
// fallback windows used when a file is absent. The generation math is a
// direct generalization of the teacher's FIR-design window function to the
// separable 2D windows this pipeline applies to range and Doppler axes.
package dsp

import (
	"bufio"
	"fmt"
	"math"
	"os"
)

// Kind enumerates the supported window shapes.
type Kind int

const (
	Hamming Kind = iota
	Blackman
	Flattop
	Cosine
	Truncated
)

// Generate returns a window of length n and the given shape, evaluated the
// same way the teacher's window() helper does for FIR filter design.
func Generate(kind Kind, n int) []float64 {
	w := make([]float64, n)
	size := float64(n)
	center := 0.5 * (size - 1)
	for j := 0; j < n; j++ {
		jf := float64(j)
		switch kind {
		case Cosine:
			w[j] = math.Cos((jf - center) / size * math.Pi)
		case Blackman:
			w[j] = 0.42659 - 0.49656*math.Cos((jf*2*math.Pi)/(size-1)) +
				0.076849*math.Cos((jf*4*math.Pi)/(size-1))
		case Flattop:
			w[j] = 1.0 - 1.93*math.Cos((jf*2*math.Pi)/(size-1)) +
				1.29*math.Cos((jf*4*math.Pi)/(size-1)) -
				0.388*math.Cos((jf*6*math.Pi)/(size-1)) +
				0.028*math.Cos((jf*8*math.Pi)/(size-1))
		case Truncated:
			w[j] = 1.0
		case Hamming:
			fallthrough
		default:
			w[j] = 0.53836 - 0.46164*math.Cos((jf*2*math.Pi)/(size-1))
		}
	}
	return w
}

// LoadFile reads a plain-text ASCII window file, one float per line,
// expecting exactly n values. Filename convention: win<N>s<sll>dB.txt.
func LoadFile(path string, n int) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	w := make([]float64, 0, n)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var v float64
		if _, err := fmt.Sscanf(sc.Text(), "%g", &v); err != nil {
			continue
		}
		w = append(w, v)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(w) != n {
		return nil, fmt.Errorf("dsp: window file %s has %d values, want %d", path, len(w), n)
	}
	return w, nil
}

// LoadOrDefault loads a window file, silently falling back to a generated
// Hamming window of length n when the file is missing or malformed.
func LoadOrDefault(path string, n int) []float64 {
	if path != "" {
		if w, err := LoadFile(path, n); err == nil {
			return w
		}
	}
	return Generate(Hamming, n)
}

// WindowFilename builds the conventional window filename for n samples and
// a sidelobe level (in dB, positive magnitude) of sll.
func WindowFilename(n, sll int) string {
	return fmt.Sprintf("win%ds%ddB.txt", n, sll)
}
