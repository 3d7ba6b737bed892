package gather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundVelocity(t *testing.T) {
	assert.Equal(t, 1.235, RoundVelocity(1.2346))
	assert.Equal(t, -0.001, RoundVelocity(-0.0005001))
}

func TestUnambiguousVelocityFormula(t *testing.T) {
	s := &Stage{Params: Params{S: 64, SampleRate: 48000, CenterFreq: 3e9}}
	got := s.unambiguousVelocity()
	want := speedOfLight * 48000 / (4 * 64 * 3e9)
	assert.InDelta(t, want, got, 1e-12)
}
