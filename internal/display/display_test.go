package display

import (
	"testing"

	"github.com/kgrobelny/radarproc/internal/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessScrollsDTIAndAppendsTargetLine(t *testing.T) {
	f := New(4, palette.Gray())
	w, s := 2, 2
	power := []float64{-150, -150, -150, -150}

	for i := 0; i < 5; i++ {
		f.Process(ChannelInput{
			Channel: 0, Power: power, W: w, S: s,
			RangeIdx: 0, DopplerIdx: 0, RefDB: 0, DispRange: 40,
		})
	}

	cs := f.Surfaces(0)
	require.NotNil(t, cs)
	assert.Len(t, cs.DTI, 4*w*4)
	assert.Len(t, cs.TargetLine, w*4)
	assert.Equal(t, cs.TargetLine, cs.DTI[len(cs.DTI)-w*4:])
}

func TestPeakOverlayForcesBlueChannel(t *testing.T) {
	f := New(2, palette.Gray())
	w, s := 4, 2
	power := make([]float64, w*s)
	for i := range power {
		power[i] = -150
	}
	// Make the peak bright at doppler row 1 (pre-shift), range col 0.
	power[1*s+0] = 0

	cs := f.Process(ChannelInput{
		Channel: 0, Power: power, W: w, S: s,
		RangeIdx: 0, DopplerIdx: 1, RefDB: 0, DispRange: 40, PeakOverlay: true,
	})

	shiftedDoppler := (1 + w/2) % w
	o := shiftedDoppler * 4
	assert.Equal(t, byte(255), cs.TargetLine[o])
}

func TestClampByteBounds(t *testing.T) {
	assert.Equal(t, 0, clampByte(-10))
	assert.Equal(t, 255, clampByte(1000))
	assert.Equal(t, 128, clampByte(128.4))
}
