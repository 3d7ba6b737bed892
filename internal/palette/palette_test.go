package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHotEndpoints(t *testing.T) {
	t_ := Hot()
	assert.Equal(t, RGB{0, 0, 0}, t_[0])
	assert.Equal(t, RGB{255, 255, 255}, t_[255])
}

func TestGrayIsLinearRamp(t *testing.T) {
	g := Gray()
	assert.Equal(t, RGB{0, 0, 0}, g[0])
	assert.Equal(t, RGB{255, 255, 255}, g[255])
	assert.Equal(t, RGB{128, 128, 128}, g[128])
}

func TestJetEndpointsAreBlueAndRed(t *testing.T) {
	j := Jet()
	assert.Equal(t, byte(0), j[0].R)
	assert.Greater(t, j[0].B, byte(0))
	assert.Greater(t, j[255].R, byte(0))
	assert.Equal(t, byte(0), j[255].B)
}
