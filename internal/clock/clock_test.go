package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTOVRoundsToMicroseconds(t *testing.T) {
	e := NewEpoch(10.0)
	tov := e.TOV(10.0000015) // 1.5us after epoch
	assert.Equal(t, 2*time.Microsecond, tov)
}

func TestWallClockConvertsAtBoundaryOnly(t *testing.T) {
	e := Epoch{DeviceTimeZero: 0, WallClockZero: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	wall := e.WallClock(5 * time.Second)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC), wall)
}

func TestTOVNegativeOffset(t *testing.T) {
	e := NewEpoch(10.0)
	tov := e.TOV(9.999999)
	assert.Less(t, tov, time.Duration(0))
}
