package command

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState() *State {
	return New(3e9, 50e6, 48000, 128, 64)
}

func TestSetDisplayScaleValidation(t *testing.T) {
	s := newState()
	require.NoError(t, s.Apply(Command{Kind: SetDisplayScale, Range: 40, RefDB: -30}))
	assert.Equal(t, 40.0, s.Status().DispRange)

	assert.Error(t, s.Apply(Command{Kind: SetDisplayScale, Range: 5, RefDB: -30}))
	assert.Error(t, s.Apply(Command{Kind: SetDisplayScale, Range: 100, RefDB: -30}))
	assert.Error(t, s.Apply(Command{Kind: SetDisplayScale, Range: 40, RefDB: math.NaN()}))
	// Rejected commands must not mutate state.
	assert.Equal(t, 40.0, s.Status().DispRange)
}

func TestSetSimAmpClampsAndRejectsNonFinite(t *testing.T) {
	s := newState()
	require.NoError(t, s.Apply(Command{Kind: SetSimAmp, SimAmpDB: -50}))
	assert.Equal(t, -50.0, s.Status().SimAmpDB)

	require.NoError(t, s.Apply(Command{Kind: SetSimAmp, SimAmpDB: 1}))
	assert.Equal(t, 0.0, s.Status().SimAmpDB)
	require.NoError(t, s.Apply(Command{Kind: SetSimAmp, SimAmpDB: -101}))
	assert.Equal(t, -100.0, s.Status().SimAmpDB)
	assert.Error(t, s.Apply(Command{Kind: SetSimAmp, SimAmpDB: math.Inf(1)}))
	assert.Equal(t, -100.0, s.Status().SimAmpDB)
}

func TestBooleanTogglesAndExit(t *testing.T) {
	s := newState()
	require.NoError(t, s.Apply(Command{Kind: SetPeakOverlay, Bool: true}))
	require.NoError(t, s.Apply(Command{Kind: SetRawRecording, Bool: true}))
	require.NoError(t, s.Apply(Command{Kind: SetProcRecording, Bool: true}))
	require.NoError(t, s.Apply(Command{Kind: SetSimOn, Bool: true}))

	st := s.Status()
	assert.True(t, st.MarkPeak)
	assert.True(t, st.RecRaw)
	assert.True(t, st.RecProc)
	assert.True(t, st.SimOn)

	assert.False(t, s.ExitRequested())
	require.NoError(t, s.Apply(Command{Kind: Exit}))
	assert.True(t, s.ExitRequested())
}

func TestStatusReflectsStaticGeometry(t *testing.T) {
	s := newState()
	st := s.Status()
	assert.Equal(t, 3e9, st.CentFreqHz)
	assert.Equal(t, 128, st.NWRI)
	assert.Equal(t, 64, st.NSampPerWRI)
}
