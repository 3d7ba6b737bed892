package simadc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextBlockProducesExpectedLength(t *testing.T) {
	src := New(Config{
		SampleRate: 48000, SamplesPerWRI: 4, WRIsPerBlock: 2, Channels: 2,
		TargetBin: -1, NoiseFloorDB: -60,
	})
	blk, err := src.NextBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, blk.Samples, 4*2*2*2) // s*b*channels*2 (IQ)
}

func TestNextBlockRealOnlyHalvesLength(t *testing.T) {
	src := New(Config{
		SampleRate: 48000, SamplesPerWRI: 4, WRIsPerBlock: 2, Channels: 1, RealOnly: true,
		TargetBin: -1, NoiseFloorDB: -60,
	})
	blk, err := src.NextBlock(context.Background())
	require.NoError(t, err)
	assert.Len(t, blk.Samples, 4*2*1)
}

func TestDeviceTimeAdvancesMonotonically(t *testing.T) {
	src := New(Config{SampleRate: 1000, SamplesPerWRI: 1, WRIsPerBlock: 10, Channels: 1, TargetBin: -1})
	b1, _ := src.NextBlock(context.Background())
	b2, _ := src.NextBlock(context.Background())
	assert.Less(t, b1.DeviceTime, b2.DeviceTime)
}

func TestContextCancellationStopsProduction(t *testing.T) {
	src := New(Config{SampleRate: 1000, SamplesPerWRI: 1, WRIsPerBlock: 1, Channels: 1, TargetBin: -1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.NextBlock(ctx)
	assert.Error(t, err)
}
