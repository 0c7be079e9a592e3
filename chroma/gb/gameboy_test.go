package gb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/cart"
	gbaudio "github.com/CaptainCaffeine/Chroma/chroma/gb/audio"
)

// newTestGameBoy builds a console around a NOP-filled 32 KiB ROM.
func newTestGameBoy() *GameBoy {
	header := cart.Header{MBC: cart.NoMBC, ROMBanks: 2}
	rom := make([]uint8, 0x8000)
	return New(header, rom, false, gbaudio.FilterNearest)
}

func TestRunFrameProducesFrames(t *testing.T) {
	gb := newTestGameBoy()

	for i := 0; i < 3; i++ {
		require.NoError(t, gb.RunFrame())
	}

	// A frame budget is slightly under the LCD's 456x154 cycle frame, so
	// after 3 budgets at least 2 frames have been published.
	assert.GreaterOrEqual(t, gb.FrameCount(), uint64(2))
}

func TestRunFrameProducesAudio(t *testing.T) {
	gb := newTestGameBoy()
	require.NoError(t, gb.RunFrame())

	samples := gb.DrainAudio(nil)
	// Roughly a frame's worth of 48 kHz stereo: ~800 pairs.
	assert.Greater(t, len(samples), 1000)
	assert.Equal(t, 0, len(samples)%2)
}

func TestFrameDeterminism(t *testing.T) {
	a := newTestGameBoy()
	b := newTestGameBoy()

	for i := 0; i < 5; i++ {
		require.NoError(t, a.RunFrame())
		require.NoError(t, b.RunFrame())
	}

	assert.Equal(t, a.Frame().Pixels, b.Frame().Pixels)
}

func TestInputLatchesIntoJoypad(t *testing.T) {
	gb := newTestGameBoy()

	gb.HandleInput(action.Start, true)
	assert.True(t, gb.mmu.JoypadAnyPressed())
	gb.HandleInput(action.Start, false)
	assert.False(t, gb.mmu.JoypadAnyPressed())
}

func TestCycleDebtCarries(t *testing.T) {
	gb := newTestGameBoy()
	require.NoError(t, gb.RunFrame())
	// The debt is bounded by the largest single instruction charge.
	assert.Less(t, gb.cycleDebt, 40)
	assert.GreaterOrEqual(t, gb.cycleDebt, 0)
}
