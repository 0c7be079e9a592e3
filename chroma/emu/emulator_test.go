package emu

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CaptainCaffeine/Chroma/chroma/action"
	"github.com/CaptainCaffeine/Chroma/chroma/timing"
)

var dmgLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// writeTestROM drops a minimal bootable GB ROM (with battery RAM) into
// dir and returns its path.
func writeTestROM(t *testing.T, dir string) string {
	t.Helper()

	rom := make([]byte, 0x8000)
	rom[0x100], rom[0x101] = 0x18, 0xFE // JR -2: spin at the entry point
	copy(rom[0x104:], dmgLogo[:])
	copy(rom[0x134:], "EMUTEST")
	rom[0x147] = 0x03 // MBC1 + RAM + battery
	rom[0x149] = 0x02 // 8 KiB RAM

	var checksum uint8
	for i := 0x134; i < 0x14D; i++ {
		checksum -= rom[i] + 1
	}
	rom[0x14D] = checksum

	path := filepath.Join(dir, "test.gb")
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

func newTestEmulator(t *testing.T) *Emulator {
	t.Helper()
	path := writeTestROM(t, t.TempDir())
	e, err := New(path, Options{Filter: "nearest"})
	require.NoError(t, err)
	e.SetLimiter(timing.NewNoOpLimiter())
	return e
}

func TestNewRejectsMissingROM(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.gb"), Options{})
	assert.Error(t, err)
}

func TestNewRejectsInvalidROM(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.gb")
	require.NoError(t, os.WriteFile(path, make([]byte, 0x8000), 0o644))

	_, err := New(path, Options{})
	assert.Error(t, err)
}

func TestStepFrameProducesFrameAndAudio(t *testing.T) {
	e := newTestEmulator(t)

	samples, err := e.StepFrame()
	require.NoError(t, err)
	assert.NotEmpty(t, samples)
	assert.NotNil(t, e.Frame())
}

func TestPauseSampledAtFrameBoundary(t *testing.T) {
	e := newTestEmulator(t)

	e.HandleAction(action.Pause, true)
	samples, err := e.StepFrame()
	require.NoError(t, err)
	assert.Empty(t, samples)

	// A frame advance runs exactly one frame while paused.
	e.HandleAction(action.FrameAdvance, true)
	samples, err = e.StepFrame()
	require.NoError(t, err)
	assert.NotEmpty(t, samples)

	samples, err = e.StepFrame()
	require.NoError(t, err)
	assert.Empty(t, samples)
}

func TestQuitAction(t *testing.T) {
	e := newTestEmulator(t)
	assert.False(t, e.Quit())
	e.HandleAction(action.Quit, true)
	assert.True(t, e.Quit())
}

func TestShutdownWritesSave(t *testing.T) {
	dir := t.TempDir()
	path := writeTestROM(t, dir)

	e, err := New(path, Options{Filter: "nearest"})
	require.NoError(t, err)
	e.SetLimiter(timing.NewNoOpLimiter())

	_, err = e.StepFrame()
	require.NoError(t, err)
	require.NoError(t, e.Shutdown())

	savePath := filepath.Join(dir, "test.sav")
	data, err := os.ReadFile(savePath)
	require.NoError(t, err)
	assert.Len(t, data, 0x2000)

	// Reloading the emulator picks the save image back up byte for byte.
	e2, err := New(path, Options{Filter: "nearest"})
	require.NoError(t, err)
	assert.Equal(t, data, []byte(e2.Console().BatteryRAM()))
}

func TestFrameDeterminism(t *testing.T) {
	dir := t.TempDir()
	path := writeTestROM(t, dir)

	run := func() []uint16 {
		e, err := New(path, Options{Filter: "nearest"})
		require.NoError(t, err)
		e.SetLimiter(timing.NewNoOpLimiter())
		for i := 0; i < 5; i++ {
			_, err := e.StepFrame()
			require.NoError(t, err)
		}
		return e.Frame().Pixels
	}

	assert.Equal(t, run(), run())
}
