package cart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGBROM assembles a minimal valid GB ROM image.
func buildGBROM(cartType, romSize, ramSize uint8) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[0x104:], dmgLogo[:])
	copy(rom[0x134:], "TESTTITLE")
	rom[0x147] = cartType
	rom[0x148] = romSize
	rom[0x149] = ramSize

	var checksum uint8
	for i := 0x134; i < 0x14D; i++ {
		checksum -= rom[i] + 1
	}
	rom[0x14D] = checksum
	return rom
}

func TestDetectGBLogo(t *testing.T) {
	assert.Equal(t, KindGB, Detect(buildGBROM(0x00, 0x00, 0x00)))
	assert.Equal(t, KindUnknown, Detect(make([]byte, 0x8000)))
}

func TestParseHeaderMBCTypes(t *testing.T) {
	cases := []struct {
		cartType uint8
		mbc      MBCType
		battery  bool
		rtc      bool
		rumble   bool
	}{
		{0x00, NoMBC, false, false, false},
		{0x03, MBC1, true, false, false},
		{0x06, MBC2, true, false, false},
		{0x10, MBC3, true, true, false},
		{0x13, MBC3, true, false, false},
		{0x1B, MBC5, true, false, false},
		{0x1E, MBC5, true, false, true},
	}

	for _, tc := range cases {
		h, err := ParseHeader(buildGBROM(tc.cartType, 0x00, 0x02), false)
		require.NoError(t, err)
		assert.Equal(t, tc.mbc, h.MBC, "cart type 0x%02X", tc.cartType)
		assert.Equal(t, tc.battery, h.HasBattery)
		assert.Equal(t, tc.rtc, h.HasRTC)
		assert.Equal(t, tc.rumble, h.HasRumble)
	}
}

func TestParseHeaderROMBanksPowerOfTwo(t *testing.T) {
	for code := uint8(0); code <= 8; code++ {
		h, err := ParseHeader(buildGBROM(0x00, code, 0x00), false)
		require.NoError(t, err)
		assert.Equal(t, 2<<code, h.ROMBanks)
		assert.GreaterOrEqual(t, h.ROMBanks, 2)
		// Power of two.
		assert.Zero(t, h.ROMBanks&(h.ROMBanks-1))
	}
}

func TestParseHeaderRAMSizes(t *testing.T) {
	sizes := map[uint8]int{0x00: 0, 0x01: 0x800, 0x02: 0x2000, 0x03: 0x8000, 0x04: 0x20000, 0x05: 0x10000}
	for code, want := range sizes {
		h, err := ParseHeader(buildGBROM(0x00, 0x00, code), false)
		require.NoError(t, err)
		assert.Equal(t, want, h.RAMSize)
	}
}

func TestParseHeaderMBC2DeclaresNybbleRAM(t *testing.T) {
	h, err := ParseHeader(buildGBROM(0x05, 0x00, 0x00), false)
	require.NoError(t, err)
	assert.Equal(t, 512, h.RAMSize)
}

func TestMulticartFlagForcesMBC1M(t *testing.T) {
	h, err := ParseHeader(buildGBROM(0x01, 0x00, 0x00), true)
	require.NoError(t, err)
	assert.Equal(t, MBC1M, h.MBC)
}

func TestLoadROMRefusesSaveFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.sav")
	require.NoError(t, os.WriteFile(path, buildGBROM(0, 0, 0), 0o644))

	_, _, err := LoadROM(path)
	assert.Error(t, err)
}

func TestLoadROMRejectsTooSmall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tiny.gb")
	rom := buildGBROM(0, 0, 0)[:0x4000]
	require.NoError(t, os.WriteFile(path, rom, 0o644))

	_, _, err := LoadROM(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	romPath := filepath.Join(dir, "game.gb")

	ram := make([]byte, 0x2000)
	for i := range ram {
		ram[i] = uint8(i * 7)
	}

	require.NoError(t, WriteSave(romPath, ram))
	assert.Equal(t, filepath.Join(dir, "game.sav"), SavePath(romPath))

	loaded := LoadSave(romPath, len(ram))
	assert.Equal(t, ram, loaded)
}

func TestLoadSaveSizeMismatchIgnored(t *testing.T) {
	dir := t.TempDir()
	romPath := filepath.Join(dir, "game.gb")
	require.NoError(t, WriteSave(romPath, make([]byte, 0x100)))

	assert.Nil(t, LoadSave(romPath, 0x2000))
}
