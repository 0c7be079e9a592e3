package cart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the console family a ROM targets, detected from its header.
type Kind uint8

const (
	KindGB Kind = iota
	KindGBA
	KindUnknown
)

// dmgLogo is the Nintendo logo bitmap every GB cartridge carries at
// 0x104-0x133; the boot ROM refuses to run without it.
var dmgLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// agbLogoHash is the FNV-1a hash of the 156-byte AGB Nintendo logo at
// ROM offsets 0x04-0x9F.
const agbLogoHash uint32 = 0xAF665756

const (
	minGBROMSize  = 0x8000    // 32 KiB
	maxGBAROMSize = 0x2000000 // 32 MiB
)

func fnv1aHash(data []byte) uint32 {
	hash := uint32(0x811C9DC5)
	for _, b := range data {
		hash = (hash ^ uint32(b)) * 0x01000193
	}
	return hash
}

// Detect identifies the console family from the first part of a ROM
// image, by the AGB logo hash then the DMG logo bytes.
func Detect(rom []byte) Kind {
	if len(rom) >= 0xA0 && fnv1aHash(rom[0x04:0xA0]) == agbLogoHash {
		return KindGBA
	}
	if len(rom) >= 0x134 && [48]byte(rom[0x104:0x134]) == dmgLogo {
		return KindGB
	}
	return KindUnknown
}

// LoadROM reads and validates a ROM image from disk.
func LoadROM(path string) ([]byte, Kind, error) {
	if strings.EqualFold(filepath.Ext(path), ".sav") {
		return nil, KindUnknown, fmt.Errorf("%s is a save file, not a ROM", path)
	}

	rom, err := os.ReadFile(path)
	if err != nil {
		return nil, KindUnknown, fmt.Errorf("reading ROM: %w", err)
	}

	kind := Detect(rom)
	switch kind {
	case KindGB:
		if len(rom) < minGBROMSize {
			return nil, KindUnknown, fmt.Errorf("GB ROM too small: %d bytes", len(rom))
		}
	case KindGBA:
		if len(rom) > maxGBAROMSize {
			return nil, KindUnknown, fmt.Errorf("GBA ROM too large: %d bytes", len(rom))
		}
	default:
		return nil, KindUnknown, fmt.Errorf("%s does not contain a valid Nintendo logo", path)
	}

	return rom, kind, nil
}

// SavePath derives the save file path from the ROM path by swapping the
// extension for .sav.
func SavePath(romPath string) string {
	ext := filepath.Ext(romPath)
	return strings.TrimSuffix(romPath, ext) + ".sav"
}

// LoadSave reads the flat external-RAM image next to the ROM. A missing
// file is not an error; corrupted (wrong-size) data is logged and
// dropped, and the console boots with zeroed RAM.
func LoadSave(romPath string, wantSize int) []byte {
	data, err := os.ReadFile(SavePath(romPath))
	if err != nil {
		return nil
	}
	if wantSize > 0 && len(data) != wantSize {
		slog.Warn("Save file size mismatch, ignoring", "path", SavePath(romPath),
			"expected", wantSize, "actual", len(data))
		return nil
	}
	return data
}

// WriteSave stores the external-RAM image as a flat byte file.
func WriteSave(romPath string, ram []byte) error {
	if len(ram) == 0 {
		return nil
	}
	return os.WriteFile(SavePath(romPath), ram, 0o644)
}

// LoadBIOS locates and reads the 16 KiB GBA BIOS image, looking for
// gba_bios.bin in the working directory then its parent.
func LoadBIOS() ([]byte, error) {
	for _, dir := range []string{".", ".."} {
		path := filepath.Join(dir, "gba_bios.bin")
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(data) != 16384 {
			return nil, fmt.Errorf("%s is not a valid GBA BIOS: %d bytes, want 16384", path, len(data))
		}
		return data, nil
	}
	return nil, fmt.Errorf("gba_bios.bin not found in current or parent directory")
}
