package memory

import (
	"bytes"
	"log/slog"
)

// BackupType is the cartridge save hardware, inferred from the marker
// string the library build process embeds in every licensed ROM.
type BackupType uint8

const (
	BackupNone BackupType = iota
	BackupSRAM
	BackupEEPROM
	BackupFlash64
	BackupFlash128
)

func (t BackupType) String() string {
	switch t {
	case BackupSRAM:
		return "SRAM"
	case BackupEEPROM:
		return "EEPROM"
	case BackupFlash64:
		return "Flash 64K"
	case BackupFlash128:
		return "Flash 128K"
	default:
		return "none"
	}
}

// DetectBackup scans the ROM for the backup library markers.
func DetectBackup(rom []uint8) BackupType {
	switch {
	case bytes.Contains(rom, []byte("FLASH1M_V")):
		return BackupFlash128
	case bytes.Contains(rom, []byte("FLASH512_V")), bytes.Contains(rom, []byte("FLASH_V")):
		return BackupFlash64
	case bytes.Contains(rom, []byte("EEPROM_V")):
		return BackupEEPROM
	case bytes.Contains(rom, []byte("SRAM_V")):
		return BackupSRAM
	default:
		return BackupNone
	}
}

// BackupSize is the flat save image size for the type. EEPROM carts use
// the large variant; the 512-byte kind loads fine into it.
func (t BackupType) BackupSize() int {
	switch t {
	case BackupEEPROM:
		return 8 * 1024
	case BackupFlash128:
		return 128 * 1024
	case BackupSRAM, BackupFlash64:
		return 64 * 1024
	default:
		return 0
	}
}

// BackupType returns the detected save hardware of the loaded ROM.
func (b *Bus) BackupType() BackupType { return b.backup }

func (b *Bus) detectBackup() {
	b.backup = DetectBackup(b.rom)
	if b.backup != BackupNone {
		slog.Info("Detected save backup", "type", b.backup.String())
	}
	if size := b.backup.BackupSize(); size > len(b.sram) {
		b.sram = make([]uint8, size)
	}
}
